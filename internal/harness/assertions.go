package harness

import (
	"fmt"

	"github.com/mcp-tool-shop-org/attestia/internal/recon"
)

// checkExpectations evaluates every expect clause against the report and
// records failures on the result. Subset semantics: only declared
// expectations are checked.
func checkExpectations(result *Result, scenario *Scenario) {
	report := result.Report
	expect := scenario.Expect

	if expect.AllReconciled != nil && report.Summary.AllReconciled != *expect.AllReconciled {
		result.AddError(fmt.Sprintf("all_reconciled: expected %v, got %v (discrepancies: %v)",
			*expect.AllReconciled, report.Summary.AllReconciled, report.Summary.Discrepancies))
	}

	checkCount(result, "matched", expect.Matched, report.Summary.MatchedCount)
	checkCount(result, "mismatches", expect.Mismatches, report.Summary.MismatchCount)
	checkCount(result, "missing", expect.Missing, report.Summary.MissingCount)
	checkCount(result, "orphans", expect.Orphans, report.Summary.OrphanCount)
	checkCount(result, "links", expect.Links, len(report.CrossChainLinks))

	checkStatuses(result, "intent_ledger", expect.IntentLedger, intentLedgerStatuses(report))
	checkStatuses(result, "ledger_chain", expect.LedgerChain, ledgerChainStatuses(report))
	checkStatuses(result, "intent_chain", expect.IntentChain, intentChainStatuses(report))
}

func checkCount(result *Result, field string, expected *int, actual int) {
	if expected != nil && actual != *expected {
		result.AddError(fmt.Sprintf("%s: expected %d, got %d", field, *expected, actual))
	}
}

// checkStatuses verifies each expected key resolves to exactly the expected
// status. A key with no verdict at all is a failure, not a skip.
func checkStatuses(result *Result, list string, expected map[string]string, actual map[string]recon.MatchStatus) {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			result.AddError(fmt.Sprintf("%s[%s]: no verdict in report", list, key))
			continue
		}
		if got != recon.MatchStatus(want) {
			result.AddError(fmt.Sprintf("%s[%s]: expected status %s, got %s", list, key, want, got))
		}
	}
}

// intentLedgerStatuses indexes verdicts by intent id, falling back to the
// ledger entry id for orphan verdicts that carry no intent side.
func intentLedgerStatuses(report *recon.ReconciliationReport) map[string]recon.MatchStatus {
	out := make(map[string]recon.MatchStatus, len(report.IntentLedger))
	for _, m := range report.IntentLedger {
		key := m.IntentID
		if key == "" {
			key = m.LedgerEntryID
		}
		out[key] = m.Status
	}
	return out
}

func ledgerChainStatuses(report *recon.ReconciliationReport) map[string]recon.MatchStatus {
	out := make(map[string]recon.MatchStatus, len(report.LedgerChain))
	for _, m := range report.LedgerChain {
		key := m.LedgerEntryID
		if key == "" {
			key = m.TxHash
		}
		out[key] = m.Status
	}
	return out
}

func intentChainStatuses(report *recon.ReconciliationReport) map[string]recon.MatchStatus {
	out := make(map[string]recon.MatchStatus, len(report.IntentChain))
	for _, m := range report.IntentChain {
		key := m.IntentID
		if key == "" {
			key = m.TxHash
		}
		out[key] = m.Status
	}
	return out
}
