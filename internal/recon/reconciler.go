// Package recon implements the three-way matching core: intents vs ledger
// entries vs chain events, the cross-chain settlement rules, and the
// Reconciler that folds the matcher verdicts into one immutable report.
//
// Everything here is a pure function of its inputs. Mismatches are report
// content, not control flow; nothing in this package performs I/O or
// returns an error for a business discrepancy.
package recon

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Reconciler orchestrates the three matchers and the cross-chain rules
// over one input batch. Safe for concurrent use: it holds no mutable state.
type Reconciler struct {
	rules *CrossChainRules
	now   func() time.Time
	newID func() string
}

// Option customizes a Reconciler, mainly for deterministic tests.
type Option func(*Reconciler)

// WithClock fixes the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithIDFunc fixes the report id source.
func WithIDFunc(newID func() string) Option {
	return func(r *Reconciler) { r.newID = newID }
}

// NewReconciler builds a Reconciler over the given cross-chain rules.
func NewReconciler(rules *CrossChainRules, opts ...Option) *Reconciler {
	r := &Reconciler{
		rules: rules,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile cross-checks the three record sets and assembles a report.
//
// Deterministic: given the same three input sets, in any order, and the
// same scope, the summary and the set of match records are identical. The
// match lists are sorted by stable keys before the report is sealed so the
// report's canonical bytes are reproducible too.
func (r *Reconciler) Reconcile(intents []ReconcilableIntent, entries []ReconcilableLedgerEntry, events []ReconcilableChainEvent, scope *Scope) *ReconciliationReport {
	intents = scope.FilterIntents(intents)
	entries = scope.FilterEntries(entries)
	events = scope.FilterEvents(events)

	// Collapse settlement-linked L1 duplicates before matching so a
	// transfer observed on both an L2 and its L1 is matched once.
	deduped, links := r.rules.PreventDoubleCounting(events)

	intentLedger, consumedEntries := MatchIntentsToLedger(intents, entries)
	ledgerChain, consumedByLedger := MatchLedgerToChain(entries, deduped)
	intentChain, consumedByIntent := MatchIntentsToChain(intents, deduped)

	// Second-side records no primary record ever claimed.
	intentLedger = append(intentLedger, orphanEntries(entries, consumedEntries)...)
	ledgerChain = append(ledgerChain, orphanEvents(deduped, consumedByLedger, consumedByIntent)...)

	sortIntentLedger(intentLedger)
	sortLedgerChain(ledgerChain)
	sortIntentChain(intentChain)
	sortLinks(links)

	// Empty lists must serialize as [], never null, or the canonical
	// encoding of the sealed report fails.
	if intentLedger == nil {
		intentLedger = []IntentLedgerMatch{}
	}
	if ledgerChain == nil {
		ledgerChain = []LedgerChainMatch{}
	}
	if intentChain == nil {
		intentChain = []IntentChainMatch{}
	}

	report := &ReconciliationReport{
		ID:              r.newID(),
		Scope:           scope,
		Timestamp:       r.now().UTC(),
		IntentLedger:    intentLedger,
		LedgerChain:     ledgerChain,
		IntentChain:     intentChain,
		CrossChainLinks: links,
	}
	report.Summary = summarize(report, len(intents), len(entries), len(events))
	return report
}

// orphanEntries surfaces ledger entries never consumed by the intent
// matcher. Entries with no correlating key at all are not orphans: they
// were never candidates.
func orphanEntries(entries []ReconcilableLedgerEntry, consumed map[string]bool) []IntentLedgerMatch {
	var orphans []IntentLedgerMatch
	for _, e := range entries {
		if entryCorrelationKey(e) == "" || consumed[e.ID] {
			continue
		}
		orphans = append(orphans, IntentLedgerMatch{
			LedgerEntryID: e.ID,
			Status:        StatusOrphan,
			Discrepancies: []string{"ledger entry " + e.ID + " correlates with no intent"},
		})
	}
	return orphans
}

// orphanEvents surfaces chain events consumed by neither chain matcher.
// An event claimed by either the ledger side or the intent side is
// accounted for; only events invisible to both are orphans.
func orphanEvents(events []ReconcilableChainEvent, byLedger, byIntent map[int]bool) []LedgerChainMatch {
	var orphans []LedgerChainMatch
	for i, ev := range events {
		if byLedger[i] || byIntent[i] {
			continue
		}
		orphans = append(orphans, LedgerChainMatch{
			ChainID: ev.ChainID,
			TxHash:  ev.TxHash,
			Status:  StatusOrphan,
			Discrepancies: []string{
				"chain event " + ev.TxHash + " on " + ev.ChainID + " matches no ledger entry or intent",
			},
		})
	}
	return orphans
}

// summarize counts statuses across the three lists and derives the verdict.
// AllReconciled is the conjunction: every match in every list is matched.
func summarize(rep *ReconciliationReport, totalIntents, totalEntries, totalEvents int) ReconciliationSummary {
	s := ReconciliationSummary{
		TotalIntents:       totalIntents,
		TotalLedgerEntries: totalEntries,
		TotalChainEvents:   totalEvents,
		AllReconciled:      true,
	}

	count := func(status MatchStatus, discrepancies []string) {
		switch status {
		case StatusMatched:
			s.MatchedCount++
		case StatusAmountMismatch, StatusCurrencyMismatch:
			s.MismatchCount++
		case StatusMissingChain, StatusMissingLedger:
			s.MissingCount++
		case StatusOrphan:
			s.OrphanCount++
		}
		if status != StatusMatched {
			s.AllReconciled = false
		}
		s.Discrepancies = append(s.Discrepancies, discrepancies...)
	}

	for _, m := range rep.IntentLedger {
		count(m.Status, m.Discrepancies)
	}
	for _, m := range rep.LedgerChain {
		count(m.Status, m.Discrepancies)
	}
	for _, m := range rep.IntentChain {
		count(m.Status, m.Discrepancies)
	}
	return s
}

func sortIntentLedger(ms []IntentLedgerMatch) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].IntentID != ms[j].IntentID {
			return ms[i].IntentID < ms[j].IntentID
		}
		return ms[i].LedgerEntryID < ms[j].LedgerEntryID
	})
}

func sortLedgerChain(ms []LedgerChainMatch) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].LedgerEntryID != ms[j].LedgerEntryID {
			return ms[i].LedgerEntryID < ms[j].LedgerEntryID
		}
		if ms[i].ChainID != ms[j].ChainID {
			return ms[i].ChainID < ms[j].ChainID
		}
		return ms[i].TxHash < ms[j].TxHash
	})
}

func sortIntentChain(ms []IntentChainMatch) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].IntentID != ms[j].IntentID {
			return ms[i].IntentID < ms[j].IntentID
		}
		return ms[i].TxHash < ms[j].TxHash
	})
}

func sortLinks(ls []CrossChainLink) {
	sort.Slice(ls, func(i, j int) bool {
		if ls[i].BridgeRef != ls[j].BridgeRef {
			return ls[i].BridgeRef < ls[j].BridgeRef
		}
		return ls[i].L2TxHash < ls[j].L2TxHash
	})
}
