package recon

import "fmt"

// The three matchers share one shape: index the second record set by its
// correlating key, then attempt a lookup for each primary record. All
// outcomes are data; matching never fails. Each matcher also reports which
// second-side records it consumed so the Reconciler can surface the rest
// as orphans against the same index.

// MatchIntentsToLedger cross-checks intents against ledger entries.
// Entries correlate by IntentID, falling back to CorrelationID.
// The consumed set is keyed by ledger entry id.
func MatchIntentsToLedger(intents []ReconcilableIntent, entries []ReconcilableLedgerEntry) ([]IntentLedgerMatch, map[string]bool) {
	index := make(map[string][]int, len(entries))
	for i, e := range entries {
		key := entryCorrelationKey(e)
		if key == "" {
			continue
		}
		index[key] = append(index[key], i)
	}

	consumed := make(map[string]bool)
	matches := make([]IntentLedgerMatch, 0, len(intents))

	for _, in := range intents {
		candidates := index[in.ID]
		if len(candidates) == 0 {
			matches = append(matches, IntentLedgerMatch{
				IntentID: in.ID,
				Status:   StatusMissingLedger,
				Discrepancies: []string{
					fmt.Sprintf("no ledger entry correlates with intent %s", in.ID),
				},
			})
			continue
		}

		currency := ""
		if in.Amount != nil {
			currency = in.Amount.Currency
		}
		e := entries[pickCandidate(candidates, currency, func(i int) string {
			return entries[i].Money.Currency
		})]
		consumed[e.ID] = true

		m := IntentLedgerMatch{IntentID: in.ID, LedgerEntryID: e.ID}
		if in.Amount == nil {
			// Presence-only path: no declared amount, nothing to compare.
			m.Status = StatusMatched
		} else {
			m.Status, m.Discrepancies = compareDeclared(*in.Amount,
				mustLedgerSide(e), "intent "+in.ID, "ledger entry "+e.ID)
		}
		matches = append(matches, m)
	}

	return matches, consumed
}

// MatchLedgerToChain cross-checks ledger entries against chain events.
// Events correlate by transaction hash; entries without one have nothing
// to check and are skipped. The consumed set is keyed by event position
// in the input slice, since chain events carry no identifier of their own.
func MatchLedgerToChain(entries []ReconcilableLedgerEntry, events []ReconcilableChainEvent) ([]LedgerChainMatch, map[int]bool) {
	index := indexEventsByTxHash(events)

	consumed := make(map[int]bool)
	matches := make([]LedgerChainMatch, 0, len(entries))

	for _, e := range entries {
		if e.TxHash == "" {
			continue
		}

		candidates := index[e.TxHash]
		if len(candidates) == 0 {
			matches = append(matches, LedgerChainMatch{
				LedgerEntryID: e.ID,
				TxHash:        e.TxHash,
				Status:        StatusMissingChain,
				Discrepancies: []string{
					fmt.Sprintf("no chain event observed for tx %s referenced by ledger entry %s", e.TxHash, e.ID),
				},
			})
			continue
		}

		pos := pickCandidate(candidates, e.Money.Currency, func(i int) string {
			return events[i].Symbol
		})
		ev := events[pos]
		consumed[pos] = true

		m := LedgerChainMatch{LedgerEntryID: e.ID, ChainID: ev.ChainID, TxHash: ev.TxHash}
		m.Status, m.Discrepancies = compareDeclared(e.Money,
			mustEventSide(ev), "ledger entry "+e.ID, "chain event "+ev.TxHash)
		matches = append(matches, m)
	}

	return matches, consumed
}

// MatchIntentsToChain cross-checks intents against chain events by
// transaction hash. Intents without a tx hash simply have nothing to check.
func MatchIntentsToChain(intents []ReconcilableIntent, events []ReconcilableChainEvent) ([]IntentChainMatch, map[int]bool) {
	index := indexEventsByTxHash(events)

	consumed := make(map[int]bool)
	matches := make([]IntentChainMatch, 0, len(intents))

	for _, in := range intents {
		if in.TxHash == "" {
			continue
		}

		candidates := index[in.TxHash]
		if len(candidates) == 0 {
			matches = append(matches, IntentChainMatch{
				IntentID: in.ID,
				TxHash:   in.TxHash,
				Status:   StatusMissingChain,
				Discrepancies: []string{
					fmt.Sprintf("no chain event observed for tx %s declared by intent %s", in.TxHash, in.ID),
				},
			})
			continue
		}

		currency := ""
		if in.Amount != nil {
			currency = in.Amount.Currency
		}
		pos := pickCandidate(candidates, currency, func(i int) string {
			return events[i].Symbol
		})
		ev := events[pos]
		consumed[pos] = true

		m := IntentChainMatch{IntentID: in.ID, ChainID: ev.ChainID, TxHash: ev.TxHash}
		if in.Amount == nil {
			m.Status = StatusMatched
		} else {
			m.Status, m.Discrepancies = compareDeclared(*in.Amount,
				mustEventSide(ev), "intent "+in.ID, "chain event "+ev.TxHash)
		}
		matches = append(matches, m)
	}

	return matches, consumed
}

// entryCorrelationKey returns the field a ledger entry correlates to an
// intent on: IntentID first, CorrelationID as fallback.
func entryCorrelationKey(e ReconcilableLedgerEntry) string {
	if e.IntentID != "" {
		return e.IntentID
	}
	return e.CorrelationID
}

// indexEventsByTxHash maps tx hash to event positions, preserving input
// order within each key.
func indexEventsByTxHash(events []ReconcilableChainEvent) map[string][]int {
	index := make(map[string][]int, len(events))
	for i, ev := range events {
		if ev.TxHash == "" {
			continue
		}
		index[ev.TxHash] = append(index[ev.TxHash], i)
	}
	return index
}

// pickCandidate selects from multiple candidates sharing one key: prefer
// the one whose currency symbol matches the primary record's declared
// currency, otherwise take the first in list order.
//
// The first-in-list tie-break is a heuristic, not a proof of
// correspondence - a batched multi-transfer sharing one tx hash is
// genuinely ambiguous. Kept as-is for compatibility.
func pickCandidate(candidates []int, currency string, symbolOf func(int) string) int {
	if currency != "" {
		for _, i := range candidates {
			if symbolOf(i) == currency {
				return i
			}
		}
	}
	return candidates[0]
}

// sideResult carries a parsed side or the reason it could not be parsed.
type sideResult struct {
	side AmountSide
	err  error
}

func mustLedgerSide(e ReconcilableLedgerEntry) sideResult {
	s, err := SideFromMoney(e.Money)
	return sideResult{side: s, err: err}
}

func mustEventSide(ev ReconcilableChainEvent) sideResult {
	s, err := SideFromRaw(ev.Amount, ev.Decimals, ev.Symbol)
	return sideResult{side: s, err: err}
}

// compareDeclared compares a declared Money against a parsed counterpart
// side and folds every outcome, including parse failures, into status plus
// discrepancy text. Unparseable amounts fail closed as amount-mismatch
// rather than passing unverified.
func compareDeclared(declared Money, counter sideResult, declaredLabel, counterLabel string) (MatchStatus, []string) {
	ds, err := SideFromMoney(declared)
	if err != nil {
		return StatusAmountMismatch, []string{fmt.Sprintf("%s: %v", declaredLabel, err)}
	}
	if counter.err != nil {
		return StatusAmountMismatch, []string{fmt.Sprintf("%s: %v", counterLabel, counter.err)}
	}

	switch CompareAmounts(ds, counter.side) {
	case CurrencyMismatch:
		return StatusCurrencyMismatch, []string{fmt.Sprintf(
			"currency mismatch: %s declares %s, %s carries %s",
			declaredLabel, ds.Currency, counterLabel, counter.side.Currency,
		)}
	case AmountsUnequal:
		return StatusAmountMismatch, []string{fmt.Sprintf(
			"amount mismatch: %s declares %s %s, %s carries %s %s",
			declaredLabel, ds.Human(), ds.Currency,
			counterLabel, counter.side.Human(), counter.side.Currency,
		)}
	default:
		return StatusMatched, nil
	}
}
