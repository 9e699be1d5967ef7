package recon

import (
	"github.com/mcp-tool-shop-org/attestia/internal/chaincfg"
)

// CrossChainRules applies the settlement-pair detection and double-counting
// prevention rules backed by the configured chain registry.
//
// Failure semantics: chain ids the registry does not know are treated as
// non-settlement. The rules fail toward "no dedup", never toward silently
// dropping observed data.
type CrossChainRules struct {
	registry *chaincfg.Registry
}

// NewCrossChainRules builds rules over a chain registry.
func NewCrossChainRules(reg *chaincfg.Registry) *CrossChainRules {
	return &CrossChainRules{registry: reg}
}

// IsSettlementPair reports whether one chain's configured settlement chain
// is the other, in either direction.
func (r *CrossChainRules) IsSettlementPair(a, b string) bool {
	return r.registry.IsSettlementPair(a, b)
}

// SettlementChain returns the configured L1 settlement chain id for an L2.
func (r *CrossChainRules) SettlementChain(id string) (string, bool) {
	return r.registry.SettlementChain(id)
}

// LinkCrossChainEvents groups events across a settlement pair that share a
// bridge reference and an equal amount into CrossChainLinks. Events with no
// cross-chain counterpart remain unlinked.
//
// A link is produced only when the correspondence is unambiguous in both
// directions: exactly one L1 counterpart for the L2 event, and that L1
// counterpart matches no other L2 in the group.
func (r *CrossChainRules) LinkCrossChainEvents(events []ReconcilableChainEvent) []CrossChainLink {
	links, _ := r.linkAndMark(events)
	return links
}

// PreventDoubleCounting collapses settlement-linked duplicates so a single
// transfer observed on both an L2 and its L1 contributes once to totals.
// The L2 (sequencer-confirmed) event is canonical; the linked L1 event is
// retained only inside the returned links, never summed. On ambiguity the
// conservative behavior is no dedup: all events are kept.
func (r *CrossChainRules) PreventDoubleCounting(events []ReconcilableChainEvent) ([]ReconcilableChainEvent, []CrossChainLink) {
	links, dropped := r.linkAndMark(events)
	if len(dropped) == 0 {
		return events, links
	}

	kept := make([]ReconcilableChainEvent, 0, len(events)-len(dropped))
	for i, ev := range events {
		if dropped[i] {
			continue
		}
		kept = append(kept, ev)
	}
	return kept, links
}

// linkAndMark finds settlement links and marks the L1 positions to drop.
func (r *CrossChainRules) linkAndMark(events []ReconcilableChainEvent) ([]CrossChainLink, map[int]bool) {
	// Group bridge-related events by reference, preserving input order.
	byRef := make(map[string][]int)
	var refs []string
	for i, ev := range events {
		if ev.BridgeRef == "" {
			continue
		}
		if _, seen := byRef[ev.BridgeRef]; !seen {
			refs = append(refs, ev.BridgeRef)
		}
		byRef[ev.BridgeRef] = append(byRef[ev.BridgeRef], i)
	}

	var links []CrossChainLink
	dropped := make(map[int]bool)

	for _, ref := range refs {
		group := byRef[ref]
		for _, l2Pos := range group {
			l2 := events[l2Pos]
			settles, ok := r.registry.SettlementChain(l2.ChainID)
			if !ok {
				continue
			}

			// Collect L1 candidates in the group on this event's settlement
			// chain carrying the same transfer.
			var l1Candidates []int
			for _, l1Pos := range group {
				if l1Pos == l2Pos {
					continue
				}
				l1 := events[l1Pos]
				if l1.ChainID != settles || !sameTransfer(l2, l1) {
					continue
				}
				l1Candidates = append(l1Candidates, l1Pos)
			}

			if len(l1Candidates) != 1 {
				// Zero: nothing settlement-linked. More than one: ambiguous,
				// keep everything and count everything.
				continue
			}

			l1Pos := l1Candidates[0]
			l1 := events[l1Pos]

			// The reverse direction must be unambiguous too: no other L2 in
			// the group may correspond to the same L1 event.
			contested := false
			for _, otherPos := range group {
				if otherPos == l2Pos || otherPos == l1Pos {
					continue
				}
				other := events[otherPos]
				otherSettles, ok := r.registry.SettlementChain(other.ChainID)
				if ok && otherSettles == l1.ChainID && sameTransfer(other, l1) {
					contested = true
					break
				}
			}
			if contested {
				continue
			}

			links = append(links, CrossChainLink{
				L2ChainID: l2.ChainID,
				L2TxHash:  l2.TxHash,
				L1ChainID: l1.ChainID,
				L1TxHash:  l1.TxHash,
				BridgeRef: ref,
				Amount:    l2.Amount,
				Symbol:    l2.Symbol,
			})
			dropped[l1Pos] = true
		}
	}

	return links, dropped
}

// sameTransfer reports whether two events carry the same magnitude of the
// same asset, normalized across their precisions.
func sameTransfer(a, b ReconcilableChainEvent) bool {
	sa, err := SideFromRaw(a.Amount, a.Decimals, a.Symbol)
	if err != nil {
		return false
	}
	sb, err := SideFromRaw(b.Amount, b.Decimals, b.Symbol)
	if err != nil {
		return false
	}
	return CompareAmounts(sa, sb) == AmountsEqual
}
