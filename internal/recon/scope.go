package recon

import "time"

// Scope optionally narrows one reconciliation run to a time window and/or a
// set of entities. The same scope is applied to all three inputs before
// matching, so every matcher operates on the same filtered universe.
//
// Entity matching: intents match on their id, ledger entries on their
// account id, chain events on either endpoint address. Records without a
// timestamp pass the time filter; absence of data never hides a record
// from reconciliation.
type Scope struct {
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
	Entities []string   `json:"entities,omitempty"`
}

// containsTime reports whether t falls inside the window. A nil t passes.
// The window is half-open: From inclusive, To exclusive.
func (s *Scope) containsTime(t *time.Time) bool {
	if t == nil {
		return true
	}
	if s.From != nil && t.Before(*s.From) {
		return false
	}
	if s.To != nil && !t.Before(*s.To) {
		return false
	}
	return true
}

// containsEntity reports whether any of the given ids is in the entity
// filter. An empty filter passes everything.
func (s *Scope) containsEntity(ids ...string) bool {
	if len(s.Entities) == 0 {
		return true
	}
	for _, want := range s.Entities {
		for _, id := range ids {
			if id == want {
				return true
			}
		}
	}
	return false
}

// FilterIntents returns the intents inside the scope. A nil scope keeps all.
func (s *Scope) FilterIntents(intents []ReconcilableIntent) []ReconcilableIntent {
	if s == nil {
		return intents
	}
	out := make([]ReconcilableIntent, 0, len(intents))
	for _, in := range intents {
		if s.containsTime(in.CreatedAt) && s.containsEntity(in.ID) {
			out = append(out, in)
		}
	}
	return out
}

// FilterEntries returns the ledger entries inside the scope.
func (s *Scope) FilterEntries(entries []ReconcilableLedgerEntry) []ReconcilableLedgerEntry {
	if s == nil {
		return entries
	}
	out := make([]ReconcilableLedgerEntry, 0, len(entries))
	for _, e := range entries {
		if s.containsTime(e.PostedAt) && s.containsEntity(e.AccountID) {
			out = append(out, e)
		}
	}
	return out
}

// FilterEvents returns the chain events inside the scope.
func (s *Scope) FilterEvents(events []ReconcilableChainEvent) []ReconcilableChainEvent {
	if s == nil {
		return events
	}
	out := make([]ReconcilableChainEvent, 0, len(events))
	for _, ev := range events {
		ts := ev.Timestamp
		if s.containsTime(&ts) && s.containsEntity(ev.From, ev.To) {
			out = append(out, ev)
		}
	}
	return out
}
