package recon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ts(h int) *time.Time {
	t := time.Date(2025, 1, 1, h, 0, 0, 0, time.UTC)
	return &t
}

func TestNilScopeKeepsEverything(t *testing.T) {
	var scope *Scope
	intents := []ReconcilableIntent{{ID: "a", Status: "completed"}}

	assert.Equal(t, intents, scope.FilterIntents(intents))
}

func TestScopeHalfOpenWindow(t *testing.T) {
	scope := &Scope{From: ts(10), To: ts(12)}

	tests := []struct {
		name string
		at   *time.Time
		kept bool
	}{
		{"before window", ts(9), false},
		{"at from, inclusive", ts(10), true},
		{"inside", ts(11), true},
		{"at to, exclusive", ts(12), false},
		{"after window", ts(13), false},
		{"no timestamp passes", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intents := []ReconcilableIntent{{ID: "a", Status: "completed", CreatedAt: tt.at}}
			kept := scope.FilterIntents(intents)
			if tt.kept {
				assert.Len(t, kept, 1)
			} else {
				assert.Empty(t, kept)
			}
		})
	}
}

func TestScopeEntityFilterIntents(t *testing.T) {
	scope := &Scope{Entities: []string{"intent-1"}}
	intents := []ReconcilableIntent{
		{ID: "intent-1", Status: "completed"},
		{ID: "intent-2", Status: "completed"},
	}

	kept := scope.FilterIntents(intents)
	assert.Len(t, kept, 1)
	assert.Equal(t, "intent-1", kept[0].ID)
}

func TestScopeEntityFilterEntriesByAccount(t *testing.T) {
	scope := &Scope{Entities: []string{"acct-1"}}
	entries := []ReconcilableLedgerEntry{
		{ID: "e1", AccountID: "acct-1", Direction: DirectionDebit},
		{ID: "e2", AccountID: "acct-2", Direction: DirectionCredit},
	}

	kept := scope.FilterEntries(entries)
	assert.Len(t, kept, 1)
	assert.Equal(t, "e1", kept[0].ID)
}

func TestScopeEntityFilterEventsByEitherEndpoint(t *testing.T) {
	scope := &Scope{Entities: []string{"0xwallet"}}
	events := []ReconcilableChainEvent{
		{ChainID: "ethereum", TxHash: "0x1", From: "0xwallet", To: "0xother", Timestamp: *ts(10)},
		{ChainID: "ethereum", TxHash: "0x2", From: "0xother", To: "0xwallet", Timestamp: *ts(10)},
		{ChainID: "ethereum", TxHash: "0x3", From: "0xa", To: "0xb", Timestamp: *ts(10)},
	}

	kept := scope.FilterEvents(events)
	assert.Len(t, kept, 2)
}

func TestScopeEmptyEntityListPassesAll(t *testing.T) {
	scope := &Scope{Entities: nil}
	entries := []ReconcilableLedgerEntry{
		{ID: "e1", AccountID: "acct-1", Direction: DirectionDebit},
	}
	assert.Len(t, scope.FilterEntries(entries), 1)
}
