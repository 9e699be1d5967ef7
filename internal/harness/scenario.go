package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcp-tool-shop-org/attestia/internal/recon"
)

// Scenario defines a conformance test scenario for the reconciliation engine.
// A scenario declares the three input populations, an optional scope and
// chain configuration, and the expected verdicts.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the report id
	// and the golden file name, so it must be filesystem-safe.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Chains optionally declares the chain topology. If empty, the default
	// registry (ethereum plus its rollups) is used.
	Chains []ChainDef `yaml:"chains,omitempty"`

	// Intents, Entries and Events are the three input populations.
	Intents []IntentDef `yaml:"intents,omitempty"`
	Entries []EntryDef  `yaml:"entries,omitempty"`
	Events  []EventDef  `yaml:"events,omitempty"`

	// Scope optionally restricts the run to a time window and entity set.
	Scope *ScopeDef `yaml:"scope,omitempty"`

	// Now fixes the report timestamp. Defaults to a constant so golden
	// files stay byte-stable.
	Now *time.Time `yaml:"now,omitempty"`

	// Attest requests an attestation of the report after reconciliation.
	Attest bool `yaml:"attest,omitempty"`

	// AttestorID names the attestor when Attest is true.
	// Defaults to "harness".
	AttestorID string `yaml:"attestor_id,omitempty"`

	// Expect declares the expected verdicts.
	Expect ExpectDef `yaml:"expect"`
}

// ChainDef declares one chain in the scenario topology.
type ChainDef struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Decimals  int64  `yaml:"decimals"`
	Symbol    string `yaml:"symbol"`
	SettlesTo string `yaml:"settles_to,omitempty"`
}

// MoneyDef is a declared amount: decimal string, currency, precision.
type MoneyDef struct {
	Value    string `yaml:"value"`
	Currency string `yaml:"currency"`
	Decimals int64  `yaml:"decimals"`
}

// IntentDef declares one reconcilable intent.
type IntentDef struct {
	ID        string     `yaml:"id"`
	Status    string     `yaml:"status"`
	Kind      string     `yaml:"kind,omitempty"`
	ChainID   string     `yaml:"chain_id,omitempty"`
	TxHash    string     `yaml:"tx_hash,omitempty"`
	Amount    *MoneyDef  `yaml:"amount,omitempty"`
	CreatedAt *time.Time `yaml:"created_at,omitempty"`
}

// EntryDef declares one reconcilable ledger entry.
type EntryDef struct {
	ID            string     `yaml:"id"`
	AccountID     string     `yaml:"account_id"`
	Direction     string     `yaml:"direction"`
	Amount        MoneyDef   `yaml:"amount"`
	IntentID      string     `yaml:"intent_id,omitempty"`
	TxHash        string     `yaml:"tx_hash,omitempty"`
	CorrelationID string     `yaml:"correlation_id,omitempty"`
	PostedAt      *time.Time `yaml:"posted_at,omitempty"`
}

// EventDef declares one observed chain event. Amount is the raw integer
// magnitude in minor units as a decimal string.
type EventDef struct {
	ChainID   string     `yaml:"chain_id"`
	TxHash    string     `yaml:"tx_hash"`
	From      string     `yaml:"from,omitempty"`
	To        string     `yaml:"to,omitempty"`
	Amount    string     `yaml:"amount"`
	Decimals  int64      `yaml:"decimals"`
	Symbol    string     `yaml:"symbol"`
	Timestamp *time.Time `yaml:"timestamp,omitempty"`
	BridgeRef string     `yaml:"bridge_ref,omitempty"`
}

// ScopeDef restricts the run to a half-open time window and entity set.
type ScopeDef struct {
	From     *time.Time `yaml:"from,omitempty"`
	To       *time.Time `yaml:"to,omitempty"`
	Entities []string   `yaml:"entities,omitempty"`
}

// ExpectDef declares the expected verdicts for a scenario.
// All fields are subset checks: only specified expectations are validated.
type ExpectDef struct {
	// AllReconciled is the expected overall verdict. Required.
	AllReconciled *bool `yaml:"all_reconciled"`

	// Expected summary counts. Nil means not checked.
	Matched    *int `yaml:"matched,omitempty"`
	Mismatches *int `yaml:"mismatches,omitempty"`
	Missing    *int `yaml:"missing,omitempty"`
	Orphans    *int `yaml:"orphans,omitempty"`

	// Links is the expected number of cross-chain links. Nil means not checked.
	Links *int `yaml:"links,omitempty"`

	// Per-pair status expectations, keyed by intent id or ledger entry id.
	IntentLedger map[string]string `yaml:"intent_ledger,omitempty"`
	LedgerChain  map[string]string `yaml:"ledger_chain,omitempty"`
	IntentChain  map[string]string `yaml:"intent_chain,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly instead of silently
// weakening the scenario.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML bytes with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Intents) == 0 && len(s.Entries) == 0 && len(s.Events) == 0 {
		return fmt.Errorf("at least one of intents, entries or events is required")
	}
	if s.Expect.AllReconciled == nil {
		return fmt.Errorf("expect.all_reconciled is required")
	}

	for i, in := range s.Intents {
		if in.ID == "" {
			return fmt.Errorf("intents[%d]: id is required", i)
		}
		if in.Status == "" {
			return fmt.Errorf("intents[%d]: status is required", i)
		}
	}
	for i, e := range s.Entries {
		if e.ID == "" {
			return fmt.Errorf("entries[%d]: id is required", i)
		}
		if e.Direction != string(recon.DirectionDebit) && e.Direction != string(recon.DirectionCredit) {
			return fmt.Errorf("entries[%d]: direction must be debit or credit, got %q", i, e.Direction)
		}
	}
	for i, ev := range s.Events {
		if ev.ChainID == "" || ev.TxHash == "" {
			return fmt.Errorf("events[%d]: chain_id and tx_hash are required", i)
		}
	}

	for _, m := range []map[string]string{s.Expect.IntentLedger, s.Expect.LedgerChain, s.Expect.IntentChain} {
		for key, status := range m {
			if !recon.KnownStatus(recon.MatchStatus(status)) {
				return fmt.Errorf("expect: unknown match status %q for %q", status, key)
			}
		}
	}

	return nil
}

// Inputs converts the scenario definitions into reconciler inputs.
func (s *Scenario) Inputs() ([]recon.ReconcilableIntent, []recon.ReconcilableLedgerEntry, []recon.ReconcilableChainEvent) {
	intents := make([]recon.ReconcilableIntent, 0, len(s.Intents))
	for _, in := range s.Intents {
		intents = append(intents, recon.ReconcilableIntent{
			ID:        in.ID,
			Status:    in.Status,
			Kind:      in.Kind,
			ChainID:   in.ChainID,
			TxHash:    in.TxHash,
			Amount:    in.Amount.toMoney(),
			CreatedAt: in.CreatedAt,
		})
	}

	entries := make([]recon.ReconcilableLedgerEntry, 0, len(s.Entries))
	for _, e := range s.Entries {
		entries = append(entries, recon.ReconcilableLedgerEntry{
			ID:            e.ID,
			AccountID:     e.AccountID,
			Direction:     recon.EntryDirection(e.Direction),
			Money:         *e.Amount.toMoney(),
			IntentID:      e.IntentID,
			TxHash:        e.TxHash,
			CorrelationID: e.CorrelationID,
			PostedAt:      e.PostedAt,
		})
	}

	events := make([]recon.ReconcilableChainEvent, 0, len(s.Events))
	for _, ev := range s.Events {
		ts := defaultScenarioTime
		if ev.Timestamp != nil {
			ts = *ev.Timestamp
		}
		events = append(events, recon.ReconcilableChainEvent{
			ChainID:   ev.ChainID,
			TxHash:    ev.TxHash,
			From:      ev.From,
			To:        ev.To,
			Amount:    ev.Amount,
			Decimals:  ev.Decimals,
			Symbol:    ev.Symbol,
			Timestamp: ts,
			BridgeRef: ev.BridgeRef,
		})
	}

	return intents, entries, events
}

func (m *MoneyDef) toMoney() *recon.Money {
	if m == nil {
		return nil
	}
	return &recon.Money{Value: m.Value, Currency: m.Currency, Decimals: m.Decimals}
}

func (s *ScopeDef) toScope() *recon.Scope {
	if s == nil {
		return nil
	}
	return &recon.Scope{From: s.From, To: s.To, Entities: s.Entities}
}
