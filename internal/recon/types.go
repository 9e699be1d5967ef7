package recon

import "time"

// Money is a declared monetary amount: a decimal string plus the currency
// symbol and the precision it is quoted at. "100" at 6 decimals and raw
// integer 100000000 at 6 decimals are the same magnitude.
type Money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
	Decimals int64  `json:"decimals"`
}

// ReconcilableIntent is a declared or executed off-chain action expected to
// produce a ledger posting and/or an on-chain event. Immutable input.
type ReconcilableIntent struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Kind    string `json:"kind"`
	ChainID string `json:"chain_id,omitempty"`
	TxHash  string `json:"tx_hash,omitempty"`

	// Amount is optional: an intent without a declared amount is checked
	// for presence of counterparts only.
	Amount *Money `json:"amount,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// EntryDirection distinguishes debit and credit postings.
type EntryDirection string

const (
	DirectionDebit  EntryDirection = "debit"
	DirectionCredit EntryDirection = "credit"
)

// ReconcilableLedgerEntry is a posted accounting record. Immutable input.
type ReconcilableLedgerEntry struct {
	ID            string         `json:"id"`
	AccountID     string         `json:"account_id"`
	Direction     EntryDirection `json:"direction"`
	Money         Money          `json:"money"`
	IntentID      string         `json:"intent_id,omitempty"`
	TxHash        string         `json:"tx_hash,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	PostedAt      *time.Time     `json:"posted_at,omitempty"`
}

// ReconcilableChainEvent is an observed on-chain transfer. Amount is the raw
// integer magnitude in minor units as a decimal string, at the event's
// declared precision. Immutable input; the engine trusts the feed.
type ReconcilableChainEvent struct {
	ChainID   string    `json:"chain_id"`
	TxHash    string    `json:"tx_hash"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    string    `json:"amount"`
	Decimals  int64     `json:"decimals"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`

	// BridgeRef is the caller-supplied bridge/settlement identifier that
	// correlates the same economic transfer observed on an L2 and its L1
	// settlement chain. Empty when the event is not bridge-related.
	BridgeRef string `json:"bridge_ref,omitempty"`
}

// MatchStatus is the outcome tag for one matcher verdict.
type MatchStatus string

const (
	StatusMatched          MatchStatus = "matched"
	StatusAmountMismatch   MatchStatus = "amount-mismatch"
	StatusMissingChain     MatchStatus = "missing-chain"
	StatusMissingLedger    MatchStatus = "missing-ledger"
	StatusOrphan           MatchStatus = "orphan"
	StatusCurrencyMismatch MatchStatus = "currency-mismatch"
)

// KnownStatus reports whether s is one of the defined match statuses.
// Callers evaluating stored reports must treat unknown statuses as
// evaluation failure, never as success.
func KnownStatus(s MatchStatus) bool {
	switch s {
	case StatusMatched, StatusAmountMismatch, StatusMissingChain,
		StatusMissingLedger, StatusOrphan, StatusCurrencyMismatch:
		return true
	default:
		return false
	}
}

// IntentLedgerMatch is one verdict from the intent/ledger matcher.
// An orphan verdict carries only the ledger side.
type IntentLedgerMatch struct {
	IntentID      string      `json:"intent_id,omitempty"`
	LedgerEntryID string      `json:"ledger_entry_id,omitempty"`
	Status        MatchStatus `json:"status"`
	Discrepancies []string    `json:"discrepancies,omitempty"`
}

// LedgerChainMatch is one verdict from the ledger/chain matcher.
// An orphan verdict carries only the chain side.
type LedgerChainMatch struct {
	LedgerEntryID string      `json:"ledger_entry_id,omitempty"`
	ChainID       string      `json:"chain_id,omitempty"`
	TxHash        string      `json:"tx_hash,omitempty"`
	Status        MatchStatus `json:"status"`
	Discrepancies []string    `json:"discrepancies,omitempty"`
}

// IntentChainMatch is one verdict from the intent/chain matcher.
type IntentChainMatch struct {
	IntentID      string      `json:"intent_id,omitempty"`
	ChainID       string      `json:"chain_id,omitempty"`
	TxHash        string      `json:"tx_hash,omitempty"`
	Status        MatchStatus `json:"status"`
	Discrepancies []string    `json:"discrepancies,omitempty"`
}

// CrossChainLink records that one economic transfer was observed on an L2
// and corroborated by its L1 settlement event. The L2 event is canonical;
// the L1 event contributes to no totals.
type CrossChainLink struct {
	L2ChainID string `json:"l2_chain_id"`
	L2TxHash  string `json:"l2_tx_hash"`
	L1ChainID string `json:"l1_chain_id"`
	L1TxHash  string `json:"l1_tx_hash"`
	BridgeRef string `json:"bridge_ref"`
	Amount    string `json:"amount"`
	Symbol    string `json:"symbol"`
}

// ReconciliationSummary holds counts and the overall verdict for one run.
type ReconciliationSummary struct {
	TotalIntents       int      `json:"total_intents"`
	TotalLedgerEntries int      `json:"total_ledger_entries"`
	TotalChainEvents   int      `json:"total_chain_events"`
	MatchedCount       int      `json:"matched_count"`
	MismatchCount      int      `json:"mismatch_count"`
	MissingCount       int      `json:"missing_count"`
	OrphanCount        int      `json:"orphan_count"`
	AllReconciled      bool     `json:"all_reconciled"`
	Discrepancies      []string `json:"discrepancies,omitempty"`
}

// ReconciliationReport is the aggregate result of one reconciliation run.
// Immutable once returned. Match lists are sorted by stable keys so the
// canonical bytes of a report are reproducible across input orderings.
type ReconciliationReport struct {
	ID              string                `json:"id"`
	Scope           *Scope                `json:"scope,omitempty"`
	Timestamp       time.Time             `json:"timestamp"`
	IntentLedger    []IntentLedgerMatch   `json:"intent_ledger"`
	LedgerChain     []LedgerChainMatch    `json:"ledger_chain"`
	IntentChain     []IntentChainMatch    `json:"intent_chain"`
	CrossChainLinks []CrossChainLink      `json:"cross_chain_links,omitempty"`
	Summary         ReconciliationSummary `json:"summary"`
}
