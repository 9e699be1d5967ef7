// Package ledger provides the reference double-entry ledger collaborator.
//
// The reconciliation core consumes a ledger only through its snapshot and
// restore contract; this implementation exists so the replay verifier has a
// faithful subsystem to round-trip, and so the CLI can reconcile directly
// against a ledger file.
//
// The posting log is append-only. Balance is always derived by folding the
// postings; there is no stored balance to drift out of sync. Corrections
// are new postings, never edits.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcp-tool-shop-org/attestia/internal/recon"
)

// Account is one ledger account.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// Posting is one double-entry record: the same amount leaves the credit
// account and enters the debit account. Immutable once appended.
type Posting struct {
	ID              string    `json:"id"`
	DebitAccountID  string    `json:"debit_account_id"`
	CreditAccountID string    `json:"credit_account_id"`
	Amount          string    `json:"amount"`
	Currency        string    `json:"currency"`
	Decimals        int64     `json:"decimals"`
	IntentID        string    `json:"intent_id,omitempty"`
	TxHash          string    `json:"tx_hash,omitempty"`
	PostedAt        time.Time `json:"posted_at"`
}

// Ledger is an in-process double-entry ledger. Safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[string]Account
	postings []Posting
	seen     map[string]bool
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		accounts: make(map[string]Account),
		seen:     make(map[string]bool),
	}
}

// CreateAccount registers an account. Duplicate ids are an error.
func (l *Ledger) CreateAccount(a Account) error {
	if a.ID == "" {
		return fmt.Errorf("ledger: empty account id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.accounts[a.ID]; dup {
		return fmt.Errorf("ledger: duplicate account id %q", a.ID)
	}
	l.accounts[a.ID] = a
	return nil
}

// Post appends a posting. Posting ids double as idempotency keys: a second
// append with an id already in the log is rejected, never applied twice.
func (l *Ledger) Post(p Posting) error {
	if err := validatePosting(p); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seen[p.ID] {
		return fmt.Errorf("ledger: duplicate posting id %q", p.ID)
	}
	if _, ok := l.accounts[p.DebitAccountID]; !ok {
		return fmt.Errorf("ledger: unknown debit account %q", p.DebitAccountID)
	}
	if _, ok := l.accounts[p.CreditAccountID]; !ok {
		return fmt.Errorf("ledger: unknown credit account %q", p.CreditAccountID)
	}

	l.postings = append(l.postings, p)
	l.seen[p.ID] = true
	return nil
}

// Balance folds the posting log for one account: debits increase, credits
// decrease. Derived, never stored.
func (l *Ledger) Balance(accountID string) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.accounts[accountID]; !ok {
		return decimal.Zero, fmt.Errorf("ledger: unknown account %q", accountID)
	}

	total := decimal.Zero
	for _, p := range l.postings {
		amt, err := decimal.NewFromString(p.Amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("ledger: posting %q: %w", p.ID, err)
		}
		if p.DebitAccountID == accountID {
			total = total.Add(amt)
		}
		if p.CreditAccountID == accountID {
			total = total.Sub(amt)
		}
	}
	return total, nil
}

// Entries derives the reconcilable view of the posting log: each posting
// yields a debit entry and a credit entry carrying the posting's
// correlating identifiers.
func (l *Ledger) Entries() []recon.ReconcilableLedgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]recon.ReconcilableLedgerEntry, 0, len(l.postings)*2)
	for _, p := range l.postings {
		money := recon.Money{Value: p.Amount, Currency: p.Currency, Decimals: p.Decimals}
		postedAt := p.PostedAt
		entries = append(entries, recon.ReconcilableLedgerEntry{
			ID:        p.ID + ":d",
			AccountID: p.DebitAccountID,
			Direction: recon.DirectionDebit,
			Money:     money,
			IntentID:  p.IntentID,
			TxHash:    p.TxHash,
			PostedAt:  &postedAt,
		}, recon.ReconcilableLedgerEntry{
			ID:        p.ID + ":c",
			AccountID: p.CreditAccountID,
			Direction: recon.DirectionCredit,
			Money:     money,
			IntentID:  p.IntentID,
			TxHash:    p.TxHash,
			PostedAt:  &postedAt,
		})
	}
	return entries
}

// Accounts returns all accounts sorted by id.
func (l *Ledger) Accounts() []Account {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Postings returns the posting log in append order.
func (l *Ledger) Postings() []Posting {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Posting, len(l.postings))
	copy(out, l.postings)
	return out
}

func validatePosting(p Posting) error {
	if p.ID == "" {
		return fmt.Errorf("ledger: empty posting id")
	}
	if p.DebitAccountID == p.CreditAccountID {
		return fmt.Errorf("ledger: posting %q debits and credits the same account", p.ID)
	}
	amt, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return fmt.Errorf("ledger: posting %q: unparseable amount %q", p.ID, p.Amount)
	}
	if !amt.IsPositive() {
		return fmt.Errorf("ledger: posting %q: amount must be positive, got %s", p.ID, p.Amount)
	}
	return nil
}
