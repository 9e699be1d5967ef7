package attest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mcp-tool-shop-org/attestia/internal/recon"
)

// State is one immutable entry in a registrar lineage. Fields carry the
// structural facts the state asserts; Data is an opaque payload (for
// attestations, the full reconciliation report) kept as raw JSON so it
// round-trips byte-exact through snapshots.
//
// Field values must stay within the canonical value set (strings, integers,
// booleans); producers decode snapshots with json.Number so integers never
// degrade to floats on the way back in.
type State struct {
	ID     string         `json:"id"`
	IsRoot bool           `json:"is_root,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Transition proposes appending a new state to a lineage. From is the id of
// the lineage's current head, empty only for the root transition.
type Transition struct {
	Lineage string `json:"lineage"`
	From    string `json:"from,omitempty"`
	To      State  `json:"to"`
}

// ResultKind tags a registration outcome.
type ResultKind string

const (
	ResultAccepted ResultKind = "accepted"
	ResultRejected ResultKind = "rejected"
)

// Violation is one structural invariant the registrar found broken.
type Violation struct {
	Message string `json:"message"`
}

// RegistrationResult is the registrar's verdict on a transition. A rejected
// result is data, not an error: the transport between attestor and
// registrar worked, the transition itself was invalid.
type RegistrationResult struct {
	Kind       ResultKind  `json:"kind"`
	StateID    string      `json:"state_id,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
}

// Registrar is the external append-only state registrar contract. The
// attestation core treats it as opaque; alternate backends substitute
// without touching the attestor.
type Registrar interface {
	Register(ctx context.Context, t Transition) (*RegistrationResult, error)
	Snapshot() (*RegistrarSnapshot, error)
}

// RegistrarSnapshot is the lossless export of a registrar. CreatedAt is
// wall clock only and is stripped before hashing; States keep registration
// order; Lineages maps each lineage key to its head state id.
type RegistrarSnapshot struct {
	CreatedAt time.Time         `json:"created_at"`
	States    []RegisteredState `json:"states"`
	Lineages  map[string]string `json:"lineages"`
}

// RegisteredState pairs a state with the lineage it was appended to.
type RegisteredState struct {
	Lineage string `json:"lineage"`
	From    string `json:"from,omitempty"`
	State   State  `json:"state"`
}

// AttestationRecord is the immutable audit entry produced by a successful
// attestation. Never mutated after return.
type AttestationRecord struct {
	ID               string                      `json:"id"`
	ReconciliationID string                      `json:"reconciliation_id"`
	AllReconciled    bool                        `json:"all_reconciled"`
	Summary          recon.ReconciliationSummary `json:"summary"`
	AttestedBy       string                      `json:"attested_by"`
	AttestedAt       time.Time                   `json:"attested_at"`
	ReportHash       string                      `json:"report_hash"`
	StateID          string                      `json:"state_id"`
}
