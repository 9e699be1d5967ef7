// Package attest turns reconciliation reports into immutable, chained
// attestation records registered against an append-only state registrar.
//
// Each attestor owns one lineage, keyed by a fixed state id derived from
// the attestor id. The lineage is a singly linked chain: every attestation
// after the first points `from` at the previously registered state, never
// forking. This is the one place in the core where a failure is surfaced
// as an error instead of report data.
package attest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcp-tool-shop-org/attestia/internal/canonical"
	"github.com/mcp-tool-shop-org/attestia/internal/recon"
)

// LineageKey derives the fixed lineage id for an attestor.
func LineageKey(attestorID string) string {
	return "attestation:" + attestorID
}

// Attestor registers reconciliation reports as state transitions.
//
// Concurrent Attest calls on the same instance are serialized by the
// mutex: two transitions must never race to claim the same `from` pointer.
// Attestors with different ids are fully independent and share nothing.
type Attestor struct {
	mu          sync.Mutex
	id          string
	lineage     string
	registrar   Registrar
	lastStateID string
	now         func() time.Time
	newID       func() string
}

// AttestorOption customizes an Attestor, mainly for deterministic tests.
type AttestorOption func(*Attestor)

// WithClock fixes the attestation timestamp source.
func WithClock(now func() time.Time) AttestorOption {
	return func(a *Attestor) { a.now = now }
}

// WithIDFunc fixes the attestation record id source.
func WithIDFunc(newID func() string) AttestorOption {
	return func(a *Attestor) { a.newID = newID }
}

// NewAttestor binds an attestor id to a registrar.
func NewAttestor(attestorID string, registrar Registrar, opts ...AttestorOption) *Attestor {
	a := &Attestor{
		id:        attestorID,
		lineage:   LineageKey(attestorID),
		registrar: registrar,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Attest registers a report as the next state in this attestor's lineage
// and returns the immutable attestation record.
//
// The registrar's acceptance is delegated entirely: a rejection comes back
// as a RejectionError enumerating every violation. The last-state pointer
// is advanced only after a successful registration, never speculatively.
func (a *Attestor) Attest(ctx context.Context, report *recon.ReconciliationReport) (*AttestationRecord, error) {
	reportHash, err := canonical.Hash(canonical.DomainReport, report)
	if err != nil {
		return nil, fmt.Errorf("attest: hash report: %w", err)
	}

	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("attest: marshal report: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	attestedAt := a.now().UTC()
	fields := map[string]any{
		"report_id":      report.ID,
		"attestor_id":    a.id,
		"all_reconciled": report.Summary.AllReconciled,
		"matched_count":  report.Summary.MatchedCount,
		"mismatch_count": report.Summary.MismatchCount,
		"missing_count":  report.Summary.MissingCount,
		"orphan_count":   report.Summary.OrphanCount,
		"report_hash":    reportHash,
		"attested_at":    attestedAt.Format(time.RFC3339Nano),
	}

	stateID, err := canonical.Hash(canonical.DomainState, map[string]any{
		"lineage": a.lineage,
		"from":    a.lastStateID,
		"fields":  fields,
	})
	if err != nil {
		return nil, fmt.Errorf("attest: hash state: %w", err)
	}

	transition := Transition{
		Lineage: a.lineage,
		From:    a.lastStateID,
		To: State{
			ID:     stateID,
			IsRoot: a.lastStateID == "",
			Fields: fields,
			Data:   data,
		},
	}

	result, err := a.registrar.Register(ctx, transition)
	if err != nil {
		return nil, fmt.Errorf("attest: register: %w", err)
	}
	if result.Kind == ResultRejected {
		return nil, &RejectionError{AttestorID: a.id, Violations: result.Violations}
	}

	a.lastStateID = result.StateID

	return &AttestationRecord{
		ID:               a.newID(),
		ReconciliationID: report.ID,
		AllReconciled:    report.Summary.AllReconciled,
		Summary:          report.Summary,
		AttestedBy:       a.id,
		AttestedAt:       attestedAt,
		ReportHash:       reportHash,
		StateID:          result.StateID,
	}, nil
}

// LastStateID returns the head of this attestor's lineage, or empty before
// the first successful attestation.
func (a *Attestor) LastStateID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastStateID
}
