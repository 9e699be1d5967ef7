package statehash

import (
	"context"
	"fmt"

	"github.com/mcp-tool-shop-org/attestia/internal/attest"
	"github.com/mcp-tool-shop-org/attestia/internal/ledger"
)

// Verdict is the outcome of a verification.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictFail Verdict = "FAIL"
)

// Discrepancy attributes one hash divergence to a subsystem. Ledger and
// registrar divergences are reported independently from the combined
// divergence so a caller can pinpoint which subsystem failed to round-trip.
type Discrepancy struct {
	Subsystem   string `json:"subsystem"`
	Expected    string `json:"expected"`
	Actual      string `json:"actual"`
	Description string `json:"description"`
}

// ReplayResult is the verdict of a replay verification.
type ReplayResult struct {
	Verdict       Verdict          `json:"verdict"`
	OriginalHash  *GlobalStateHash `json:"original_hash"`
	ReplayedHash  *GlobalStateHash `json:"replayed_hash"`
	Discrepancies []Discrepancy    `json:"discrepancies,omitempty"`
}

// VerificationResult is the verdict of the non-replaying fast path.
type VerificationResult struct {
	Verdict       Verdict          `json:"verdict"`
	ComputedHash  *GlobalStateHash `json:"computed_hash"`
	ExpectedHash  string           `json:"expected_hash"`
	Discrepancies []Discrepancy    `json:"discrepancies,omitempty"`
}

// Verifier proves snapshot losslessness by reconstructing subsystems from
// their snapshots and re-hashing. The restore functions are the external
// restore contracts; tests substitute them to simulate lossy collaborators.
//
// Each verification builds fresh, locally owned instances; nothing is
// shared across calls and no locking is needed.
type Verifier struct {
	RestoreLedger    func(*ledger.Snapshot) (*ledger.Ledger, error)
	RestoreRegistrar func(*attest.RegistrarSnapshot, attest.RestoreOptions) (*attest.MemoryRegistrar, error)
}

// NewVerifier returns a Verifier bound to the reference restore contracts.
func NewVerifier() *Verifier {
	return &Verifier{
		RestoreLedger:    ledger.FromSnapshot,
		RestoreRegistrar: attest.RegistrarFromSnapshot,
	}
}

// VerifyByReplay computes the original digest, reconstructs fresh subsystem
// instances purely from the snapshots, re-hashes, and diffs.
//
// The verdict is PASS iff no comparison step produced a discrepancy. An
// expectedHash, when non-empty, is additionally compared to the original
// digest. A mismatch is the expected, correctly reported outcome, never an
// error; only a restore contract failure propagates as one.
func (v *Verifier) VerifyByReplay(ctx context.Context, ledgerSnap *ledger.Snapshot, registrarSnap *attest.RegistrarSnapshot, expectedHash string) (*ReplayResult, error) {
	original, err := ComputeGlobalStateHash(ledgerSnap, registrarSnap, nil)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	freshLedger, err := v.RestoreLedger(ledgerSnap)
	if err != nil {
		return nil, fmt.Errorf("replay: restore ledger: %w", err)
	}
	freshLedgerSnap, err := freshLedger.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("replay: snapshot restored ledger: %w", err)
	}

	freshRegistrar, err := v.RestoreRegistrar(registrarSnap, attest.RestoreOptions{Mode: attest.RestoreStrict})
	if err != nil {
		return nil, fmt.Errorf("replay: restore registrar: %w", err)
	}
	freshRegistrarSnap, err := freshRegistrar.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("replay: snapshot restored registrar: %w", err)
	}

	replayed, err := ComputeGlobalStateHash(freshLedgerSnap, freshRegistrarSnap, nil)
	if err != nil {
		return nil, err
	}

	var discrepancies []Discrepancy
	diff := func(subsystem, expected, actual, description string) {
		if expected != actual {
			discrepancies = append(discrepancies, Discrepancy{
				Subsystem:   subsystem,
				Expected:    expected,
				Actual:      actual,
				Description: description,
			})
		}
	}

	diff(SubsystemLedger, original.Subsystems.Ledger, replayed.Subsystems.Ledger,
		"ledger snapshot did not survive a restore round-trip")
	diff(SubsystemRegistrum, original.Subsystems.Registrum, replayed.Subsystems.Registrum,
		"registrar snapshot did not survive a restore round-trip")
	diff(SubsystemGlobal, original.Hash, replayed.Hash,
		"combined digest diverged after replay")
	if expectedHash != "" {
		diff(SubsystemGlobal, expectedHash, original.Hash,
			"original digest does not match the expected hash")
	}

	verdict := VerdictPass
	if len(discrepancies) > 0 {
		verdict = VerdictFail
	}

	return &ReplayResult{
		Verdict:       verdict,
		OriginalHash:  original,
		ReplayedHash:  replayed,
		Discrepancies: discrepancies,
	}, nil
}

// VerifyHash is the non-replaying fast path: it trusts the snapshots and
// only checks that their current digest matches the expected one.
func (v *Verifier) VerifyHash(ledgerSnap *ledger.Snapshot, registrarSnap *attest.RegistrarSnapshot, expectedHash string) (*VerificationResult, error) {
	computed, err := ComputeGlobalStateHash(ledgerSnap, registrarSnap, nil)
	if err != nil {
		return nil, err
	}

	result := &VerificationResult{
		Verdict:      VerdictPass,
		ComputedHash: computed,
		ExpectedHash: expectedHash,
	}
	if computed.Hash != expectedHash {
		result.Verdict = VerdictFail
		result.Discrepancies = []Discrepancy{{
			Subsystem:   SubsystemGlobal,
			Expected:    expectedHash,
			Actual:      computed.Hash,
			Description: "combined digest does not match the expected hash",
		}}
	}
	return result, nil
}
