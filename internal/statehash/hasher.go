// Package statehash computes the combined content-addressed digest over
// subsystem snapshots and proves, by replay, that persisted snapshots are
// losslessly replayable.
//
// Only structural fields participate in hashing. Wall-clock-only fields
// like a snapshot's creation timestamp are stripped first, so two
// snapshots of the same logical state always hash identically no matter
// when they were taken.
package statehash

import (
	"fmt"
	"time"

	"github.com/mcp-tool-shop-org/attestia/internal/attest"
	"github.com/mcp-tool-shop-org/attestia/internal/canonical"
	"github.com/mcp-tool-shop-org/attestia/internal/ledger"
)

// Subsystem names used in hash attribution.
const (
	SubsystemLedger    = "ledger"
	SubsystemRegistrum = "registrum"
	SubsystemGlobal    = "global"
)

// SubsystemHashes carries the per-subsystem digests that feed the combined
// hash. Chains is present only when per-chain hashes were supplied.
type SubsystemHashes struct {
	Ledger    string            `json:"ledger"`
	Registrum string            `json:"registrum"`
	Chains    map[string]string `json:"chains,omitempty"`
}

// GlobalStateHash is the combined content-addressed digest over all
// subsystem snapshots. Recomputed on demand, never persisted by the core.
type GlobalStateHash struct {
	Hash       string          `json:"hash"`
	ComputedAt time.Time       `json:"computed_at"`
	Subsystems SubsystemHashes `json:"subsystems"`
}

// structuralLedger is a ledger snapshot with wall-clock fields stripped.
type structuralLedger struct {
	Accounts []ledger.Account `json:"accounts"`
	Postings []ledger.Posting `json:"postings"`
}

// structuralRegistrar is a registrar snapshot with wall-clock fields
// stripped.
type structuralRegistrar struct {
	States   []attest.RegisteredState `json:"states"`
	Lineages map[string]string        `json:"lineages"`
}

// ComputeGlobalStateHash canonicalizes and hashes each subsystem snapshot
// independently, then hashes the combining object into one digest.
//
// The `chains` key is added to the combining object only when chainHashes
// is non-empty, so the combined digest of a deployment with no chain
// hashes is unchanged by this parameter existing.
func ComputeGlobalStateHash(ledgerSnap *ledger.Snapshot, registrarSnap *attest.RegistrarSnapshot, chainHashes map[string]string) (*GlobalStateHash, error) {
	if ledgerSnap == nil {
		return nil, fmt.Errorf("global state hash: nil ledger snapshot")
	}
	if registrarSnap == nil {
		return nil, fmt.Errorf("global state hash: nil registrar snapshot")
	}

	// Nil and empty collections must hash identically: both serialize as
	// the empty collection, never null.
	sl := structuralLedger{Accounts: ledgerSnap.Accounts, Postings: ledgerSnap.Postings}
	if sl.Accounts == nil {
		sl.Accounts = []ledger.Account{}
	}
	if sl.Postings == nil {
		sl.Postings = []ledger.Posting{}
	}
	ledgerHash, err := canonical.Hash(canonical.DomainSubsystem, sl)
	if err != nil {
		return nil, fmt.Errorf("global state hash: ledger: %w", err)
	}

	sr := structuralRegistrar{States: registrarSnap.States, Lineages: registrarSnap.Lineages}
	if sr.States == nil {
		sr.States = []attest.RegisteredState{}
	}
	if sr.Lineages == nil {
		sr.Lineages = map[string]string{}
	}
	registrarHash, err := canonical.Hash(canonical.DomainSubsystem, sr)
	if err != nil {
		return nil, fmt.Errorf("global state hash: registrum: %w", err)
	}

	combining := map[string]any{
		"ledger":    ledgerHash,
		"registrum": registrarHash,
	}
	if len(chainHashes) > 0 {
		chains := make(map[string]any, len(chainHashes))
		for k, v := range chainHashes {
			chains[k] = v
		}
		combining["chains"] = chains
	}

	combined, err := canonical.Hash(canonical.DomainGlobal, combining)
	if err != nil {
		return nil, fmt.Errorf("global state hash: combine: %w", err)
	}

	sub := SubsystemHashes{Ledger: ledgerHash, Registrum: registrarHash}
	if len(chainHashes) > 0 {
		sub.Chains = make(map[string]string, len(chainHashes))
		for k, v := range chainHashes {
			sub.Chains[k] = v
		}
	}

	return &GlobalStateHash{
		Hash:       combined,
		ComputedAt: time.Now().UTC(),
		Subsystems: sub,
	}, nil
}
