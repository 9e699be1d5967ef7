package statehash

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-tool-shop-org/attestia/internal/attest"
	"github.com/mcp-tool-shop-org/attestia/internal/ledger"
)

func TestVerifyByReplayPass(t *testing.T) {
	v := NewVerifier()
	res, err := v.VerifyByReplay(context.Background(), testLedgerSnapshot(t), testRegistrarSnapshot(t), "")
	require.NoError(t, err)

	assert.Equal(t, VerdictPass, res.Verdict)
	assert.Empty(t, res.Discrepancies)
	require.NotNil(t, res.OriginalHash)
	require.NotNil(t, res.ReplayedHash)
	assert.Equal(t, res.OriginalHash.Hash, res.ReplayedHash.Hash)
}

func TestVerifyByReplayExpectedHashMatch(t *testing.T) {
	ls := testLedgerSnapshot(t)
	rs := testRegistrarSnapshot(t)
	gsh, err := ComputeGlobalStateHash(ls, rs, nil)
	require.NoError(t, err)

	res, err := NewVerifier().VerifyByReplay(context.Background(), ls, rs, gsh.Hash)
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, res.Verdict)
}

func TestVerifyByReplayExpectedHashMismatchIsVerdict(t *testing.T) {
	res, err := NewVerifier().VerifyByReplay(context.Background(), testLedgerSnapshot(t), testRegistrarSnapshot(t),
		"0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)

	assert.Equal(t, VerdictFail, res.Verdict)
	require.Len(t, res.Discrepancies, 1)
	assert.Equal(t, SubsystemGlobal, res.Discrepancies[0].Subsystem)
	assert.Contains(t, res.Discrepancies[0].Description, "expected hash")
}

func TestVerifyByReplayLossyLedgerRestore(t *testing.T) {
	v := NewVerifier()
	v.RestoreLedger = func(snap *ledger.Snapshot) (*ledger.Ledger, error) {
		// Simulate a restore contract that silently drops the posting log.
		lossy := *snap
		lossy.Postings = nil
		return ledger.FromSnapshot(&lossy)
	}

	res, err := v.VerifyByReplay(context.Background(), testLedgerSnapshot(t), testRegistrarSnapshot(t), "")
	require.NoError(t, err)

	assert.Equal(t, VerdictFail, res.Verdict)
	require.Len(t, res.Discrepancies, 2)
	assert.Equal(t, SubsystemLedger, res.Discrepancies[0].Subsystem)
	assert.Equal(t, SubsystemGlobal, res.Discrepancies[1].Subsystem)
}

func TestVerifyByReplayLossyRegistrarRestore(t *testing.T) {
	v := NewVerifier()
	v.RestoreRegistrar = func(*attest.RegistrarSnapshot, attest.RestoreOptions) (*attest.MemoryRegistrar, error) {
		return attest.NewRegistrar(), nil
	}

	res, err := v.VerifyByReplay(context.Background(), testLedgerSnapshot(t), testRegistrarSnapshot(t), "")
	require.NoError(t, err)

	assert.Equal(t, VerdictFail, res.Verdict)
	require.Len(t, res.Discrepancies, 2)
	assert.Equal(t, SubsystemRegistrum, res.Discrepancies[0].Subsystem)
	assert.Equal(t, SubsystemGlobal, res.Discrepancies[1].Subsystem)
}

func TestVerifyByReplayRestoreErrorPropagates(t *testing.T) {
	boom := errors.New("backend unavailable")
	v := NewVerifier()
	v.RestoreLedger = func(*ledger.Snapshot) (*ledger.Ledger, error) {
		return nil, boom
	}

	_, err := v.VerifyByReplay(context.Background(), testLedgerSnapshot(t), testRegistrarSnapshot(t), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestVerifyByReplayTamperedRegistrarSnapshot(t *testing.T) {
	rs := testRegistrarSnapshot(t)
	// Point the lineage head at a state that was never registered. The
	// strict restore replays through the registrar's write path, so the
	// forged head surfaces as a restore failure rather than a silent pass.
	rs.Lineages["attestation:auditor-1"] = "forged-head"

	_, err := NewVerifier().VerifyByReplay(context.Background(), testLedgerSnapshot(t), rs, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restore registrar")
}

func TestVerifyByReplayCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewVerifier().VerifyByReplay(ctx, testLedgerSnapshot(t), testRegistrarSnapshot(t), "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifyHashPass(t *testing.T) {
	ls := testLedgerSnapshot(t)
	rs := testRegistrarSnapshot(t)
	gsh, err := ComputeGlobalStateHash(ls, rs, nil)
	require.NoError(t, err)

	res, err := NewVerifier().VerifyHash(ls, rs, gsh.Hash)
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, res.Verdict)
	assert.Empty(t, res.Discrepancies)
	assert.Equal(t, gsh.Hash, res.ComputedHash.Hash)
}

func TestVerifyHashFail(t *testing.T) {
	res, err := NewVerifier().VerifyHash(testLedgerSnapshot(t), testRegistrarSnapshot(t),
		"0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)

	assert.Equal(t, VerdictFail, res.Verdict)
	require.Len(t, res.Discrepancies, 1)
	assert.Equal(t, SubsystemGlobal, res.Discrepancies[0].Subsystem)
}
