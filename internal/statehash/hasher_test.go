package statehash

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-tool-shop-org/attestia/internal/attest"
	"github.com/mcp-tool-shop-org/attestia/internal/ledger"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func testLedgerSnapshot(t *testing.T) *ledger.Snapshot {
	t.Helper()
	l := ledger.New()
	require.NoError(t, l.CreateAccount(ledger.Account{ID: "cash", Name: "Cash", Currency: "USD"}))
	require.NoError(t, l.CreateAccount(ledger.Account{ID: "revenue", Name: "Revenue", Currency: "USD"}))
	require.NoError(t, l.Post(ledger.Posting{
		ID:              "p1",
		DebitAccountID:  "cash",
		CreditAccountID: "revenue",
		Amount:          "100.50",
		Currency:        "USD",
		Decimals:        2,
		IntentID:        "intent-1",
		TxHash:          "0xabc",
		PostedAt:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	snap, err := l.Snapshot()
	require.NoError(t, err)
	return snap
}

func testRegistrarSnapshot(t *testing.T) *attest.RegistrarSnapshot {
	t.Helper()
	r := attest.NewRegistrar()
	res, err := r.Register(context.Background(), attest.Transition{
		Lineage: "attestation:auditor-1",
		To:      attest.State{ID: "state-1", IsRoot: true, Fields: map[string]any{"seq": "1"}},
	})
	require.NoError(t, err)
	require.Equal(t, attest.ResultAccepted, res.Kind)
	snap, err := r.Snapshot()
	require.NoError(t, err)
	return snap
}

func TestComputeGlobalStateHashShape(t *testing.T) {
	gsh, err := ComputeGlobalStateHash(testLedgerSnapshot(t), testRegistrarSnapshot(t), nil)
	require.NoError(t, err)

	assert.Regexp(t, hexDigest, gsh.Hash)
	assert.Regexp(t, hexDigest, gsh.Subsystems.Ledger)
	assert.Regexp(t, hexDigest, gsh.Subsystems.Registrum)
	assert.Nil(t, gsh.Subsystems.Chains)
	assert.False(t, gsh.ComputedAt.IsZero())

	assert.NotEqual(t, gsh.Subsystems.Ledger, gsh.Subsystems.Registrum)
	assert.NotEqual(t, gsh.Hash, gsh.Subsystems.Ledger)
}

func TestComputeGlobalStateHashDeterministic(t *testing.T) {
	ls := testLedgerSnapshot(t)
	rs := testRegistrarSnapshot(t)

	a, err := ComputeGlobalStateHash(ls, rs, nil)
	require.NoError(t, err)
	b, err := ComputeGlobalStateHash(ls, rs, nil)
	require.NoError(t, err)

	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, a.Subsystems, b.Subsystems)
}

func TestComputeGlobalStateHashStripsTimestamps(t *testing.T) {
	ls := testLedgerSnapshot(t)
	rs := testRegistrarSnapshot(t)

	a, err := ComputeGlobalStateHash(ls, rs, nil)
	require.NoError(t, err)

	// Same logical state captured at a different wall-clock time.
	lsLater := *ls
	lsLater.CreatedAt = ls.CreatedAt.Add(48 * time.Hour)
	rsLater := *rs
	rsLater.CreatedAt = rs.CreatedAt.Add(48 * time.Hour)

	b, err := ComputeGlobalStateHash(&lsLater, &rsLater, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash)
}

func TestComputeGlobalStateHashDetectsTamper(t *testing.T) {
	ls := testLedgerSnapshot(t)
	rs := testRegistrarSnapshot(t)

	before, err := ComputeGlobalStateHash(ls, rs, nil)
	require.NoError(t, err)

	tampered := *ls
	tampered.Postings = make([]ledger.Posting, len(ls.Postings))
	copy(tampered.Postings, ls.Postings)
	tampered.Postings[0].Amount = "100.51"

	after, err := ComputeGlobalStateHash(&tampered, rs, nil)
	require.NoError(t, err)

	assert.NotEqual(t, before.Subsystems.Ledger, after.Subsystems.Ledger)
	assert.Equal(t, before.Subsystems.Registrum, after.Subsystems.Registrum)
	assert.NotEqual(t, before.Hash, after.Hash)
}

func TestComputeGlobalStateHashChainsKey(t *testing.T) {
	ls := testLedgerSnapshot(t)
	rs := testRegistrarSnapshot(t)

	without, err := ComputeGlobalStateHash(ls, rs, nil)
	require.NoError(t, err)
	withEmpty, err := ComputeGlobalStateHash(ls, rs, map[string]string{})
	require.NoError(t, err)
	withChains, err := ComputeGlobalStateHash(ls, rs, map[string]string{
		"ethereum": "deadbeef",
	})
	require.NoError(t, err)

	// An empty chain map must not enter the combining object.
	assert.Equal(t, without.Hash, withEmpty.Hash)
	assert.Nil(t, withEmpty.Subsystems.Chains)

	assert.NotEqual(t, without.Hash, withChains.Hash)
	assert.Equal(t, map[string]string{"ethereum": "deadbeef"}, withChains.Subsystems.Chains)
	assert.Equal(t, without.Subsystems.Ledger, withChains.Subsystems.Ledger)
	assert.Equal(t, without.Subsystems.Registrum, withChains.Subsystems.Registrum)
}

func TestComputeGlobalStateHashNilEqualsEmpty(t *testing.T) {
	nilSnaps := &ledger.Snapshot{CreatedAt: time.Now()}
	emptySnaps := &ledger.Snapshot{
		CreatedAt: time.Now(),
		Accounts:  []ledger.Account{},
		Postings:  []ledger.Posting{},
	}
	nilReg := &attest.RegistrarSnapshot{CreatedAt: time.Now()}
	emptyReg := &attest.RegistrarSnapshot{
		CreatedAt: time.Now(),
		States:    []attest.RegisteredState{},
		Lineages:  map[string]string{},
	}

	a, err := ComputeGlobalStateHash(nilSnaps, nilReg, nil)
	require.NoError(t, err)
	b, err := ComputeGlobalStateHash(emptySnaps, emptyReg, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash)
}

func TestComputeGlobalStateHashNilSnapshots(t *testing.T) {
	_, err := ComputeGlobalStateHash(nil, testRegistrarSnapshot(t), nil)
	assert.Error(t, err)

	_, err = ComputeGlobalStateHash(testLedgerSnapshot(t), nil, nil)
	assert.Error(t, err)
}
