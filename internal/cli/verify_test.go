package cli

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-tool-shop-org/attestia/internal/attest"
	"github.com/mcp-tool-shop-org/attestia/internal/chaincfg"
	"github.com/mcp-tool-shop-org/attestia/internal/ledger"
	"github.com/mcp-tool-shop-org/attestia/internal/recon"
	"github.com/mcp-tool-shop-org/attestia/internal/statehash"
	"github.com/mcp-tool-shop-org/attestia/internal/testutil"
)

// snapshotFiles builds a small ledger and registrar, snapshots both, and
// writes them as JSON files the snapshot commands can load.
func snapshotFiles(t *testing.T, dir string) (ledgerPath, registrarPath string) {
	t.Helper()

	l := ledger.New()
	require.NoError(t, l.CreateAccount(ledger.Account{ID: "cash", Name: "Cash", Currency: "USD"}))
	require.NoError(t, l.CreateAccount(ledger.Account{ID: "revenue", Name: "Revenue", Currency: "USD"}))
	require.NoError(t, l.Post(ledger.Posting{
		ID:              "p1",
		DebitAccountID:  "cash",
		CreditAccountID: "revenue",
		Amount:          "42.00",
		Currency:        "USD",
		Decimals:        2,
		PostedAt:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	ledgerSnap, err := l.Snapshot()
	require.NoError(t, err)

	r := attest.NewRegistrar()
	_, err = r.Register(context.Background(), attest.Transition{
		Lineage: "attestation:controller-1",
		To:      attest.State{ID: "state-1", IsRoot: true},
	})
	require.NoError(t, err)
	registrarSnap, err := r.Snapshot()
	require.NoError(t, err)

	return writeJSON(t, dir, "ledger.json", ledgerSnap),
		writeJSON(t, dir, "registrar.json", registrarSnap)
}

// globalHash runs the hash command and extracts the combined digest from
// its text output.
func globalHash(t *testing.T, ledgerPath, registrarPath string) string {
	t.Helper()
	out, err := execute(t, "hash", "--ledger", ledgerPath, "--registrar", registrarPath)
	require.NoError(t, err)

	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "Global:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	t.Fatalf("no global hash in output:\n%s", out)
	return ""
}

func TestHashCommand(t *testing.T) {
	ledgerPath, registrarPath := snapshotFiles(t, t.TempDir())

	out, err := execute(t, "hash", "--ledger", ledgerPath, "--registrar", registrarPath)
	require.NoError(t, err)

	hex := regexp.MustCompile(`[0-9a-f]{64}`)
	assert.Contains(t, out, "Global:")
	assert.Contains(t, out, "Ledger:")
	assert.Contains(t, out, "Registrum:")
	assert.GreaterOrEqual(t, len(hex.FindAllString(out, -1)), 3)
}

func TestHashCommandStableAcrossRuns(t *testing.T) {
	ledgerPath, registrarPath := snapshotFiles(t, t.TempDir())

	first := globalHash(t, ledgerPath, registrarPath)
	second := globalHash(t, ledgerPath, registrarPath)
	assert.Equal(t, first, second)
}

func TestHashCommandMissingSnapshot(t *testing.T) {
	_, registrarPath := snapshotFiles(t, t.TempDir())

	_, err := execute(t, "hash", "--ledger", "absent.json", "--registrar", registrarPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSnapshotRoundTripPreservesHashes(t *testing.T) {
	dir := t.TempDir()

	l := ledger.New()
	require.NoError(t, l.CreateAccount(ledger.Account{ID: "cash", Name: "Cash", Currency: "USD"}))
	require.NoError(t, l.CreateAccount(ledger.Account{ID: "revenue", Name: "Revenue", Currency: "USD"}))
	require.NoError(t, l.Post(ledger.Posting{
		ID:              "p1",
		DebitAccountID:  "cash",
		CreditAccountID: "revenue",
		Amount:          "42.00",
		Currency:        "USD",
		Decimals:        2,
		PostedAt:        testutil.BaseTime,
	}))
	ledgerSnap, err := l.Snapshot()
	require.NoError(t, err)

	// Attest a real report so the registered state fields carry integer
	// counts. Reloading the snapshot from disk must preserve those numbers
	// exactly, or re-hashing the restored states diverges.
	intent, entry, event := testutil.MatchedTriple("1")
	reconciler := recon.NewReconciler(recon.NewCrossChainRules(chaincfg.Default()))
	report := reconciler.Reconcile(
		[]recon.ReconcilableIntent{intent},
		[]recon.ReconcilableLedgerEntry{entry},
		[]recon.ReconcilableChainEvent{event},
		nil)

	registrar := attest.NewRegistrar()
	attestor := attest.NewAttestor("controller-1", registrar)
	_, err = attestor.Attest(context.Background(), report)
	require.NoError(t, err)
	registrarSnap, err := registrar.Snapshot()
	require.NoError(t, err)

	direct, err := statehash.ComputeGlobalStateHash(ledgerSnap, registrarSnap, nil)
	require.NoError(t, err)

	ledgerPath := writeJSON(t, dir, "ledger.json", ledgerSnap)
	registrarPath := writeJSON(t, dir, "registrar.json", registrarSnap)

	loadedLedger, err := LoadLedgerSnapshot(ledgerPath)
	require.NoError(t, err)
	loadedRegistrar, err := LoadRegistrarSnapshot(registrarPath)
	require.NoError(t, err)

	reloaded, err := statehash.ComputeGlobalStateHash(loadedLedger, loadedRegistrar, nil)
	require.NoError(t, err)
	assert.Equal(t, direct.Subsystems.Ledger, reloaded.Subsystems.Ledger)
	assert.Equal(t, direct.Subsystems.Registrum, reloaded.Subsystems.Registrum)
	assert.Equal(t, direct.Hash, reloaded.Hash)

	result, err := statehash.NewVerifier().VerifyByReplay(
		context.Background(), loadedLedger, loadedRegistrar, direct.Hash)
	require.NoError(t, err)
	assert.Equal(t, statehash.VerdictPass, result.Verdict)
}

func TestVerifyCommandPass(t *testing.T) {
	ledgerPath, registrarPath := snapshotFiles(t, t.TempDir())
	expected := globalHash(t, ledgerPath, registrarPath)

	out, err := execute(t, "verify",
		"--ledger", ledgerPath, "--registrar", registrarPath, "--expected", expected)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ PASS")
}

func TestVerifyCommandFail(t *testing.T) {
	ledgerPath, registrarPath := snapshotFiles(t, t.TempDir())

	out, err := execute(t, "verify",
		"--ledger", ledgerPath, "--registrar", registrarPath,
		"--expected", strings.Repeat("0", 64))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ FAIL")
}

func TestReplayCommandPass(t *testing.T) {
	ledgerPath, registrarPath := snapshotFiles(t, t.TempDir())

	out, err := execute(t, "replay", "--ledger", ledgerPath, "--registrar", registrarPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ PASS")
}

func TestReplayCommandWithExpectedHash(t *testing.T) {
	ledgerPath, registrarPath := snapshotFiles(t, t.TempDir())
	expected := globalHash(t, ledgerPath, registrarPath)

	out, err := execute(t, "replay",
		"--ledger", ledgerPath, "--registrar", registrarPath, "--expected", expected)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ PASS")
}

func TestReplayCommandExpectedMismatch(t *testing.T) {
	ledgerPath, registrarPath := snapshotFiles(t, t.TempDir())

	out, err := execute(t, "replay",
		"--ledger", ledgerPath, "--registrar", registrarPath,
		"--expected", strings.Repeat("0", 64))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ FAIL")
}

func TestReplayCommandTamperedSnapshot(t *testing.T) {
	dir := t.TempDir()
	ledgerPath, _ := snapshotFiles(t, dir)

	// A registrar snapshot whose lineage head was never registered fails
	// the strict restore, which is a command error, not a verdict.
	tampered := writeJSON(t, dir, "tampered.json", &attest.RegistrarSnapshot{
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		States: []attest.RegisteredState{
			{Lineage: "attestation:controller-1", State: attest.State{ID: "state-1", IsRoot: true}},
		},
		Lineages: map[string]string{"attestation:controller-1": "forged-head"},
	})

	_, err := execute(t, "replay", "--ledger", ledgerPath, "--registrar", tampered)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
