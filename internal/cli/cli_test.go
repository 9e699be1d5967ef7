package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-tool-shop-org/attestia/internal/ledger"
	"github.com/mcp-tool-shop-org/attestia/internal/recon"
	"github.com/mcp-tool-shop-org/attestia/internal/testutil"
)

// execute runs the root command with the given args and captures output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeJSON marshals v to a file under dir and returns its path.
func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// matchedInputs is a fully reconciling input file: one intent, one entry,
// one chain event, all describing the same transfer.
func matchedInputs(t *testing.T, dir string) string {
	t.Helper()
	intent, entry, event := testutil.MatchedTriple("1")
	return writeJSON(t, dir, "inputs.json", ReconInputs{
		Intents: []recon.ReconcilableIntent{intent},
		Entries: []recon.ReconcilableLedgerEntry{entry},
		Events:  []recon.ReconcilableChainEvent{event},
	})
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "chains")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestChainsDefaultTopology(t *testing.T) {
	out, err := execute(t, "chains")
	require.NoError(t, err)

	assert.Contains(t, out, "Chains: 4")
	assert.Contains(t, out, "ethereum")
	assert.Contains(t, out, "arbitrum")
	assert.Contains(t, out, "settles to ethereum")
}

func TestChainsJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "chains")
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestReconcileAllMatched(t *testing.T) {
	inputs := matchedInputs(t, t.TempDir())

	out, err := execute(t, "reconcile", "--inputs", inputs)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All records reconciled")
	assert.Contains(t, out, "3 matched")
}

func TestReconcileDiscrepanciesExitOne(t *testing.T) {
	dir := t.TempDir()
	inputs := writeJSON(t, dir, "inputs.json", ReconInputs{
		Intents: []recon.ReconcilableIntent{
			{ID: "intent-1", Status: "settled"},
		},
	})

	out, err := execute(t, "reconcile", "--inputs", inputs)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Reconciliation found discrepancies")
}

func TestReconcileMissingInputsFile(t *testing.T) {
	_, err := execute(t, "reconcile", "--inputs", filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReconcileRejectsTrailingGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inputs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"intents":[]} extra`), 0o644))

	_, err := execute(t, "reconcile", "--inputs", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "trailing data")
}

func TestReconcileInvalidScopeTimestamp(t *testing.T) {
	inputs := matchedInputs(t, t.TempDir())

	_, err := execute(t, "reconcile", "--inputs", inputs, "--from", "yesterday")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReconcileJSONOutput(t *testing.T) {
	inputs := matchedInputs(t, t.TempDir())

	out, err := execute(t, "--format", "json", "reconcile", "--inputs", inputs)
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Nil(t, response.Error)
}

func TestReconcileJSONDiscrepancies(t *testing.T) {
	dir := t.TempDir()
	inputs := writeJSON(t, dir, "inputs.json", ReconInputs{
		Intents: []recon.ReconcilableIntent{
			{ID: "intent-1", Status: "settled"},
		},
	})

	out, err := execute(t, "--format", "json", "reconcile", "--inputs", inputs)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	// The error envelope still carries the full payload.
	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "error", response.Status)
	require.NotNil(t, response.Error)
	assert.Equal(t, ErrCodeVerifyFailed, response.Error.Code)
	assert.NotNil(t, response.Data)
}

func TestReconcileAgainstLedgerSnapshot(t *testing.T) {
	dir := t.TempDir()

	l := ledger.New()
	require.NoError(t, l.CreateAccount(ledger.Account{ID: "operating", Name: "Operating", Currency: "USD"}))
	require.NoError(t, l.CreateAccount(ledger.Account{ID: "settlement", Name: "Settlement", Currency: "USD"}))
	require.NoError(t, l.Post(ledger.Posting{
		ID:              "p1",
		DebitAccountID:  "operating",
		CreditAccountID: "settlement",
		Amount:          "42.00",
		Currency:        "USD",
		Decimals:        2,
		TxHash:          "0xpost",
		PostedAt:        testutil.BaseTime,
	}))
	snap, err := l.Snapshot()
	require.NoError(t, err)
	ledgerPath := writeJSON(t, dir, "ledger.json", snap)

	// Both derived entries of the posting reconcile against the single
	// observed transfer by tx hash.
	inputs := writeJSON(t, dir, "inputs.json", ReconInputs{
		Events: []recon.ReconcilableChainEvent{
			testutil.Event("ethereum", "0xpost", "4200", 2, "USD"),
		},
	})

	out, err := execute(t, "reconcile", "--inputs", inputs, "--ledger", ledgerPath)
	require.NoError(t, err)
	assert.Contains(t, out, "2 ledger entries")
	assert.Contains(t, out, "2 matched")
	assert.Contains(t, out, "✓ All records reconciled")
}

func TestReconcileLedgerSnapshotRestoreFailure(t *testing.T) {
	dir := t.TempDir()
	inputs := matchedInputs(t, dir)

	// A posting against accounts the snapshot never declares cannot restore.
	bad := ledger.Snapshot{Postings: []ledger.Posting{{
		ID:              "p1",
		DebitAccountID:  "ghost-a",
		CreditAccountID: "ghost-b",
		Amount:          "1",
		Currency:        "USD",
		Decimals:        2,
	}}}
	ledgerPath := writeJSON(t, dir, "ledger.json", &bad)

	_, err := execute(t, "reconcile", "--inputs", inputs, "--ledger", ledgerPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "restoring")
}

func TestReconcileSavesToDatabase(t *testing.T) {
	dir := t.TempDir()
	inputs := matchedInputs(t, dir)
	db := filepath.Join(dir, "attestia.db")

	out, err := execute(t, "reconcile", "--inputs", inputs, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "saved: true")

	// A second run writes nothing new: the report is content-addressed.
	out, err = execute(t, "reconcile", "--inputs", inputs, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "saved: false")
}

func TestScenariosPass(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "matched.yaml", passingScenarioYAML)

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ matched")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestScenariosFailExitOne(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "matched.yaml", passingScenarioYAML)
	writeScenario(t, dir, "broken.yaml", failingScenarioYAML)

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestScenariosFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "matched.yaml", passingScenarioYAML)
	writeScenario(t, dir, "broken.yaml", failingScenarioYAML)

	out, err := execute(t, "test", dir, "--filter", "matched")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestScenariosMissingDir(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "nowhere"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScenariosEmptyDir(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func writeScenario(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

const passingScenarioYAML = `
name: matched
description: Fully reconciled transfer.
intents:
  - id: intent-1
    status: settled
    chain_id: ethereum
    tx_hash: "0x1"
    amount: {value: "100.00", currency: USDC, decimals: 2}
entries:
  - id: entry-1
    account_id: cash
    direction: debit
    amount: {value: "100.00", currency: USDC, decimals: 2}
    intent_id: intent-1
    tx_hash: "0x1"
events:
  - chain_id: ethereum
    tx_hash: "0x1"
    amount: "100000000"
    decimals: 6
    symbol: USDC
expect:
  all_reconciled: true
  matched: 3
`

const failingScenarioYAML = `
name: broken
description: Expects reconciliation that cannot happen.
intents:
  - id: intent-1
    status: settled
expect:
  all_reconciled: true
`
