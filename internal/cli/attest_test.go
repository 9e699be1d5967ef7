package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-tool-shop-org/attestia/internal/recon"
)

func TestAttestFreshReconciliation(t *testing.T) {
	inputs := matchedInputs(t, t.TempDir())

	out, err := execute(t, "attest", "--inputs", inputs, "--attestor", "controller-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Attestation:")
	assert.Contains(t, out, "Attestor:    controller-1")
	assert.Contains(t, out, "Reconciled:  true")
}

func TestAttestFailedReconciliationStillAttests(t *testing.T) {
	dir := t.TempDir()
	inputs := writeJSON(t, dir, "inputs.json", ReconInputs{
		Intents: []recon.ReconcilableIntent{
			{ID: "intent-1", Status: "settled"},
		},
	})

	out, err := execute(t, "attest", "--inputs", inputs, "--attestor", "controller-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Reconciled:  false")
}

func TestAttestSavesToDatabase(t *testing.T) {
	dir := t.TempDir()
	inputs := matchedInputs(t, dir)
	db := filepath.Join(dir, "attestia.db")

	out, err := execute(t, "attest", "--inputs", inputs, "--attestor", "controller-1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved:       true")
}

func TestAttestStoredReport(t *testing.T) {
	dir := t.TempDir()
	inputs := matchedInputs(t, dir)
	db := filepath.Join(dir, "attestia.db")

	out, err := execute(t, "reconcile", "--inputs", inputs, "--db", db)
	require.NoError(t, err)

	var hash string
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "Hash:"); ok {
			hash = strings.Fields(rest)[0]
		}
	}
	require.NotEmpty(t, hash, "no report hash in output:\n%s", out)

	out, err = execute(t, "attest", "--report", hash, "--attestor", "controller-1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "("+hash+")")
	assert.Contains(t, out, "Reconciled:  true")
}

func TestAttestStoredReportRequiresDatabase(t *testing.T) {
	_, err := execute(t, "attest", "--report", strings.Repeat("a", 64), "--attestor", "controller-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--report requires --db")
}

func TestAttestUnknownStoredReport(t *testing.T) {
	db := filepath.Join(t.TempDir(), "attestia.db")

	// Open the database first so the missing report is the only problem.
	_, err := execute(t, "attest", "--report", strings.Repeat("a", 64), "--attestor", "controller-1", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAttestInputsAndReportAreExclusive(t *testing.T) {
	inputs := matchedInputs(t, t.TempDir())

	_, err := execute(t, "attest", "--inputs", inputs, "--report", strings.Repeat("a", 64),
		"--attestor", "controller-1")
	assert.Error(t, err)
}

func TestAttestRequiresSource(t *testing.T) {
	_, err := execute(t, "attest", "--attestor", "controller-1")
	assert.Error(t, err)
}
