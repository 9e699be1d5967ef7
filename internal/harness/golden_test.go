package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestGoldenScenarios runs every scenario under testdata/scenarios and
// compares the canonical report bytes against its golden file. Run with
// -update to regenerate goldens after an intentional serialization change.
func TestGoldenScenarios(t *testing.T) {
	entries, err := os.ReadDir("testdata/scenarios")
	require.NoError(t, err)

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		t.Run(strings.TrimSuffix(strings.TrimSuffix(name, ".yml"), ".yaml"), func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
			require.NoError(t, err)

			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

// TestMatchedTransferScenarioPasses checks the fixture's own expectations,
// not just its serialization.
func TestMatchedTransferScenarioPasses(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/matched-transfer.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
}
