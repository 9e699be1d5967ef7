package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/mcp-tool-shop-org/attestia/internal/canonical"
	"github.com/mcp-tool-shop-org/attestia/internal/recon"
)

// RunWithGolden executes a scenario and compares the canonical report bytes
// against a golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files hold the exact canonical serialization, so any change that
// shifts report bytes (field ordering, number formatting, sort keys) shows
// up as a diff here before it silently breaks stored hashes.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return AssertGolden(t, scenario.Name, result.Report)
}

// AssertGolden compares a report's canonical bytes against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, report *recon.ReconciliationReport) error {
	t.Helper()

	data, err := canonical.Marshal(report)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
