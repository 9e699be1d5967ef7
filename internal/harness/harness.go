package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/mcp-tool-shop-org/attestia/internal/attest"
	"github.com/mcp-tool-shop-org/attestia/internal/canonical"
	"github.com/mcp-tool-shop-org/attestia/internal/chaincfg"
	"github.com/mcp-tool-shop-org/attestia/internal/recon"
)

// defaultScenarioTime is the fixed clock used when a scenario does not pin
// its own. A constant keeps canonical report bytes identical across runs.
var defaultScenarioTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Run executes a scenario and evaluates its expectations.
// Execution errors (bad chain config, attestation rejection) are returned
// as errors; expectation failures are collected on the Result.
func Run(scenario *Scenario) (*Result, error) {
	registry, err := buildRegistry(scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	now := defaultScenarioTime
	if scenario.Now != nil {
		now = *scenario.Now
	}

	reconciler := recon.NewReconciler(
		recon.NewCrossChainRules(registry),
		recon.WithClock(func() time.Time { return now }),
		recon.WithIDFunc(func() string { return scenario.Name }),
	)

	intents, entries, events := scenario.Inputs()
	report := reconciler.Reconcile(intents, entries, events, scenario.Scope.toScope())

	result := NewResult()
	result.Report = report
	hash, err := canonical.Hash(canonical.DomainReport, report)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: hashing report: %w", scenario.Name, err)
	}
	result.ReportHash = hash

	checkExpectations(result, scenario)

	if scenario.Attest {
		if err := attestReport(scenario, report, now, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func buildRegistry(scenario *Scenario) (*chaincfg.Registry, error) {
	if len(scenario.Chains) == 0 {
		return chaincfg.Default(), nil
	}
	chains := make([]chaincfg.Chain, 0, len(scenario.Chains))
	for _, c := range scenario.Chains {
		chains = append(chains, chaincfg.Chain{
			ID:        c.ID,
			Name:      c.Name,
			Decimals:  c.Decimals,
			Symbol:    c.Symbol,
			SettlesTo: c.SettlesTo,
		})
	}
	return chaincfg.NewRegistry(chains)
}

func attestReport(scenario *Scenario, report *recon.ReconciliationReport, now time.Time, result *Result) error {
	attestorID := scenario.AttestorID
	if attestorID == "" {
		attestorID = "harness"
	}

	registrar := attest.NewRegistrar()
	attestor := attest.NewAttestor(attestorID, registrar,
		attest.WithClock(func() time.Time { return now }),
		attest.WithIDFunc(func() string { return scenario.Name + "-attestation" }),
	)

	rec, err := attestor.Attest(context.Background(), report)
	if err != nil {
		return fmt.Errorf("scenario %s: attestation: %w", scenario.Name, err)
	}
	result.Attestation = rec
	return nil
}
