// Package harness provides a YAML-driven conformance harness for the
// reconciliation engine.
//
// A scenario file declares the three input populations (intents, ledger
// entries, chain events), an optional scope and chain configuration, and
// the expected verdicts. The harness runs the reconciler with a fixed
// clock and a fixed report id so the resulting report is byte-stable,
// which makes golden-file comparison of canonical report bytes possible.
//
// Typical use from a test:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/matched.yaml")
//	require.NoError(t, err)
//	result, err := harness.Run(scenario)
//	require.NoError(t, err)
//	require.True(t, result.Pass, result.Errors)
//
// or, with golden comparison of the canonical report:
//
//	require.NoError(t, harness.RunWithGolden(t, scenario))
package harness
