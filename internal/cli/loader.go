package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mcp-tool-shop-org/attestia/internal/attest"
	"github.com/mcp-tool-shop-org/attestia/internal/chaincfg"
	"github.com/mcp-tool-shop-org/attestia/internal/ledger"
	"github.com/mcp-tool-shop-org/attestia/internal/recon"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeNotFound      = "E002" // Path not found
	ErrCodeParseFailed   = "E003" // Input file parse failure
	ErrCodeChainConfig   = "E004" // Chain configuration invalid
	ErrCodeStoreFailed   = "E005" // Database open/read/write failure
	ErrCodeAttestFailed  = "E006" // Attestation rejected
	ErrCodeVerifyFailed  = "E007" // Hash or replay verification FAIL
	ErrCodeSnapshotError = "E008" // Snapshot restore failure
)

// ReconInputs is the on-disk shape of a reconciliation input file: the
// three record populations in one JSON document.
type ReconInputs struct {
	Intents []recon.ReconcilableIntent      `json:"intents"`
	Entries []recon.ReconcilableLedgerEntry `json:"entries"`
	Events  []recon.ReconcilableChainEvent  `json:"events"`
}

// LoadReconInputs reads and parses a reconciliation input JSON file.
func LoadReconInputs(path string) (*ReconInputs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("input file not found: %s", path), err)
	}

	var inputs ReconInputs
	if err := decodeStrict(data, &inputs); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("parsing %s", path), err)
	}
	return &inputs, nil
}

// LoadRegistry builds the chain registry. With an empty path the default
// topology is used; otherwise the CUE config file is compiled and validated.
func LoadRegistry(path string) (*chaincfg.Registry, error) {
	if path == "" {
		return chaincfg.Default(), nil
	}
	registry, err := chaincfg.LoadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("chain config %s", path), err)
	}
	return registry, nil
}

// LoadLedgerSnapshot reads a ledger snapshot JSON file.
func LoadLedgerSnapshot(path string) (*ledger.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("ledger snapshot not found: %s", path), err)
	}
	var snap ledger.Snapshot
	if err := decodeStrict(data, &snap); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("parsing %s", path), err)
	}
	return &snap, nil
}

// LoadRegistrarSnapshot reads a registrar snapshot JSON file.
// Numbers inside state fields are decoded as json.Number, never float64,
// so re-hashing the restored states reproduces the original bytes.
func LoadRegistrarSnapshot(path string) (*attest.RegistrarSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("registrar snapshot not found: %s", path), err)
	}
	var snap attest.RegistrarSnapshot
	if err := decodeStrict(data, &snap); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("parsing %s", path), err)
	}
	return &snap, nil
}

// decodeStrict decodes JSON with json.Number preservation and rejects
// trailing garbage.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON document")
	}
	return nil
}
