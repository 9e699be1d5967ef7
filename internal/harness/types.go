package harness

import (
	"github.com/mcp-tool-shop-org/attestia/internal/attest"
	"github.com/mcp-tool-shop-org/attestia/internal/recon"
)

// Result is the outcome of one scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every expect clause matched.
	Pass bool `json:"pass"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Report is the reconciliation report the scenario produced.
	Report *recon.ReconciliationReport `json:"report"`

	// Attestation is set when the scenario requested attestation.
	Attestation *attest.AttestationRecord `json:"attestation,omitempty"`

	// ReportHash is the domain-separated hash of the canonical report.
	ReportHash string `json:"report_hash"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError records an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
