package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcp-tool-shop-org/attestia/internal/attest"
	"github.com/mcp-tool-shop-org/attestia/internal/canonical"
	"github.com/mcp-tool-shop-org/attestia/internal/recon"
)

// SaveReport persists a reconciliation report under its content-addressed
// hash. Returns the hash and whether a new row was inserted: writing the
// same report twice is a no-op, the hash is the identity.
func (s *Store) SaveReport(ctx context.Context, report *recon.ReconciliationReport) (hash string, inserted bool, err error) {
	body, err := canonical.Marshal(report)
	if err != nil {
		return "", false, fmt.Errorf("save report: %w", err)
	}
	hash = canonical.HashWithDomain(canonical.DomainReport, body)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (report_hash, report_id, all_reconciled, created_at, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(report_hash) DO NOTHING
	`,
		hash,
		report.ID,
		boolToInt(report.Summary.AllReconciled),
		report.Timestamp.UTC().Format(time.RFC3339Nano),
		string(body),
	)
	if err != nil {
		return "", false, fmt.Errorf("save report: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("save report: %w", err)
	}
	return hash, rows > 0, nil
}

// SaveAttestation persists an attestation record keyed by its registrar
// state id. Idempotent like SaveReport. The referenced report must already
// be saved (foreign key constraint).
func (s *Store) SaveAttestation(ctx context.Context, rec *attest.AttestationRecord) (inserted bool, err error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("save attestation: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO attestations
		(state_id, record_id, reconciliation_id, attested_by, attested_at, report_hash, all_reconciled, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(state_id) DO NOTHING
	`,
		rec.StateID,
		rec.ID,
		rec.ReconciliationID,
		rec.AttestedBy,
		rec.AttestedAt.UTC().Format(time.RFC3339Nano),
		rec.ReportHash,
		boolToInt(rec.AllReconciled),
		string(body),
	)
	if err != nil {
		return false, fmt.Errorf("save attestation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save attestation: %w", err)
	}
	return rows > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
