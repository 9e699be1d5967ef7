package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcp-tool-shop-org/attestia/internal/attest"
	"github.com/mcp-tool-shop-org/attestia/internal/canonical"
	"github.com/mcp-tool-shop-org/attestia/internal/recon"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// GetReport loads a report by its content-addressed hash and verifies the
// stored body still hashes to its key. A row whose body no longer matches
// its hash has been tampered with and is an error, not data.
func (s *Store) GetReport(ctx context.Context, hash string) (*recon.ReconciliationReport, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM reports WHERE report_hash = ?
	`, hash).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	if got := canonical.HashWithDomain(canonical.DomainReport, []byte(body)); got != hash {
		return nil, fmt.Errorf("get report: stored body for %s hashes to %s", hash, got)
	}

	var report recon.ReconciliationReport
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

// GetReportByID loads the most recently saved report with the given run id.
func (s *Store) GetReportByID(ctx context.Context, reportID string) (*recon.ReconciliationReport, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT report_hash FROM reports
		WHERE report_id = ?
		ORDER BY created_at DESC, report_hash ASC
		LIMIT 1
	`, reportID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report id %s: %w", reportID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report by id: %w", err)
	}
	return s.GetReport(ctx, hash)
}

// ListAttestations returns all attestation records for one attestor in
// attestation order.
func (s *Store) ListAttestations(ctx context.Context, attestorID string) ([]attest.AttestationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM attestations
		WHERE attested_by = ?
		ORDER BY attested_at ASC, state_id ASC
	`, attestorID)
	if err != nil {
		return nil, fmt.Errorf("list attestations: %w", err)
	}
	defer rows.Close()

	var records []attest.AttestationRecord
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("list attestations: %w", err)
		}
		var rec attest.AttestationRecord
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, fmt.Errorf("list attestations: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attestations: %w", err)
	}

	if records == nil {
		records = []attest.AttestationRecord{}
	}
	return records, nil
}

// LastAttestation returns the most recent attestation for one attestor.
func (s *Store) LastAttestation(ctx context.Context, attestorID string) (*attest.AttestationRecord, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM attestations
		WHERE attested_by = ?
		ORDER BY attested_at DESC, state_id DESC
		LIMIT 1
	`, attestorID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attestor %s: %w", attestorID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("last attestation: %w", err)
	}

	var rec attest.AttestationRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("last attestation: %w", err)
	}
	return &rec, nil
}
