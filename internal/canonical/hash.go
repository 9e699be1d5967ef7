package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. Each hashed structure kind
// gets its own domain so a report hash can never collide with, say, a
// subsystem hash for the same bytes. Version suffix enables future
// algorithm migration.
const (
	DomainReport    = "attestia/report/v1"
	DomainState     = "attestia/state/v1"
	DomainSubsystem = "attestia/subsystem/v1"
	DomainGlobal    = "attestia/global/v1"
)

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte separator prevents
// domain/data boundary ambiguity. Output is lowercase hex, 64 characters.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash canonicalizes v and hashes it under the given domain.
// The returned digest is stable across restarts, replays and
// independently produced copies of the same logical value.
func Hash(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonical hash: %w", err)
	}
	return HashWithDomain(domain, data), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHash(domain string, v any) string {
	h, err := Hash(domain, v)
	if err != nil {
		panic(err)
	}
	return h
}
