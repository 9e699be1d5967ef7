package attest

import (
	"errors"
	"fmt"
	"strings"
)

// RejectionError is returned when the registrar declines a transition.
// It carries every violation the registrar reported, since the report
// content itself is likely the cause and the caller must not retry blindly.
type RejectionError struct {
	AttestorID string
	Violations []Violation
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return fmt.Sprintf("attestation rejected for attestor %s: %s",
		e.AttestorID, strings.Join(msgs, "; "))
}

// IsRejection reports whether err is a registrar rejection.
// Uses errors.As to handle wrapped errors.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
