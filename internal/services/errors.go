// ===============================
// internal/services/errors.go - Sentinel errors shared by services and handlers
// ===============================

package services

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadySaved     = errors.New("resource already saved")
	ErrApprovalRequired = errors.New("plan requires admin approval")
	ErrInvalidPlan      = errors.New("invalid plan")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrValidation       = errors.New("validation failed")
	ErrUploadsDisabled  = errors.New("file uploads are not configured")
	ErrInvalidPhone     = errors.New("phone number must be in format +92XXXXXXXXXX")
	ErrImportDisabled   = errors.New("legacy import is not configured")
)

// ValidationError carries the individual messages of a failed validation.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// notFound maps sql.ErrNoRows to ErrNotFound and wraps everything else.
func notFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}
