// Package errors defines the domain error taxonomy shared by services and the
// HTTP boundary. Errors are built with cockroachdb/errors so that user-facing
// hints and structured details survive wrapping.
package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

const (
	ErrCodeValidation       = "validation_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodePermissionDenied = "forbidden"
	ErrCodeUnauthenticated  = "unauthorized"
	ErrCodeDatabase         = "database_error"
	ErrCodeSystem           = "system_error"
)

// Sentinels used with Mark. Compare with errors.Is or the Is* helpers.
var (
	ErrValidation       = newSentinel(ErrCodeValidation, "validation error")
	ErrNotFound         = newSentinel(ErrCodeNotFound, "resource not found")
	ErrConflict         = newSentinel(ErrCodeConflict, "conflict")
	ErrPermissionDenied = newSentinel(ErrCodePermissionDenied, "permission denied")
	ErrUnauthenticated  = newSentinel(ErrCodeUnauthenticated, "authentication required")
	ErrDatabase         = newSentinel(ErrCodeDatabase, "database error")
	ErrSystem           = newSentinel(ErrCodeSystem, "system error")

	// ordered so that the first match wins in Code and HTTPStatusFromErr
	sentinels = []*InternalError{
		ErrValidation,
		ErrNotFound,
		ErrConflict,
		ErrPermissionDenied,
		ErrUnauthenticated,
		ErrDatabase,
		ErrSystem,
	}

	statusCodes = map[string]int{
		ErrCodeValidation:       http.StatusBadRequest,
		ErrCodeNotFound:         http.StatusNotFound,
		ErrCodeConflict:         http.StatusConflict,
		ErrCodePermissionDenied: http.StatusForbidden,
		ErrCodeUnauthenticated:  http.StatusUnauthorized,
		ErrCodeDatabase:         http.StatusInternalServerError,
		ErrCodeSystem:           http.StatusInternalServerError,
	}
)

// InternalError is a domain error category.
type InternalError struct {
	Code    string
	Message string
	Err     error
}

func newSentinel(code, message string) *InternalError {
	return &InternalError{Code: code, Message: message}
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) Unwrap() error { return e.Err }

// Is matches on Code so wrapped copies compare equal to the sentinel.
func (e *InternalError) Is(target error) bool {
	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}
	return e.Code == t.Code
}

func IsValidation(err error) bool       { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool         { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool         { return errors.Is(err, ErrConflict) }
func IsPermissionDenied(err error) bool { return errors.Is(err, ErrPermissionDenied) }

// Code returns the machine-readable code for err, or ErrCodeSystem when err
// carries no known mark.
func Code(err error) string {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Code
		}
	}
	return ErrCodeSystem
}

// HTTPStatusFromErr maps a marked error to its HTTP status code.
func HTTPStatusFromErr(err error) int {
	if status, ok := statusCodes[Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
