// Package services holds the business operations. Every operation takes a
// tenant.Scope and filters all queries by its workspace.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/go-timesheets/gate"
	ierr "github.com/diewo77/go-timesheets/internal/errors"
	"github.com/diewo77/go-timesheets/internal/tenant"
	"github.com/diewo77/go-timesheets/validation"
	"gorm.io/gorm"
)

// Authorizer answers whether the scope's user may act on a resource.
type Authorizer interface {
	Authorize(ctx context.Context, s tenant.Scope, action gate.Action, resourceType string, resource any) error
}

// RoleCache is notified when a membership changes.
type RoleCache interface {
	InvalidateMember(workspaceID, userID uint)
}

// dbError maps gorm errors to domain errors. what names the resource in
// the client-facing hint.
func dbError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ierr.WithError(err).
			WithHintf("%s not found", capitalize(what)).
			Mark(ierr.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ierr.WithError(err).
			WithHintf("%s already exists", capitalize(what)).
			Mark(ierr.ErrConflict)
	default:
		return ierr.WithError(err).
			WithMessage(fmt.Sprintf("%s query failed", what)).
			WithHint("Database error").
			Mark(ierr.ErrDatabase)
	}
}

func validationError(v validation.Violations) error {
	return ierr.NewError("validation failed").
		WithHint("Validation failed").
		WithReportableDetails(v.Details()).
		Mark(ierr.ErrValidation)
}

func conflict(hint string) error {
	return ierr.NewError(hint).WithHint(hint).Mark(ierr.ErrConflict)
}

func notFound(what string) error {
	return dbError(gorm.ErrRecordNotFound, what)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}

// calendarDate strips the clock, keeping the date as midnight UTC.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Page bounds list queries.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

func (p Page) apply(q *gorm.DB) *gorm.DB {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return q.Limit(limit).Offset(offset)
}

// passThrough keeps domain errors returned from inside a transaction and
// maps anything else.
func passThrough(err error, what string) error {
	if err == nil {
		return nil
	}
	if ierr.Code(err) != ierr.ErrCodeSystem {
		return err
	}
	return dbError(err, what)
}
