// Package handlers exposes the services as a JSON API.
package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-timesheets/httpx"
	ierr "github.com/diewo77/go-timesheets/internal/errors"
	"github.com/diewo77/go-timesheets/internal/services"
	"github.com/diewo77/go-timesheets/internal/tenant"
	"github.com/diewo77/go-timesheets/validation"
)

// scopeOf returns the scope stored by the workspace middleware. Routes
// under /workspaces/{workspace} always have one.
func scopeOf(r *http.Request) tenant.Scope {
	s, _ := tenant.FromContext(r.Context())
	return s
}

// pathID parses a numeric path value. Anything else is a 404.
func pathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || id == 0 {
		return 0, ierr.NewError("bad path id " + name).
			WithHint("Resource not found").
			Mark(ierr.ErrNotFound)
	}
	return uint(id), nil
}

// page reads ?limit= and ?page= (1-based).
func page(r *http.Request) services.Page {
	var p services.Page
	q := r.URL.Query()
	p.Limit = services.DefaultPageSize
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		p.Limit = min(n, services.MaxPageSize)
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 1 {
		p.Offset = (n - 1) * p.Limit
	}
	return p
}

// optionalDate parses a YYYY-MM-DD query value; empty means nil.
func optionalDate(field, value string, v validation.Violations) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	d := validation.Date(field, value, v)
	if d.IsZero() {
		return nil
	}
	return &d
}

func optionalUint(field, value string, v validation.Violations) *uint {
	if value == "" {
		return nil
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		v.Add(field, "invalid")
		return nil
	}
	id := uint(n)
	return &id
}

func optionalBool(field, value string, v validation.Violations) *bool {
	if value == "" {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		v.Add(field, "invalid")
		return nil
	}
	return &b
}

func invalid(v validation.Violations) error {
	return ierr.NewError("invalid request").
		WithHint("Invalid request").
		WithReportableDetails(v.Details()).
		Mark(ierr.ErrValidation)
}

// decode reads the JSON body and writes the error response on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.Decode(r, dst); err != nil {
		httpx.WriteError(w, err)
		return false
	}
	return true
}
