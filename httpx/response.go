// Package httpx holds JSON response helpers shared by handlers and
// middleware.
package httpx

import (
	"encoding/json"
	"net/http"

	ierr "github.com/diewo77/go-timesheets/internal/errors"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// WriteError renders a domain error: the status and code come from its
// mark, the message from its hint, details from its reportable details.
func WriteError(w http.ResponseWriter, err error) {
	status := ierr.HTTPStatusFromErr(err)
	resp := ErrorResponse{Error: ierr.Code(err), Message: ierr.Hint(err)}
	if resp.Message == "" {
		resp.Message = http.StatusText(status)
	}
	if details := ierr.Details(err); len(details) > 0 {
		resp.Details = details
	}
	JSON(w, status, resp)
}

// Decode reads a JSON body into dst. Unknown fields are rejected.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return ierr.WithError(err).
			WithHint("Request body is not valid JSON").
			Mark(ierr.ErrValidation)
	}
	return nil
}
