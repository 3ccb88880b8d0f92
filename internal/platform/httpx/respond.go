// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

// ErrBodyTooLarge reports a request body cut off by http.MaxBytesReader.
var ErrBodyTooLarge = errors.New("request body too large")

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type      string            `json:"type,omitempty"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	JSON(w, status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	err := json.NewDecoder(r.Body).Decode(target)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, tooLarge.Limit)
	}
	return err
}

// RespondDecodeError answers a failed DecodeJSON: 413 for an oversized body,
// otherwise a validation problem on "body" with the given message.
func RespondDecodeError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, ErrBodyTooLarge) {
		RespondError(w, err)
		return
	}
	RespondError(w, shared.NewValidationError("body", message))
}
