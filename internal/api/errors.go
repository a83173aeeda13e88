package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidCredentials is returned when the backend rejects a login attempt.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrSessionExpired is returned when no usable session exists: the refresh
// token is absent or rejected, or a retried request is still unauthorized.
var ErrSessionExpired = errors.New("session expired, log in again")

// NetworkError wraps a transport-level failure (connection refused, DNS,
// cancelled context) as opposed to an HTTP error response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RequestError is a non-2xx backend response with the decoded error message.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// ValidationError carries a human-readable registration failure reason,
// flattened from the backend's per-field error arrays.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// decodeErrorMessage extracts a displayable message from an error response
// body. The backend answers with several shapes: {"detail": "..."} for auth
// endpoints, {"error": "..."} or {"message": "..."} elsewhere, and plain text
// on proxy errors.
func decodeErrorMessage(body []byte) string {
	var payload struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Detail != "":
			return payload.Detail
		case payload.Error != "":
			return payload.Error
		case payload.Message != "":
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// NewValidationError flattens per-field error arrays, e.g.
// {"username": ["A user with that username already exists."]}, into a single
// message. Known conditions get a short fixed message.
func NewValidationError(body []byte) *ValidationError {
	var fields map[string][]string
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		msg := decodeErrorMessage(body)
		if msg == "" {
			msg = "registration rejected"
		}
		return &ValidationError{Message: msg}
	}

	for _, reason := range fields["username"] {
		if strings.Contains(strings.ToLower(reason), "already exists") {
			return &ValidationError{Message: "username is already taken"}
		}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		if len(fields[name]) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(fields[name], " ")))
	}
	if len(parts) == 0 {
		return &ValidationError{Message: "registration rejected"}
	}
	return &ValidationError{Message: strings.Join(parts, "; ")}
}
