package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound is matched by HTTPError values with status 404.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is matched by HTTPError values with status 401 or 403.
	ErrUnauthorized = errors.New("unauthorized")
)

// HTTPError is a non-2xx control plane response.
type HTTPError struct {
	Status  int
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the control plane.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{Status: status}

	var payload struct {
		Code        int    `json:"code"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Description != "" {
		e.Code = payload.Code
		e.Message = payload.Description
		return e
	}

	e.Message = strings.TrimSpace(string(body))
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
