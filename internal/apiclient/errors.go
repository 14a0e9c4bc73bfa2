package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"storefront/internal/model"
)

// Error is a non-2xx response from the shop API.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the server-supplied message, empty when the body carried none.
	Message       string
	CorrelationID string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

func newError(method, path string, resp *http.Response) *Error {
	apiErr := &Error{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	var body model.ErrorResponse
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
		apiErr.CorrelationID = body.CorrelationID
		return apiErr
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// MessageOf returns the message a page should show for err: the server message for
// API errors, the domain message for validation errors, otherwise fallback.
func MessageOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return fallback
}

// IsStatus reports whether err is an API error with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
