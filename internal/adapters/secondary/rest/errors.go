package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/tiback/tiback-client/internal/core/errors"
)

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	// Message is the human-readable message from the body, if any.
	Message string
	// Body is a truncated copy of the raw body when no message was found.
	Body string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
	}
	if e.Body != "" {
		return fmt.Sprintf("api: unexpected %d response: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("api: unexpected %d response", e.StatusCode)
}

// Is maps status codes onto the shared sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case apperrors.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case apperrors.ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case apperrors.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case apperrors.ErrConflict:
		return e.StatusCode == http.StatusConflict
	case apperrors.ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case apperrors.ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case apperrors.ErrUnavailable:
		return e.StatusCode >= 500
	}
	return false
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var payload struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Msg != "":
			apiErr.Message = payload.Msg
		default:
			if s, ok := payload.Error.(string); ok {
				apiErr.Message = s
			}
		}
	}

	if apiErr.Message == "" {
		text := strings.TrimSpace(string(body))
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		apiErr.Body = text
	}
	return apiErr
}

// PublicMessage returns the backend-supplied message, or "".
func (e *APIError) PublicMessage() string {
	return e.Message
}
