package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrNetwork wraps transport failures: DNS, refused connections, timeouts.
	ErrNetwork = errors.New("network error")
	// ErrSessionExpired means the refresh token was rejected and the
	// session has been cleared. It is handled globally, never per page.
	ErrSessionExpired = errors.New("session expired")
	ErrNotFound       = errors.New("not found")
	ErrNoTokens       = errors.New("no tokens stored")
)

// APIError is a non-2xx response of the portal. Fields carries DRF-style
// per-field validation messages.
type APIError struct {
	Status int
	Detail string
	Fields map[string][]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal api: status %d: %s", e.Status, e.Message())
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Message is the human-readable form shown to users.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if len(e.Fields) == 0 {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		msg := strings.Join(e.Fields[k], " ")
		if k == "non_field_errors" {
			parts = append(parts, msg)
			continue
		}
		parts = append(parts, k+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// FieldError returns the first message for a field, if any.
func (e *APIError) FieldError(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		apiErr.Detail = strings.TrimSpace(string(body))
		if len(apiErr.Detail) > 200 {
			apiErr.Detail = ""
		}
		return apiErr
	}

	for k, v := range raw {
		switch val := v.(type) {
		case string:
			if k == "detail" || k == "message" || k == "error" {
				apiErr.Detail = val
				continue
			}
			apiErr.addField(k, val)
		case []any:
			for _, item := range val {
				if s, ok := item.(string); ok {
					apiErr.addField(k, s)
				}
			}
		}
	}

	return apiErr
}

func (e *APIError) addField(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Describe turns any client error into the message shown to a user.
func Describe(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionExpired):
		return "Your session has expired. Please /login again."
	case errors.Is(err, ErrNetwork):
		return "Could not reach the job portal. Check your connection and try again."
	case errors.As(err, &apiErr):
		return apiErr.Message()
	default:
		return "Something went wrong. Please try again."
	}
}
