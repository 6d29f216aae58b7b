package wizard

import (
	"errors"
	"net/mail"
	"sort"
	"strings"

	"jobportal-bot/internal/api/portal"
)

// ValidationError maps form fields to messages. A form with any entry is
// never submitted.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Err returns e when it holds at least one field, nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// fieldErrors lifts backend per-field messages into a ValidationError so
// they are shown next to the form. Other errors pass through.
func fieldErrors(err error) error {
	var apiErr *portal.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return err
	}
	v := &ValidationError{}
	for field, msgs := range apiErr.Fields {
		if len(msgs) > 0 {
			v.Add(field, msgs[0])
		}
	}
	return v
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s, ".")
}
