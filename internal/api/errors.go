package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error definitions
var (
	// ErrNetwork reports that the backend could not be reached or timed out.
	ErrNetwork = errors.New("backend unreachable")
	// ErrNotFound reports a 404 response.
	ErrNotFound = errors.New("resource not found")
	// ErrUnauthorized reports a 401 response. Stored credentials have been cleared.
	ErrUnauthorized = errors.New("session expired, log in again")
	// ErrValidation reports a 400 or 422 response carrying field messages.
	ErrValidation = errors.New("request rejected by backend")
	// ErrRateLimited reports a 429 response.
	ErrRateLimited = errors.New("too many requests")
)

// NetworkError wraps a transport failure. It matches ErrNetwork and
// unwraps to the underlying cause, so context cancellation stays visible.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// StatusError is a non-2xx backend response.
type StatusError struct {
	Status  int
	Message string
	// Fields holds per-field messages in the order the backend sent them.
	Fields []FieldError
}

// FieldError is one field's messages from a validation response.
type FieldError struct {
	Field    string
	Messages []string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned HTTP %d", e.Status)
}

// Is maps the status onto the sentinel taxonomy.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrValidation:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	}
	return false
}

// FieldMessage returns the first message for field, or "".
func (e *StatusError) FieldMessage(field string) string {
	for _, f := range e.Fields {
		if f.Field == field && len(f.Messages) > 0 {
			return f.Messages[0]
		}
	}
	return ""
}

// IsStatus reports whether err is a StatusError with the given status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

// general keys carry a message rather than a field name
var generalKeys = map[string]bool{
	"detail":           true,
	"message":          true,
	"error":            true,
	"non_field_errors": true,
}

// parseErrorBody reads a Django REST style error body. A message is picked
// from detail, message, error and non_field_errors in that order, falling
// back to the first field message.
func parseErrorBody(status int, body []byte) *StatusError {
	se := &StatusError{Status: status}

	keys, values := orderedObject(body)
	if keys == nil {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
			se.Message = text
		}
		return se
	}

	for _, k := range []string{"detail", "message", "error", "non_field_errors"} {
		if msgs := messages(values[k]); len(msgs) > 0 {
			se.Message = msgs[0]
			break
		}
	}

	for _, k := range keys {
		if generalKeys[k] {
			continue
		}
		if msgs := messages(values[k]); len(msgs) > 0 {
			se.Fields = append(se.Fields, FieldError{Field: k, Messages: msgs})
		}
	}

	if se.Message == "" && len(se.Fields) > 0 {
		se.Message = se.Fields[0].Messages[0]
	}
	return se
}

// orderedObject decodes a JSON object keeping its key order.
func orderedObject(body []byte) ([]string, map[string]json.RawMessage) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil
	}

	keys := []string{}
	values := map[string]json.RawMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = raw
	}
	return keys, values
}

// messages accepts a string or a list of strings.
func messages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}
