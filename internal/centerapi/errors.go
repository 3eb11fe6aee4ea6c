package centerapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnavailable wraps transport failures: the backend could not be reached
// or the request timed out.
var ErrUnavailable = errors.New("maintenance backend unavailable")

// APIError is a non-2xx answer from the backend. Message is the backend's
// own wording, shown to the operator unchanged.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// AsAPIError unwraps err into an APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

const maxPlainMessage = 512

// newAPIError extracts the message from an {"error": "..."},
// {"error": {"message": "..."}} or {"message": "..."} payload, falling back to
// a short plain body and then the status text.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := errorMessage(payload.Error); msg != "" {
			return &APIError{StatusCode: status, Message: msg}
		}
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return &APIError{StatusCode: status, Message: msg}
		}
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) <= maxPlainMessage && !strings.HasPrefix(text, "<") {
		return &APIError{StatusCode: status, Message: text}
	}

	msg := http.StatusText(status)
	if msg == "" {
		msg = "unexpected backend response"
	}
	return &APIError{StatusCode: status, Message: msg}
}

// errorMessage reads the "error" member as a string or as an object with a
// "message" field.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}
