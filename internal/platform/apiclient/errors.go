package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/migrantcare/nexus/pkg/models"
)

// Error is a non-2xx response.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

func newError(op string, status int, body []byte) *Error {
	e := &Error{Op: op, StatusCode: status}
	var er models.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		e.Message = er.Message
		if e.Message == "" {
			e.Message = er.Detail
		}
	}
	return e
}

// StatusCode returns the HTTP status behind err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

func IsUnauthorized(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// Message returns the server-supplied message behind err, if any.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return strings.TrimSpace(e.Message)
	}
	return ""
}
