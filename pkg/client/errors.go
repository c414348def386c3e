package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fruitsalade/filebrowser/pkg/protocol"
)

var (
	// ErrUnauthorized means there is no valid session, or the credentials
	// given to Login were rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound means the requested path does not resolve to a directory.
	ErrNotFound = errors.New("not found")
)

// StatusError is returned when the server answers with an unexpected
// status code.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
}

// Is maps 401 to ErrUnauthorized and 404 to ErrNotFound.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// AsStatus checks if an error is a StatusError and returns it.
func AsStatus(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsUnauthorized reports whether err means the session is missing or expired.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFound reports whether err means the path is not a directory.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// newStatusError reads the error message from resp, preferring the JSON
// error body the server sends.
func newStatusError(op string, resp *http.Response) *StatusError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(data))

	var er protocol.ErrorResponse
	if json.Unmarshal(data, &er) == nil && er.Error != "" {
		msg = er.Error
	}
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: msg}
}
