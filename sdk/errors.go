package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	errs "github.com/cloudwego/hertz/pkg/common/errors"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// Error represents an application error: the server answered with an error status
type Error struct {
	Status int    `json:"status"`
	Code   string `json:"error,omitempty"`
	Msg    string `json:"message,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("status: %d, error: %s, msg: %s", e.Status, e.Code, e.Msg)
}

// NewError creates a new error
func NewError(status int, msg string) *Error {
	return &Error{Status: status, Msg: msg}
}

// newStatusError builds an Error from an error response, tolerating non-JSON bodies
func newStatusError(status int, body []byte) *Error {
	e := &Error{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, e); err != nil {
			e.Msg = strings.TrimSpace(string(body))
		}
	}
	e.Status = status
	if e.Msg == "" {
		e.Msg = consts.StatusMessage(status)
	}
	return e
}

// TransportError represents a request that received no HTTP response
type TransportError struct {
	Method  string
	Path    string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s: timeout: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: no response: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newTransportError(method, path string, err error) *TransportError {
	return &TransportError{
		Method:  method,
		Path:    path,
		Timeout: isTimeoutErr(err),
		Err:     err,
	}
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, errs.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// IsStatus reports whether err is an application error with the given status
func IsStatus(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == status
}

// IsNotFound reports a 404 answer
func IsNotFound(err error) bool {
	return IsStatus(err, consts.StatusNotFound)
}

// IsUnauthorized reports a 401 answer, e.g. wrong credentials on login
func IsUnauthorized(err error) bool {
	return IsStatus(err, consts.StatusUnauthorized)
}
