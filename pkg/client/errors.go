package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies every failure the client can return.
type Kind int

const (
	KindUnknown       Kind = iota
	KindValidation         // 400
	KindUnauthorized       // 401, triggers SessionInvalidated
	KindForbidden          // 403
	KindNotFound           // 404
	KindUnprocessable      // 422
	KindServer             // 5xx
	KindNetwork            // no response received
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindValidation:    "validation",
	KindUnauthorized:  "unauthorized",
	KindForbidden:     "forbidden",
	KindNotFound:      "not_found",
	KindUnprocessable: "unprocessable",
	KindServer:        "server",
	KindNetwork:       "network",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// defaultMessages are shown when the server gives no usable message.
var defaultMessages = map[Kind]string{
	KindUnknown:       "an unexpected error occurred",
	KindValidation:    "the request was invalid",
	KindUnauthorized:  "your session has expired, please sign in again",
	KindForbidden:     "you do not have permission to do that",
	KindNotFound:      "the requested resource was not found",
	KindUnprocessable: "the request could not be processed",
	KindServer:        "the server encountered an error, please try again later",
	KindNetwork:       "could not reach the server, check your connection",
}

// Error is the normalized failure returned by every Client method.
type Error struct {
	Kind       Kind
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// ClassifyStatus maps an HTTP status code to a Kind.
func ClassifyStatus(code int) Kind {
	switch {
	case code == http.StatusBadRequest:
		return KindValidation
	case code == http.StatusUnauthorized:
		return KindUnauthorized
	case code == http.StatusForbidden:
		return KindForbidden
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusUnprocessableEntity:
		return KindUnprocessable
	case code >= 500 && code <= 599:
		return KindServer
	default:
		return KindUnknown
	}
}

// KindOf returns the Kind of err, or KindUnknown if err did not come from the client.
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return KindUnknown
}

// IsStatus returns true if err (or any wrapped error) is an Error with the given status code.
func IsStatus(err error, code int) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.StatusCode == code
	}
	return false
}

// IsUnauthorized reports whether err is an authorization rejection.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// Message returns the human-readable message for err without transport detail.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Message
	}
	return defaultMessages[KindUnknown]
}

func newError(kind Kind, status int, msg string, cause error) *Error {
	if msg == "" {
		msg = defaultMessages[kind]
	}
	return &Error{Kind: kind, StatusCode: status, Message: msg, Err: cause}
}

// errorBody covers the error shapes the API returns:
// {"error": "...", "status": 400}, {"message": "..."} and {"detail": ...}.
type errorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// parseErrorMessage extracts a message from an error response body.
func parseErrorMessage(body []byte) string {
	var eb errorBody
	if json.Unmarshal(body, &eb) != nil {
		return ""
	}
	if eb.Error != "" {
		return eb.Error
	}
	if eb.Message != "" {
		return eb.Message
	}
	if len(eb.Detail) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(eb.Detail, &s) == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(eb.Detail, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
