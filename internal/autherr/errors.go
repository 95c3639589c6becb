// Package autherr defines the failure kinds of the login handshake.
package autherr

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Kind classifies a handshake failure. Callers branch on the kind, never on
// the message text.
type Kind int

const (
	// Unknown is never produced by this module; it is what KindOf reports
	// for foreign errors.
	Unknown Kind = iota

	// ConfigurationError means the transport could not be constructed.
	// It is fatal and must not be retried.
	ConfigurationError

	// NetworkError covers connection failures, TLS handshake failures and
	// timeouts. The caller may retry with backoff.
	NetworkError

	// SessionNotFound means the handshake response carried no session cookie.
	SessionNotFound

	// MalformedCookie means the session cookie could not be split into a
	// name and a non-empty value.
	MalformedCookie

	// InvalidCredentials means the provider rejected the username/password pair.
	InvalidCredentials

	// ProtocolParseError means a response was missing an expected field or
	// could not be parsed. The remote contract has changed.
	ProtocolParseError
)

var kindNames = map[Kind]string{
	Unknown:            "unknown",
	ConfigurationError: "configuration_error",
	NetworkError:       "network_error",
	SessionNotFound:    "session_not_found",
	MalformedCookie:    "malformed_cookie",
	InvalidCredentials: "invalid_credentials",
	ProtocolParseError: "protocol_parse_error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Sentinels for errors.Is. Matching is by kind only.
var (
	ErrConfiguration      = &Error{Kind: ConfigurationError}
	ErrNetwork            = &Error{Kind: NetworkError}
	ErrSessionNotFound    = &Error{Kind: SessionNotFound}
	ErrMalformedCookie    = &Error{Kind: MalformedCookie}
	ErrInvalidCredentials = &Error{Kind: InvalidCredentials}
	ErrProtocolParse      = &Error{Kind: ProtocolParseError}
)

// Error is a handshake failure of a specific kind.
type Error struct {
	Kind Kind
	// Op names the step that failed, e.g. "handshake" or "login".
	Op  string
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New wraps err as a failure of the given kind raised by op.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// IsRetryable reports whether the caller may retry the whole handshake.
// Only transport-level failures qualify.
func IsRetryable(err error) bool {
	return KindOf(err) == NetworkError
}

// IsTimeout reports whether err was caused by a deadline rather than a
// refused or broken connection.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return containsTimeoutPattern(err.Error())
}

// tls-client flattens some dial errors into strings.
var timeoutPatterns = []string{
	"i/o timeout",
	"context deadline exceeded",
	"TLS handshake timeout",
	"Client.Timeout exceeded",
}

func containsTimeoutPattern(errStr string) bool {
	for _, pattern := range timeoutPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
