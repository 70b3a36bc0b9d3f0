package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

// ErrorCode is a transfer failure code. Values follow libcurl's numbering
// so callers familiar with curl can match on them.
type ErrorCode int

const (
	CodeUnsupportedProtocol ErrorCode = 1
	CodeURLMalformat        ErrorCode = 3
	CodeCouldntResolveProxy ErrorCode = 5
	CodeCouldntResolveHost  ErrorCode = 6
	CodeCouldntConnect      ErrorCode = 7
	CodeWriteError          ErrorCode = 23
	CodeOperationTimedOut   ErrorCode = 28
	CodeSSLConnectError     ErrorCode = 35
	CodeAbortedByCallback   ErrorCode = 42
	CodeBadFunctionArgument ErrorCode = 43
	CodeTooManyRedirects    ErrorCode = 47
	CodeGotNothing          ErrorCode = 52
	CodeRecvError           ErrorCode = 56
	CodePeerFailedVerify    ErrorCode = 60
	CodeBadContentEncoding  ErrorCode = 61
)

// Error is a failed transfer: the native code plus its message.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("transfer error %d: %s", int(e.Code), e.Message)
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// errTooManyRedirects is returned by the redirect policy once OptMaxRedirs
// is exceeded.
var errTooManyRedirects = errors.New("maximum redirects followed")

// classify converts a net/http client error into an *Error.
func classify(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}

	msg := err.Error()

	if errors.Is(err, errTooManyRedirects) {
		return &Error{Code: CodeTooManyRedirects, Message: msg}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeOperationTimedOut, Message: msg}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Code: CodeAbortedByCallback, Message: msg}
	}

	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return &Error{Code: CodeOperationTimedOut, Message: msg}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Code: CodeCouldntResolveHost, Message: msg}
	}

	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidCert x509.CertificateInvalidError
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &unknownAuth) || errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidCert) || errors.As(err, &verifyErr) {
		return &Error{Code: CodePeerFailedVerify, Message: msg}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "proxyconnect" {
			return &Error{Code: CodeCouldntResolveProxy, Message: msg}
		}
		if opErr.Op == "dial" {
			return &Error{Code: CodeCouldntConnect, Message: msg}
		}
		return &Error{Code: CodeRecvError, Message: msg}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{Code: CodeGotNothing, Message: msg}
	}
	if strings.Contains(msg, "unsupported protocol scheme") {
		return &Error{Code: CodeUnsupportedProtocol, Message: msg}
	}
	if strings.Contains(msg, "tls:") {
		return &Error{Code: CodeSSLConnectError, Message: msg}
	}

	return &Error{Code: CodeRecvError, Message: msg}
}
