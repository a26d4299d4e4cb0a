package crawler

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrNoValidSeeds aborts a run when no seed URL canonicalizes.
	ErrNoValidSeeds = errors.New("no valid seed URLs")

	// ErrAlreadyRun is returned by a second call to Engine.Run.
	ErrAlreadyRun = errors.New("engine has already run")

	// ErrInterrupted is returned, together with the records collected so far,
	// when the run context is cancelled.
	ErrInterrupted = errors.New("crawl interrupted")

	// ErrSeedUnreachable is returned in single mode when the only seed could
	// not be fetched at all. The failed record is still returned.
	ErrSeedUnreachable = errors.New("seed URL unreachable")
)

// ErrorKind categorizes transport failures.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindDNS        ErrorKind = "dns"
	KindConnection ErrorKind = "connection"
	KindTLS        ErrorKind = "tls"
	KindRequest    ErrorKind = "request"
	KindBody       ErrorKind = "body"
)

// TransportError is a fetch failure that happened before a complete response
// was received.
type TransportError struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("Timeout: request to %s took too long: %v", e.URL, e.Err)
	case KindDNS:
		return fmt.Sprintf("Network error: could not resolve host for %s: %v", e.URL, e.Err)
	case KindConnection:
		return fmt.Sprintf("Network error: connection failed to %s: %v", e.URL, e.Err)
	case KindTLS:
		return fmt.Sprintf("Network error: TLS failure for %s: %v", e.URL, e.Err)
	case KindBody:
		return fmt.Sprintf("Network error: failed to read response body from %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("Network error: request error for %s: %v", e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a timeout.
func (e *TransportError) Timeout() bool {
	return e.Kind == KindTimeout
}

// classifyTransportError wraps err from http.Client.Do into a TransportError.
func classifyTransportError(rawURL string, err error) *TransportError {
	return &TransportError{Kind: transportKind(err), URL: rawURL, Err: err}
}

func transportKind(err error) ErrorKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return KindDNS
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var (
		recordErr    tls.RecordHeaderError
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	if errors.As(err, &recordErr) || errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) || errors.As(err, &hostnameErr) || errors.As(err, &invalidErr) {
		return KindTLS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}

	return KindRequest
}

// StatusError describes a non-2xx HTTP response.
type StatusError struct {
	Code    int
	URL     string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code == http.StatusTooManyRequests {
		return "Rate limited: " + e.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

// ClassifyStatus returns nil for 2xx codes and a *StatusError with a
// user-facing explanation otherwise.
func ClassifyStatus(code int, url string) error {
	if code >= 200 && code <= 299 {
		return nil
	}

	var msg string
	switch code {
	case http.StatusBadRequest:
		msg = fmt.Sprintf("Bad Request - The server couldn't understand the request to %s", url)
	case http.StatusUnauthorized:
		msg = fmt.Sprintf("Unauthorized - Authentication required to access %s", url)
	case http.StatusForbidden:
		msg = fmt.Sprintf("Forbidden - Access denied to %s. This may indicate bot protection.", url)
	case http.StatusNotFound:
		msg = fmt.Sprintf("Not Found - The page %s does not exist", url)
	case http.StatusTooManyRequests:
		msg = fmt.Sprintf("Too many requests to %s. Please slow down and try again later.", url)
	case http.StatusInternalServerError:
		msg = fmt.Sprintf("Internal Server Error - The server at %s encountered an error", url)
	case http.StatusBadGateway:
		msg = fmt.Sprintf("Bad Gateway - The server at %s received an invalid response", url)
	case http.StatusServiceUnavailable:
		msg = fmt.Sprintf("Service Unavailable - The server at %s is temporarily unavailable", url)
	case http.StatusGatewayTimeout:
		msg = fmt.Sprintf("Gateway Timeout - The server at %s took too long to respond", url)
	default:
		msg = fmt.Sprintf("HTTP error %d while accessing %s", code, url)
	}

	return &StatusError{Code: code, URL: url, Message: msg}
}
