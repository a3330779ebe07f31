package api

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
)

// Outcome is what the retrier should do with one attempt.
type Outcome int

const (
	Success Outcome = iota
	Retryable
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// requestError marks failures raised while building a request. They never
// reach the network, so retrying them cannot help.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return "build request: " + e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// Classify maps the transport result of a single attempt. Any HTTP response,
// whatever its status, is a Success at this layer.
func Classify(ctx context.Context, err error) Outcome {
	if err == nil {
		return Success
	}
	if ctx != nil && ctx.Err() != nil {
		return Fatal
	}

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return Fatal
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Retryable
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return Retryable
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Retryable
	}

	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED):
		return Retryable
	}
	return Fatal
}

// ClassifyStatus maps an HTTP status code. Throttling (429), IP bans (418)
// and server errors are worth another try; other failures are not.
func ClassifyStatus(code int) Outcome {
	switch {
	case code >= 200 && code < 300:
		return Success
	case code >= 500,
		code == http.StatusTooManyRequests,
		code == http.StatusTeapot:
		return Retryable
	default:
		return Fatal
	}
}
