package api

import "fmt"

// TransientNetworkError is returned once every attempt of a request failed
// at the connection level.
type TransientNetworkError struct {
	Attempts int
	Err      error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("network failure after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// AuthenticationError means Binance rejected the API keys.
type AuthenticationError struct {
	StatusCode int
	Body       string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("keys are not valid (status %d)", e.StatusCode)
}

// ServerError is a 5xx on credential verification; verifying again later may succeed.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("binance server error (status %d)", e.StatusCode)
}

// UnexpectedResponseError is a response that is not the expected payload.
type UnexpectedResponseError struct {
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected response from %s (status %d): %v", e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("unexpected response from %s (status %d): %s", e.Path, e.StatusCode, e.Body)
}

func (e *UnexpectedResponseError) Unwrap() error { return e.Err }

// snippet trims a response body for error messages and logs.
func snippet(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
