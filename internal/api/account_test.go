package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAccount serves the server time and balance endpoints.
func fakeAccount(t *testing.T, offset int64, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var balanceCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/fapi/v1/time", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"serverTime":%d}`, time.Now().UnixMilli()+offset)
	})
	mux.HandleFunc(PathBalance, func(w http.ResponseWriter, r *http.Request) {
		balanceCalls.Add(1)
		if r.Header.Get("X-MBX-APIKEY") != testCreds.APIKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &balanceCalls
}

func TestVerifyCredentials(t *testing.T) {
	t.Run("valid keys", func(t *testing.T) {
		srv, calls := fakeAccount(t, 5000, http.StatusOK,
			`[{"accountAlias":"SgsR","asset":"USDT","balance":"122.60"},{"accountAlias":"SgsR","asset":"BNB"}]`)

		session, err := VerifyCredentials(context.Background(), testCreds, WithBaseURL(srv.URL), WithRetries(2, time.Millisecond))
		require.NoError(t, err)
		assert.Equal(t, "SgsR", session.Alias)
		require.NotNil(t, session.Client)
		assert.InDelta(t, 5000, session.Client.TimeOffset, 1000)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("server error", func(t *testing.T) {
		srv, calls := fakeAccount(t, 0, http.StatusServiceUnavailable, `{"code":-1001}`)

		_, err := VerifyCredentials(context.Background(), testCreds, WithBaseURL(srv.URL), WithRetries(2, time.Millisecond))
		var serverErr *ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, http.StatusServiceUnavailable, serverErr.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("invalid keys", func(t *testing.T) {
		srv, _ := fakeAccount(t, 0, http.StatusUnauthorized, `{"code":-2015,"msg":"Invalid API-key, IP, or permissions for action."}`)

		_, err := VerifyCredentials(context.Background(), testCreds, WithBaseURL(srv.URL))
		var authErr *AuthenticationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	})

	t.Run("other client error is invalid keys", func(t *testing.T) {
		srv, _ := fakeAccount(t, 0, http.StatusBadRequest, `{"code":-1021,"msg":"Timestamp outside recvWindow"}`)

		_, err := VerifyCredentials(context.Background(), testCreds, WithBaseURL(srv.URL))
		var authErr *AuthenticationError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("empty balance list", func(t *testing.T) {
		srv, _ := fakeAccount(t, 0, http.StatusOK, `[]`)

		_, err := VerifyCredentials(context.Background(), testCreds, WithBaseURL(srv.URL))
		var unexpected *UnexpectedResponseError
		assert.ErrorAs(t, err, &unexpected)
	})

	t.Run("garbage body", func(t *testing.T) {
		srv, _ := fakeAccount(t, 0, http.StatusOK, `<html>`)

		_, err := VerifyCredentials(context.Background(), testCreds, WithBaseURL(srv.URL))
		var unexpected *UnexpectedResponseError
		assert.ErrorAs(t, err, &unexpected)
	})
}

func TestVerifyCredentialsWithoutTimeSync(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathBalance, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"accountAlias":"FzXq"}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	session, err := VerifyCredentials(context.Background(), testCreds, WithBaseURL(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "FzXq", session.Alias)
	assert.Zero(t, session.Client.TimeOffset)
}
