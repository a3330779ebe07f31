package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binance-futures-export/internal/config"
)

func newTestTelegram(t *testing.T, status int) (*TelegramService, *[]map[string]string) {
	t.Helper()
	var sent []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var payload map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		sent = append(sent, payload)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	s := NewTelegramService(&config.Config{TelegramToken: "TOKEN", TelegramChatID: "42"})
	s.BaseURL = srv.URL
	return s, &sent
}

func TestSendExportNotification(t *testing.T) {
	s, sent := newTestTelegram(t, http.StatusOK)

	err := s.SendExportNotification(context.Background(), ExportSummary{
		Alias:    "my_alias",
		Path:     "/tmp/1700000000.json",
		Trades:   1200,
		Orders:   300,
		Resumed:  true,
		Duration: 90 * time.Second,
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	msg := (*sent)[0]
	assert.Equal(t, "42", msg["chat_id"])
	assert.Equal(t, "Markdown", msg["parse_mode"])
	assert.Contains(t, msg["text"], `my\_alias`)
	assert.Contains(t, msg["text"], "Trades: 1200")
	assert.Contains(t, msg["text"], "resumed")
}

func TestSendFailureNotification(t *testing.T) {
	s, sent := newTestTelegram(t, http.StatusOK)

	require.NoError(t, s.SendFailureNotification(context.Background(), "SgsR", errors.New("network failure after 60 attempts")))
	require.Len(t, *sent, 1)
	assert.Contains(t, (*sent)[0]["text"], "network failure after 60 attempts")
}

func TestSendMessageAPIError(t *testing.T) {
	s, _ := newTestTelegram(t, http.StatusBadRequest)
	assert.Error(t, s.SendMessage(context.Background(), "hello"))
}

func TestSendMessageDisabled(t *testing.T) {
	s := NewTelegramService(&config.Config{})
	assert.False(t, s.Enabled())
	assert.NoError(t, s.SendMessage(context.Background(), "hello"))

	var nilService *TelegramService
	assert.False(t, nilService.Enabled())
}
