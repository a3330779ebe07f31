package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"binance-futures-export/internal/config"
	"binance-futures-export/internal/logger"
)

const TelegramBaseURL = "https://api.telegram.org"

// TelegramService reports finished and failed exports to a chat.
// Without a token and chat id every send is a no-op.
type TelegramService struct {
	Token   string
	ChatID  string
	BaseURL string
	Client  *http.Client
}

func NewTelegramService(cfg *config.Config) *TelegramService {
	return &TelegramService{
		Token:   cfg.TelegramToken,
		ChatID:  cfg.TelegramChatID,
		BaseURL: TelegramBaseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *TelegramService) Enabled() bool {
	return s != nil && s.Token != "" && s.ChatID != ""
}

// SendMessage posts text to the configured chat and waits for the answer.
func (s *TelegramService) SendMessage(ctx context.Context, text string) error {
	if !s.Enabled() {
		logger.Debug("Telegram credentials not set, skipping message")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.BaseURL, s.Token)
	payload := map[string]string{
		"chat_id":    s.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		// the url carries the bot token
		return fmt.Errorf("failed to send telegram message: %s", strings.ReplaceAll(err.Error(), s.Token, "****"))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram api error: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// ExportSummary describes a finished export for notification.
type ExportSummary struct {
	Alias    string
	Path     string
	Trades   int
	Orders   int
	Resumed  bool
	Duration time.Duration
}

func (s *TelegramService) SendExportNotification(ctx context.Context, sum ExportSummary) error {
	now := time.Now().Format("02/01/2006, 15:04:05")
	mode := "full"
	if sum.Resumed {
		mode = "resumed"
	}
	msg := fmt.Sprintf(
		"✅ *Futures Export - Binance*\n"+
			"👤 Account: %s\n"+
			"🔁 Mode: %s\n"+
			"📒 Trades: %d\n"+
			"🧾 Orders: %d\n"+
			"⏱️ Duration: %s\n"+
			"💾 File: %s\n"+
			"📅 Date: %s",
		s.escapeMarkdown(sum.Alias),
		mode,
		sum.Trades,
		sum.Orders,
		sum.Duration.Round(time.Second),
		s.escapeMarkdown(sum.Path),
		now,
	)
	return s.SendMessage(ctx, msg)
}

func (s *TelegramService) SendFailureNotification(ctx context.Context, alias string, cause error) error {
	now := time.Now().Format("02/01/2006, 15:04:05")
	msg := fmt.Sprintf(
		"❌ *Futures Export Failed - Binance*\n"+
			"👤 Account: %s\n"+
			"⚠️ Error: %s\n"+
			"📅 Date: %s",
		s.escapeMarkdown(alias),
		s.escapeMarkdown(cause.Error()),
		now,
	)
	return s.SendMessage(ctx, msg)
}

func (s *TelegramService) escapeMarkdown(text string) string {
	// Replace _ with \_ to prevent Markdown parsing errors
	return strings.ReplaceAll(text, "_", "\\_")
}
