package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"binance-futures-export/internal/logger"
)

const PathBalance = "/fapi/v2/balance"

// Session is a verified connection to one futures account.
type Session struct {
	Client *BinanceClient
	Alias  string
}

// VerifyCredentials syncs the clock and checks the keys against the balance
// endpoint. A failed clock sync is logged and ignored.
func VerifyCredentials(ctx context.Context, creds Credentials, opts ...ClientOption) (*Session, error) {
	c := NewBinanceClient(creds, opts...)
	if err := c.SyncTime(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("⚠️ Time sync failed, using local clock", "error", err)
	}
	return c.Verify(ctx)
}

// Verify issues one balance query. 200 yields a Session carrying the account
// alias, 5xx a *ServerError and anything else an *AuthenticationError.
func (c *BinanceClient) Verify(ctx context.Context) (*Session, error) {
	resp, err := c.Execute(ctx, http.MethodGet, PathBalance, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= http.StatusInternalServerError:
		logger.Error("Binance API Error", "status", resp.StatusCode, "body", snippet(resp.Body))
		return nil, &ServerError{StatusCode: resp.StatusCode, Body: snippet(resp.Body)}
	default:
		logger.Error("Binance API Error", "status", resp.StatusCode, "body", snippet(resp.Body))
		return nil, &AuthenticationError{StatusCode: resp.StatusCode, Body: snippet(resp.Body)}
	}

	var balances []struct {
		AccountAlias string `json:"accountAlias"`
	}
	if err := json.Unmarshal(resp.Body, &balances); err != nil {
		return nil, &UnexpectedResponseError{Path: PathBalance, StatusCode: resp.StatusCode, Body: snippet(resp.Body), Err: err}
	}
	if len(balances) == 0 {
		return nil, &UnexpectedResponseError{Path: PathBalance, StatusCode: resp.StatusCode, Body: snippet(resp.Body), Err: errors.New("empty balance list")}
	}

	logger.Info("✅ Credentials verified", "alias", balances[0].AccountAlias)
	return &Session{Client: c, Alias: balances[0].AccountAlias}, nil
}
