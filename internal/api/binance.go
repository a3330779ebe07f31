package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/cenkalti/backoff/v5"

	"binance-futures-export/internal/logger"
	"binance-futures-export/internal/metrics"
)

const (
	BaseURL = "https://fapi.binance.com"

	recvWindow = "60000"

	weightWarn     = 1800
	weightCritical = 2200 // futures limit is 2400 per minute
)

// Credentials are the account API keys. The secret only ever feeds the
// signature; neither key is printed in full by fmt or slog.
type Credentials struct {
	APIKey    string
	SecretKey string
}

func (c Credentials) String() string {
	return "Credentials{APIKey: " + mask(c.APIKey) + "}"
}

func (c Credentials) GoString() string { return c.String() }

func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("api_key", mask(c.APIKey)))
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

// BinanceClient signs and sends USDⓈ-M futures REST requests.
type BinanceClient struct {
	BaseURL    string
	Client     *http.Client
	TimeOffset int64 // server minus local clock, millis

	creds      Credentials
	maxRetries int
	retryDelay time.Duration
	tracker    *metrics.Tracker
}

// Response is a fully read HTTP response. Status handling is left to the caller.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type ClientOption func(*BinanceClient)

func WithBaseURL(u string) ClientOption {
	return func(c *BinanceClient) {
		c.BaseURL = u
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *BinanceClient) {
		c.Client.Timeout = d
	}
}

// WithRetries sets how many attempts a request gets and the pause between them.
func WithRetries(max int, delay time.Duration) ClientOption {
	return func(c *BinanceClient) {
		c.maxRetries = max
		c.retryDelay = delay
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *BinanceClient) {
		c.Client = hc
	}
}

func WithTracker(t *metrics.Tracker) ClientOption {
	return func(c *BinanceClient) {
		c.tracker = t
	}
}

func NewBinanceClient(creds Credentials, opts ...ClientOption) *BinanceClient {
	c := &BinanceClient{
		BaseURL:    BaseURL,
		Client:     &http.Client{Timeout: 10 * time.Second},
		creds:      creds,
		maxRetries: 60,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SyncTime measures the offset between the local clock and Binance server time.
func (c *BinanceClient) SyncTime(ctx context.Context) error {
	fc := futures.NewClient(c.creds.APIKey, c.creds.SecretKey)
	fc.BaseURL = c.BaseURL
	fc.HTTPClient = c.Client

	serverTime, err := fc.NewServerTimeService().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get server time: %w", err)
	}

	localTime := time.Now().UnixMilli()
	c.TimeOffset = serverTime - localTime

	logger.Info("⏰ Time Synchronized", "server_time", serverTime, "local_time", localTime, "offset_ms", c.TimeOffset)
	return nil
}

// ServerTime is the current Binance server time in epoch millis.
func (c *BinanceClient) ServerTime() int64 {
	return time.Now().UnixMilli() + c.TimeOffset
}

// signingTime stays 1000ms behind the server: Binance rejects timestamps
// ahead of it but accepts up to recvWindow behind.
func (c *BinanceClient) signingTime() int64 {
	return c.ServerTime() - 1000
}

// Execute sends a signed request and returns the response whatever its
// status. Connection failures and timeouts are retried; once the attempts
// run out the last failure comes back as a *TransientNetworkError.
func (c *BinanceClient) Execute(ctx context.Context, method, path string, params url.Values) (*Response, error) {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete:
	default:
		return nil, fmt.Errorf("unsupported http method %q", method)
	}

	attempts := 0
	resp, err := retry(ctx, c, path, func() (*Response, error) {
		attempts++
		resp, err := c.send(ctx, method, path, params)
		switch Classify(ctx, err) {
		case Success:
			return resp, nil
		case Retryable:
			return nil, err
		default:
			return nil, backoff.Permanent(err)
		}
	})
	if err == nil {
		return resp, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if Classify(ctx, err) == Retryable {
		return nil, &TransientNetworkError{Attempts: attempts, Err: err}
	}
	return nil, err
}

func (c *BinanceClient) send(ctx context.Context, method, path string, params url.Values) (*Response, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = append([]string(nil), v...)
	}
	query.Set("timestamp", strconv.FormatInt(c.signingTime(), 10))
	query.Set("recvWindow", recvWindow)

	encoded := query.Encode()
	reqURL := fmt.Sprintf("%s%s?%s&signature=%s", c.BaseURL, path, encoded, c.sign(encoded))

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, &requestError{err: err}
	}
	req.Header.Add("X-MBX-APIKEY", c.creds.APIKey)

	start := time.Now()
	resp, err := c.Client.Do(req)
	c.tracker.TrackRequest(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.monitorWeight(resp.Header)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *BinanceClient) sign(queryString string) string {
	mac := hmac.New(sha256.New, []byte(c.creds.SecretKey))
	mac.Write([]byte(queryString))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *BinanceClient) monitorWeight(h http.Header) {
	weight := h.Get("X-MBX-USED-WEIGHT-1M")
	if weight == "" {
		return
	}
	used, err := strconv.Atoi(weight)
	if err != nil {
		return
	}
	switch {
	case used >= weightCritical:
		logger.Error("🔥 Binance API Weight Critical", "used_1m", used)
	case used >= weightWarn:
		logger.Warn("🔥 Binance API Weight High", "used_1m", used)
	default:
		logger.Debug("🔥 Binance API Weight", "used_1m", used)
	}
}

func (c *BinanceClient) attempts() uint {
	if c.maxRetries < 1 {
		return 1
	}
	return uint(c.maxRetries)
}

// retry runs op with the client's constant back-off. Errors wrapped with
// backoff.Permanent stop it immediately and are returned unwrapped.
func retry[T any](ctx context.Context, c *BinanceClient, path string, op backoff.Operation[T]) (T, error) {
	tries := c.attempts()
	budget := time.Duration(tries)*(c.retryDelay+c.Client.Timeout) + time.Minute

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryDelay)),
		backoff.WithMaxTries(tries),
		backoff.WithMaxElapsedTime(budget),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.tracker.TrackRetry()
			logger.Warn("🔁 Retrying Binance request", "path", path, "error", err, "next_in", next)
		}),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	return res, err
}
