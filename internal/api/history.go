package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cenkalti/backoff/v5"

	"binance-futures-export/internal/model"
)

const (
	PathExchangeInfo = "/fapi/v1/exchangeInfo"
	PathUserTrades   = "/fapi/v1/userTrades"
	PathAllOrders    = "/fapi/v1/allOrders"

	// PageLimit is the largest page the history endpoints return.
	PageLimit = 1000
)

func (c *BinanceClient) GetExchangeInfo(ctx context.Context) (*model.ExchangeInfoResponse, error) {
	return fetch(ctx, c, PathExchangeInfo, nil, func(body []byte) (*model.ExchangeInfoResponse, error) {
		var info model.ExchangeInfoResponse
		if err := json.Unmarshal(body, &info); err != nil {
			return nil, err
		}
		return &info, nil
	})
}

// GetUserTradesInWindow returns up to limit trades with startTime <= time <= endTime.
func (c *BinanceClient) GetUserTradesInWindow(ctx context.Context, symbol string, start, end int64, limit int) ([]model.Record, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("startTime", strconv.FormatInt(start, 10))
	params.Set("endTime", strconv.FormatInt(end, 10))
	params.Set("limit", strconv.Itoa(limit))
	return fetch(ctx, c, PathUserTrades, params, model.DecodeRecords)
}

// GetUserTradesFromID returns up to limit trades with id >= fromID.
func (c *BinanceClient) GetUserTradesFromID(ctx context.Context, symbol string, fromID int64, limit int) ([]model.Record, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("fromId", strconv.FormatInt(fromID, 10))
	params.Set("limit", strconv.Itoa(limit))
	return fetch(ctx, c, PathUserTrades, params, model.DecodeRecords)
}

// GetAllOrdersFromID returns up to limit orders with orderId >= orderID.
func (c *BinanceClient) GetAllOrdersFromID(ctx context.Context, symbol string, orderID int64, limit int) ([]model.Record, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))
	params.Set("limit", strconv.Itoa(limit))
	return fetch(ctx, c, PathAllOrders, params, model.DecodeRecords)
}

// fetch issues one GET and decodes the body. Throttling and server errors
// are re-tried with the client's retry budget; any other status or a body
// that does not decode is an *UnexpectedResponseError.
func fetch[T any](ctx context.Context, c *BinanceClient, path string, params url.Values, decode func([]byte) (T, error)) (T, error) {
	return retry(ctx, c, path, func() (T, error) {
		var zero T

		resp, err := c.Execute(ctx, http.MethodGet, path, params)
		if err != nil {
			return zero, backoff.Permanent(err)
		}

		switch ClassifyStatus(resp.StatusCode) {
		case Success:
		case Retryable:
			return zero, &UnexpectedResponseError{Path: path, StatusCode: resp.StatusCode, Body: snippet(resp.Body)}
		default:
			return zero, backoff.Permanent(&UnexpectedResponseError{Path: path, StatusCode: resp.StatusCode, Body: snippet(resp.Body)})
		}

		v, err := decode(resp.Body)
		if err != nil {
			return zero, backoff.Permanent(&UnexpectedResponseError{
				Path:       path,
				StatusCode: resp.StatusCode,
				Body:       snippet(resp.Body),
				Err:        fmt.Errorf("decode: %w", err),
			})
		}
		return v, nil
	})
}
