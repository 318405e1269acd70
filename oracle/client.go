// Package oracle fetches reference exchange rates used to center the
// order ladder. 每个报价符号以同一参照物计价，市场汇率由两条腿相除得到。
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// MarketRates 指定在报价表里查询哪两个符号。
type MarketRates struct {
	BaseKey  string
	QuoteKey string
}

// RateSource 为再平衡周期提供一个标量汇率（quote 每 base）。
type RateSource interface {
	FetchRate(ctx context.Context, keys MarketRates) (float64, error)
}

// ErrRateUnavailable 报价响应缺字段或符号时返回；宁可整周期中止，
// 也不能拿零值汇率去挂单。
var ErrRateUnavailable = errors.New("oracle rate unavailable")

// Client 一个最小报价 HTTP 客户端；HTTPClient 可注入 httptest。
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

type ratesPayload struct {
	Rates map[string]string `json:"rates"`
}

// FetchRates 拉取完整报价表：符号 → 十进制字符串。
func (c *Client) FetchRates(ctx context.Context) (map[string]string, error) {
	if c.HTTPClient == nil {
		return nil, fmt.Errorf("http client not set")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/rates", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch rates: status %d", resp.StatusCode)
	}
	payload, err := decodeRates(resp.Body)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// FetchRate 返回 base 以 quote 计价的汇率：rates[base]/rates[quote]。
func (c *Client) FetchRate(ctx context.Context, keys MarketRates) (float64, error) {
	rates, err := c.FetchRates(ctx)
	if err != nil {
		return 0, err
	}
	return rateFromTable(rates, keys)
}

// rateFromTable 两腿相除；符号缺失或任一腿不为正都视为不可用，
// 零值汇率会导致灾难性的错价挂单，必须快速失败。
func rateFromTable(rates map[string]string, keys MarketRates) (float64, error) {
	base, err := lookupRate(rates, keys.BaseKey)
	if err != nil {
		return 0, err
	}
	quote, err := lookupRate(rates, keys.QuoteKey)
	if err != nil {
		return 0, err
	}
	if base <= 0 {
		return 0, fmt.Errorf("%w: non-positive rate for %s", ErrRateUnavailable, keys.BaseKey)
	}
	if quote <= 0 {
		return 0, fmt.Errorf("%w: non-positive rate for %s", ErrRateUnavailable, keys.QuoteKey)
	}
	return base / quote, nil
}

// decodeRates 解析报价响应；顶层 rates 字段缺失视为响应损坏，快速失败。
func decodeRates(r io.Reader) (map[string]string, error) {
	var payload ratesPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	if payload.Rates == nil {
		return nil, fmt.Errorf("%w: missing rates field", ErrRateUnavailable)
	}
	return payload.Rates, nil
}

func lookupRate(rates map[string]string, key string) (float64, error) {
	raw, ok := rates[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing symbol %s", ErrRateUnavailable, key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad rate %q for %s", ErrRateUnavailable, raw, key)
	}
	return v, nil
}
