package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RESTClient 一个最小账本 HTTP 客户端；HTTPClient 可注入 httptest。
// 所有读写都走节点的 REST 接口，提交前用市场密钥对规范化批次签名。
type RESTClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Limiter    RateLimiter

	// TxTimebound 交易有效窗口；节点在窗口外拒绝执行。
	TxTimebound time.Duration
	// BaseFee 账户快照未携带费用参数时的兜底单笔操作费。
	BaseFee int64
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// LoadAccount 读取账户时点快照（序列号、费用、余额）。
func (c *RESTClient) LoadAccount(ctx context.Context, accountID string) (*AccountSnapshot, error) {
	var snap AccountSnapshot
	if err := c.getJSON(ctx, "/accounts/"+accountID, &snap); err != nil {
		return nil, &AccountLoadError{AccountID: accountID, Err: err}
	}
	if snap.AccountID == "" {
		return nil, &AccountLoadError{AccountID: accountID, Err: fmt.Errorf("empty account payload")}
	}
	return &snap, nil
}

type offersResp struct {
	Offers []Offer `json:"offers"`
}

// Offers 列出账户当前全部挂单。
func (c *RESTClient) Offers(ctx context.Context, accountID string) ([]Offer, error) {
	var resp offersResp
	if err := c.getJSON(ctx, "/accounts/"+accountID+"/offers", &resp); err != nil {
		return nil, fmt.Errorf("list offers for %s: %w", accountID, err)
	}
	return resp.Offers, nil
}

// batchEnvelope 提交给节点的交易信封。Signature 覆盖其余字段的
// 规范化 JSON 编码。
type batchEnvelope struct {
	Source     string      `json:"source"`
	Sequence   int64       `json:"sequence,string"`
	Fee        int64       `json:"fee,string"`
	MaxTime    int64       `json:"max_time,string"`
	Operations []Operation `json:"operations"`
	Signature  string      `json:"signature,omitempty"`
}

type submitErrResp struct {
	Detail string `json:"detail"`
	Extras struct {
		ResultCodes []string `json:"result_codes"`
	} `json:"extras"`
}

// SubmitBatch 将撤单+挂单指令打包成一笔交易提交；节点整批原子执行。
// 序列号取自快照加一，整批要么全部生效要么全部失败。
func (c *RESTClient) SubmitBatch(ctx context.Context, signer BatchSigner, snap *AccountSnapshot, ops []Operation) error {
	if c.HTTPClient == nil {
		return fmt.Errorf("http client not set")
	}
	if len(ops) == 0 {
		return nil
	}
	timebound := c.TxTimebound
	if timebound <= 0 {
		timebound = 30 * time.Second
	}
	fee := snap.BaseFee
	if fee <= 0 {
		fee = c.BaseFee
	}
	if fee <= 0 {
		fee = 200
	}
	env := batchEnvelope{
		Source:     signer.Address(),
		Sequence:   snap.Sequence + 1,
		Fee:        fee * int64(len(ops)),
		MaxTime:    time.Now().Add(timebound).Unix(),
		Operations: ops,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	env.Signature = signer.Sign(payload)
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}

	if c.Limiter != nil {
		c.Limiter.Wait()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &SubmissionError{Detail: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var er submitErrResp
		raw, _ := io.ReadAll(resp.Body)
		if jsonErr := json.Unmarshal(raw, &er); jsonErr != nil || er.Detail == "" {
			er.Detail = string(raw)
		}
		return &SubmissionError{
			Status:      resp.StatusCode,
			Detail:      er.Detail,
			ResultCodes: er.Extras.ResultCodes,
		}
	}
	return nil
}

func (c *RESTClient) getJSON(ctx context.Context, path string, out interface{}) error {
	if c.HTTPClient == nil {
		return fmt.Errorf("http client not set")
	}
	if c.Limiter != nil {
		c.Limiter.Wait()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
