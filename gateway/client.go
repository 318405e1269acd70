package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// BatchSigner 提交批次所需的最小签名能力；*Signer 是标准实现。
type BatchSigner interface {
	Address() string
	Sign(payload []byte) string
}

// Client 是再平衡核心消费的账本边界：读账户、读挂单、提交批次。
// 具体实现见 RESTClient；DryRunClient 包装只读版本。
type Client interface {
	LoadAccount(ctx context.Context, accountID string) (*AccountSnapshot, error)
	Offers(ctx context.Context, accountID string) ([]Offer, error)
	SubmitBatch(ctx context.Context, signer BatchSigner, snap *AccountSnapshot, ops []Operation) error
}

var (
	ErrAccountLoad = errors.New("account load failed")
	ErrSubmission  = errors.New("batch submission rejected")
)

// AccountLoadError 标记账户读取失败（如账户不存在）。
type AccountLoadError struct {
	AccountID string
	Err       error
}

func (e *AccountLoadError) Error() string {
	return fmt.Sprintf("load account %s: %v", e.AccountID, e.Err)
}

func (e *AccountLoadError) Unwrap() error { return ErrAccountLoad }

// SubmissionError carries the ledger's rejection detail so operators can
// tell a bad sequence number from an insufficient reserve.
type SubmissionError struct {
	Status      int
	Detail      string
	ResultCodes []string
}

func (e *SubmissionError) Error() string {
	if len(e.ResultCodes) > 0 {
		return fmt.Sprintf("submit batch: status %d: %s [%s]", e.Status, e.Detail, strings.Join(e.ResultCodes, ","))
	}
	return fmt.Sprintf("submit batch: status %d: %s", e.Status, e.Detail)
}

func (e *SubmissionError) Unwrap() error { return ErrSubmission }
