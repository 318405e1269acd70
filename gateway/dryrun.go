package gateway

import (
	"context"

	"go.uber.org/zap"
)

// DryRunClient 透传读取，拦截提交：只记录批次内容，不真正下单。
type DryRunClient struct {
	Inner Client
	Log   *zap.Logger
}

func (d *DryRunClient) LoadAccount(ctx context.Context, accountID string) (*AccountSnapshot, error) {
	return d.Inner.LoadAccount(ctx, accountID)
}

func (d *DryRunClient) Offers(ctx context.Context, accountID string) ([]Offer, error) {
	return d.Inner.Offers(ctx, accountID)
}

func (d *DryRunClient) SubmitBatch(ctx context.Context, signer BatchSigner, snap *AccountSnapshot, ops []Operation) error {
	cancels := 0
	for _, op := range ops {
		if op.IsCancel() {
			cancels++
		}
	}
	if d.Log != nil {
		orders := make([]string, 0, len(ops)-cancels)
		for _, op := range ops {
			if !op.IsCancel() {
				orders = append(orders, op.Selling.String()+" "+op.Amount+"@"+op.Price)
			}
		}
		d.Log.Info("dry_run_batch",
			zap.String("source", signer.Address()),
			zap.Int64("sequence", snap.Sequence+1),
			zap.Int("cancels", cancels),
			zap.Strings("orders", orders),
		)
	}
	return nil
}
