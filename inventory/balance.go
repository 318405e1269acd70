// Package inventory projects usable balances out of an account snapshot.
package inventory

import (
	"strconv"

	"dexmaker-go/gateway"
)

// DefaultNativeReserve 原生资产的安全底仓，对应账本要求账户保留的
// 最低余额，这部分永远不会拿去挂单。账本最低余额规则变更时需要在
// 配置里跟进调整。
const DefaultNativeReserve = 10.0

// UsableBalance 返回快照中某资产的可用余额。原生资产扣除底仓并
// 不低于零；发行资产没有余额记录（未建立信任线）时视为 0。
// 纯投影，不修改快照。
func UsableBalance(snap *gateway.AccountSnapshot, asset gateway.Asset, nativeReserve float64) float64 {
	for _, b := range snap.Balances {
		if !b.Asset.Equal(asset) {
			continue
		}
		raw, err := strconv.ParseFloat(b.Amount, 64)
		if err != nil {
			return 0
		}
		if asset.IsNative() {
			usable := raw - nativeReserve
			if usable < 0 {
				return 0
			}
			return usable
		}
		return raw
	}
	return 0
}
