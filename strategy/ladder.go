// Package strategy 生成以参考汇率为中心、按库存失衡偏移的限价单阶梯。
package strategy

import (
	"math"
	"strconv"
)

// Levels 各档相对参考汇率的价格偏移，如 [0.001, 0.0015, 0.002]。
// 两个方向共用同一组档位。
type Levels []float64

// LadderOrder 一档挂单指令，金额与价格都已按账本最小刻度渲染成
// 7 位小数的定点字符串。
type LadderOrder struct {
	Amount string
	Price  string
}

// Side 指明阶梯挂出哪种资产。
type Side int

const (
	// SellQuote 挂出 quote 资产，价格在汇率基础上向上偏移。
	SellQuote Side = iota + 1
	// SellBase 挂出 base 资产，价格为镜像方向的倒数。
	SellBase
)

func (s Side) sign() float64 {
	if s == SellQuote {
		return 1
	}
	return -1
}

// amountDecimals 账本金额/价格精度。
const amountDecimals = 7

// GenerateLadder 把 total 平均切成 len(levels) 份，沿档位依次分配，
// 输出 (amount, price) 序列。分配额带运行和钳制，舍入后合计不会超过
// total；某档渲染后金额不为正时跳过。total 不为正时返回空序列。
//
// 价格由两部分偏移构成：该档自身的 offset，和按库存比例对整条阶梯的
// 平移 (0.5-ratio)*levels[0]。平移只按最内档缩放，幅度被限制在大约
// 一档价位以内，与阶梯总宽度无关。
func GenerateLadder(total float64, levels Levels, side Side, rate, ratio float64) []LadderOrder {
	if total <= 0 || len(levels) == 0 {
		return nil
	}
	skew := (0.5 - ratio) * levels[0]
	slice := total / float64(len(levels))

	orders := make([]LadderOrder, 0, len(levels))
	sum := 0.0
	for _, offset := range levels {
		amount := truncateAmount(math.Min(slice, total-sum))
		if amount <= 0 {
			continue
		}
		price := levelPrice(rate, offset, skew, side)
		if !(price > 0) || math.IsInf(price, 0) {
			continue
		}
		orders = append(orders, LadderOrder{
			Amount: formatFixed(amount),
			Price:  formatFixed(price),
		})
		sum += amount
	}
	return orders
}

// levelPrice 两个方向共用一条公式，sign ∈ {+1,-1} 决定偏移方向，
// SellBase 侧取倒数。
func levelPrice(rate, offset, skew float64, side Side) float64 {
	factor := 1 + side.sign()*(offset+skew)
	if side == SellQuote {
		return rate * factor
	}
	return 1 / (rate * factor)
}

// truncateAmount 截断到 7 位小数。金额只截不舍入，保证最后一档吸收
// 余数后总分配额仍不超过可卖余额。
func truncateAmount(v float64) float64 {
	return math.Floor(v*1e7) / 1e7
}

func formatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', amountDecimals, 64)
}
