package gateway

// AssetType 区分原生资产与发行资产。
type AssetType string

const (
	AssetTypeNative AssetType = "native"
	AssetTypeCredit AssetType = "credit_alphanum"
)

// Asset 标识账本上的一种资产；原生资产没有 Code/Issuer。
type Asset struct {
	Type   AssetType `json:"asset_type"`
	Code   string    `json:"asset_code,omitempty"`
	Issuer string    `json:"asset_issuer,omitempty"`
}

// NativeAsset 返回账本原生资产。
func NativeAsset() Asset {
	return Asset{Type: AssetTypeNative}
}

// Credit 返回由 issuer 发行的资产。
func Credit(code, issuer string) Asset {
	return Asset{Type: AssetTypeCredit, Code: code, Issuer: issuer}
}

// IsNative reports whether the asset is the ledger's native asset.
func (a Asset) IsNative() bool {
	return a.Type == AssetTypeNative
}

// Equal 比较两个资产是否同一标识。
func (a Asset) Equal(b Asset) bool {
	if a.IsNative() || b.IsNative() {
		return a.IsNative() && b.IsNative()
	}
	return a.Code == b.Code && a.Issuer == b.Issuer
}

// String returns a short human-readable form used in logs.
func (a Asset) String() string {
	if a.IsNative() {
		return "native"
	}
	return a.Code + ":" + a.Issuer
}

// Balance 账户快照中的一条余额记录。
type Balance struct {
	Asset  Asset  `json:"asset"`
	Amount string `json:"balance"`
}

// AccountSnapshot 是账户的时点读取：序列号、费用参数和按资产的余额。
// 一个快照只用于构造一笔交易，取得后不再修改。
type AccountSnapshot struct {
	AccountID string    `json:"account_id"`
	Sequence  int64     `json:"sequence,string"`
	BaseFee   int64     `json:"base_fee,string"`
	Balances  []Balance `json:"balances"`
}

// Offer 账户当前挂在订单簿上的一个卖单。
type Offer struct {
	ID      int64  `json:"id,string"`
	Seller  string `json:"seller"`
	Selling Asset  `json:"selling"`
	Buying  Asset  `json:"buying"`
	Amount  string `json:"amount"`
	Price   string `json:"price"`
}

// Operation 一条 manage-sell-offer 指令。Amount 为 "0.0000000" 且带
// OfferID 时语义为撤销既有挂单（零额修改即全撤）。
type Operation struct {
	Selling Asset  `json:"selling"`
	Buying  Asset  `json:"buying"`
	Amount  string `json:"amount"`
	Price   string `json:"price"`
	OfferID int64  `json:"offer_id,omitempty,string"`
}

// IsCancel reports whether the operation cancels an existing offer.
func (op Operation) IsCancel() bool {
	return op.OfferID != 0 && op.Amount == ZeroAmount
}

// ZeroAmount 账本的零额表示，固定 7 位小数。
const ZeroAmount = "0.0000000"

// CancelOp builds the zero-amount amend that removes an existing offer.
// Selling/buying/price must match the resting offer exactly.
func CancelOp(offer Offer) Operation {
	return Operation{
		Selling: offer.Selling,
		Buying:  offer.Buying,
		Amount:  ZeroAmount,
		Price:   offer.Price,
		OfferID: offer.ID,
	}
}
