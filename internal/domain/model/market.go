package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset 资产（USD、BTC 等）
type Asset struct {
	Reference     string
	UserReference string
	Symbol        string
	Name          string
	Decimals      int
	IsSettleable  bool
}

// Price 一条价格观测：1 个 base 可以换多少 quote
type Price struct {
	Reference           string
	UserReference       string
	BaseAssetReference  string
	QuoteAssetReference string
	Value               decimal.Decimal
	ConfirmedTime       time.Time
}

// Pair 资产对 (base, quote)，用资产 reference 标识
type Pair struct {
	Base  string
	Quote string
}

// PriceFilter list_prices 的过滤条件，空值表示不过滤
type PriceFilter struct {
	Base   string
	Quote  string
	Gte    time.Time
	Lt     time.Time
	Offset int
	Limit  int
}

// MarkPrice query_mark_prices 的一行结果
type MarkPrice struct {
	Pair      Pair
	QueryTime time.Time
	Price     Price
}

// QueryResult 行情源对单个查询时间点的匹配结果
type QueryResult struct {
	QueryTime    time.Time
	MatchedTime  *time.Time
	MatchedPrice *decimal.Decimal
}

// Matched 是否匹配到了价格
func (r QueryResult) Matched() bool {
	return r.MatchedTime != nil && r.MatchedPrice != nil
}

// Interval 行情周期
type Interval string

const (
	Interval1d Interval = "1d"
)

// BalanceSheet 资产负债快照，其时间点是自动补价的锚点
type BalanceSheet struct {
	Reference     string
	UserReference string
	BalancedTime  time.Time
	Entries       []BalanceEntry
}

type BalanceEntry struct {
	AccountReference string
	Amount           decimal.Decimal
}

// OperatorDiscriminator 行情提供方标签
type OperatorDiscriminator string

const (
	OperatorYahooFinance OperatorDiscriminator = "yahoo_finance"
	OperatorCoinGecko    OperatorDiscriminator = "coingecko"
	OperatorOanda        OperatorDiscriminator = "oanda"
)

// Operator operator_reference -> 提供方与不透明的 JSON 凭证
type Operator struct {
	Reference     string
	UserReference string
	Discriminator OperatorDiscriminator
	Value         []byte
}

// Level 盘口一档
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// BookUpdate 一次订单簿推送（books5 快照）
type BookUpdate struct {
	InstID string
	Bids   []Level
	Asks   []Level
	Ts     time.Time
}
