package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillType 账单语义类型
type BillType string

const (
	BillTradeFee          BillType = "trade_fee"
	BillInterestDeduction BillType = "interest_deduction"
	BillFundingFee        BillType = "funding_fee"
)

// RawBill OKX bills-archive 的一行（已解析为十进制）
type RawBill struct {
	BillID string
	Ts     int64
	Ccy    string
	Type   string
	BalChg decimal.Decimal
	// Fee is the fee cost as a positive number.
	Fee    decimal.Decimal
	InstID string
	Side   string
}

// Bill 分类后的账单，只追加，按时间排序
type Bill struct {
	Timestamp     time.Time
	Currency      string
	Type          BillType
	BalanceChange decimal.Decimal
	Symbol        string
	Side          string
}

// CashFlow 现金流表的一行：Balance 为该币种的累计余额
type CashFlow struct {
	Bill
	Balance decimal.Decimal
}

// FeeBalances 币种 -> 余额
type FeeBalances map[string]decimal.Decimal
