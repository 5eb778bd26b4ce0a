package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentKind 合约类型标签，下游按标签分派
type InstrumentKind int

const (
	KindSpot InstrumentKind = iota
	KindPerpetual
	KindDatedFuture
	KindAggregatedTerm
	KindOption
)

func (k InstrumentKind) String() string {
	switch k {
	case KindSpot:
		return "spot"
	case KindPerpetual:
		return "perpetual"
	case KindDatedFuture:
		return "dated_future"
	case KindAggregatedTerm:
		return "aggregated_term"
	case KindOption:
		return "option"
	default:
		return "unknown"
	}
}

type OptionKind string

const (
	OptionCall OptionKind = "C"
	OptionPut  OptionKind = "P"
)

// deliveryHourUTC dated contracts settle at 08:00 UTC on the expiry day.
const deliveryHourUTC = 8

// Instrument 由符号 BASE_QUOTE[_SETTLE[_PERIOD[_STRIKE_C|P]]] 解析得到的描述
type Instrument struct {
	Kind   InstrumentKind
	Base   string
	Quote  string
	Settle string

	// Period is the raw 4th token (YYMMDD, YYYYMMDD or a term name like QUARTERLY).
	Period string
	Expiry time.Time

	Strike     decimal.Decimal
	strikeRaw  string
	OptionKind OptionKind
}

// ParseSymbol 解析符号
//
//	BTC_USDT                  -> Spot
//	BTC_USDT_USDT             -> Perpetual
//	BTC_USDT_USDT_240329      -> DatedFuture
//	BTC_USDT_USDT_QUARTERLY   -> AggregatedTerm
//	BTC_USD_BTC_240329_6e4_C  -> Option
//
// 纯数字的 period 必须是 YYMMDD 或 YYYYMMDD，否则无法得到到期日，
// 其它位数（如 BTC_USDT_USDT_2403）返回 ErrInvalidSymbol。
func ParseSymbol(symbol string) (Instrument, error) {
	parts := strings.Split(symbol, "_")
	if len(parts) < 2 {
		return Instrument{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	for _, p := range parts {
		if p == "" || strings.TrimSpace(p) != p {
			return Instrument{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
		}
	}

	inst := Instrument{Base: parts[0], Quote: parts[1]}
	switch len(parts) {
	case 2:
		inst.Kind = KindSpot
		return inst, nil
	case 3:
		inst.Kind = KindPerpetual
		inst.Settle = parts[2]
		return inst, nil
	case 4, 6:
		inst.Settle = parts[2]
		inst.Period = parts[3]
	default:
		return Instrument{}, fmt.Errorf("%w: %q has %d parts", ErrInvalidSymbol, symbol, len(parts))
	}

	if !isDigits(inst.Period) {
		if len(parts) == 6 {
			return Instrument{}, fmt.Errorf("%w: option %q needs a numeric expiry", ErrInvalidSymbol, symbol)
		}
		inst.Kind = KindAggregatedTerm
		return inst, nil
	}

	expiry, err := ParseExpiry(inst.Period)
	if err != nil {
		return Instrument{}, fmt.Errorf("%w: %q: %v", ErrInvalidSymbol, symbol, err)
	}
	inst.Expiry = expiry

	if len(parts) == 4 {
		inst.Kind = KindDatedFuture
		return inst, nil
	}

	strike, err := decimal.NewFromString(parts[4])
	if err != nil || !strike.IsPositive() {
		return Instrument{}, fmt.Errorf("%w: %q: bad strike", ErrInvalidSymbol, symbol)
	}
	kind := OptionKind(parts[5])
	if kind != OptionCall && kind != OptionPut {
		return Instrument{}, fmt.Errorf("%w: %q: option kind must be C or P", ErrInvalidSymbol, symbol)
	}
	inst.Kind = KindOption
	inst.Strike = strike
	inst.strikeRaw = parts[4]
	inst.OptionKind = kind
	return inst, nil
}

// NewOption builds an option descriptor without going through a symbol.
func NewOption(base, quote, settle string, expiry time.Time, strike decimal.Decimal, kind OptionKind) Instrument {
	return Instrument{
		Kind:       KindOption,
		Base:       base,
		Quote:      quote,
		Settle:     settle,
		Period:     expiry.UTC().Format("060102"),
		Expiry:     expiry,
		Strike:     strike,
		OptionKind: kind,
	}
}

// NewDatedFuture builds a dated future descriptor from an expiry time.
func NewDatedFuture(base, quote, settle string, expiry time.Time) Instrument {
	return Instrument{
		Kind:   KindDatedFuture,
		Base:   base,
		Quote:  quote,
		Settle: settle,
		Period: expiry.UTC().Format("060102"),
		Expiry: expiry,
	}
}

// Symbol 格式化回符号，ParseSymbol 的逆运算
func (i Instrument) Symbol() string {
	parts := []string{i.Base, i.Quote}
	switch i.Kind {
	case KindSpot:
	case KindPerpetual:
		parts = append(parts, i.Settle)
	case KindDatedFuture, KindAggregatedTerm:
		parts = append(parts, i.Settle, i.Period)
	case KindOption:
		strike := i.strikeRaw
		if strike == "" {
			strike = i.Strike.String()
		}
		parts = append(parts, i.Settle, i.Period, strike, string(i.OptionKind))
	}
	return strings.Join(parts, "_")
}

func (i Instrument) String() string { return i.Symbol() }

// Pair returns BASE_QUOTE.
func (i Instrument) Pair() string { return i.Base + "_" + i.Quote }

// Computable 是否可以进入风险引擎
func (i Instrument) Computable() error {
	if i.Kind == KindAggregatedTerm {
		return fmt.Errorf("%w: %s", ErrAggregatedTerm, i.Symbol())
	}
	return nil
}

// ParseExpiry accepts YYMMDD or YYYYMMDD and returns the delivery instant in UTC.
func ParseExpiry(period string) (time.Time, error) {
	var layout string
	switch len(period) {
	case 6:
		layout = "060102"
	case 8:
		layout = "20060102"
	default:
		return time.Time{}, fmt.Errorf("expiry %q must be YYMMDD or YYYYMMDD", period)
	}
	d, err := time.ParseInLocation(layout, period, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(deliveryHourUTC * time.Hour), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
