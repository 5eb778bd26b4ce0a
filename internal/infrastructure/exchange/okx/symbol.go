package okx

import (
	"fmt"
	"strings"

	"mdrisk/internal/domain/model"
)

// OKX instType
const (
	InstSpot    = "SPOT"
	InstMargin  = "MARGIN"
	InstSwap    = "SWAP"
	InstFutures = "FUTURES"
	InstOption  = "OPTION"
)

// InstID 把通用合约描述映射为 OKX instId
//
//	BTC_USDT                 -> BTC-USDT
//	BTC_USDT_USDT            -> BTC-USDT-SWAP
//	BTC_USD_BTC              -> BTC-USD-SWAP
//	BTC_USD_BTC_240329       -> BTC-USD-240329
//	BTC_USD_BTC_240329_6e4_C -> BTC-USD-240329-60000-C
func InstID(inst model.Instrument) (string, error) {
	pair := inst.Base + "-" + inst.Quote
	switch inst.Kind {
	case model.KindSpot:
		return pair, nil
	case model.KindPerpetual:
		return pair + "-SWAP", nil
	case model.KindDatedFuture:
		return pair + "-" + inst.Expiry.UTC().Format("060102"), nil
	case model.KindOption:
		return fmt.Sprintf("%s-%s-%s-%s", pair, inst.Expiry.UTC().Format("060102"), inst.Strike.String(), inst.OptionKind), nil
	}
	return "", fmt.Errorf("%w: %s has no okx instrument", model.ErrInvalidSymbol, inst.Symbol())
}

// ParseInstID OKX instId -> 通用合约描述。
// 结算币：-USDT-/-USDC- 线性合约以 quote 结算，-USD- 反向合约以 base 结算。
func ParseInstID(instType, instID string) (model.Instrument, error) {
	parts := strings.Split(instID, "-")
	if len(parts) < 2 {
		return model.Instrument{}, fmt.Errorf("%w: okx %q", model.ErrInvalidSymbol, instID)
	}
	base, quote := parts[0], parts[1]
	settle := quote
	if quote == "USD" {
		settle = base
	}

	if instType == "" {
		instType = inferInstType(parts)
	}

	var symbol string
	switch {
	case (instType == InstSpot || instType == InstMargin) && len(parts) == 2:
		symbol = base + "_" + quote
	case instType == InstSwap && len(parts) == 3:
		symbol = base + "_" + quote + "_" + settle
	case instType == InstFutures && len(parts) == 3:
		symbol = base + "_" + quote + "_" + settle + "_" + parts[2]
	case instType == InstOption && len(parts) == 5:
		symbol = strings.Join([]string{base, quote, settle, parts[2], parts[3], parts[4]}, "_")
	default:
		return model.Instrument{}, fmt.Errorf("%w: okx %s %q", model.ErrInvalidSymbol, instType, instID)
	}
	return model.ParseSymbol(symbol)
}

func inferInstType(parts []string) string {
	switch {
	case len(parts) == 2:
		return InstSpot
	case len(parts) == 3 && parts[2] == "SWAP":
		return InstSwap
	case len(parts) == 3:
		return InstFutures
	case len(parts) == 5:
		return InstOption
	}
	return ""
}

// MarginInstID BTC, USDT -> BTC-USDT
func MarginInstID(base, quote string) string { return base + "-" + quote }

// SwapInstID BTC, USDT -> BTC-USDT-SWAP
func SwapInstID(base, quote string) string { return base + "-" + quote + "-SWAP" }
