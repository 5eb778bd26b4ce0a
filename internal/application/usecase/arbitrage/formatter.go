package arbitrage

import (
	"strings"

	"mdrisk/internal/domain/model"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

// RenderTick 单行价差：收敛绿色，发散红色，首个 tick 黄色
func RenderTick(t model.SpreadTick, live bool) string {
	var sb strings.Builder
	if live {
		sb.WriteString("\r")
	}
	sb.WriteString(colorize("[ARB] ", ansiDim))
	sb.WriteString(string(t.Mode))
	sb.WriteString(" ")
	sb.WriteString(string(t.Side))
	sb.WriteString(colorize("  M:", ansiDim) + t.MarginBid.String() + "/" + t.MarginAsk.String())
	sb.WriteString(colorize("  P:", ansiDim) + t.PerpBid.String() + "/" + t.PerpAsk.String())

	col := ansiYellow
	if t.Converging != nil {
		col = ansiRed
		if *t.Converging {
			col = ansiGreen
		}
	}
	sb.WriteString("  ")
	sb.WriteString(colorize(t.Arrow()+" "+t.Spread.Shift(2).StringFixed(4)+"%", col))

	if live {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}
