package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mdrisk/internal/domain/model"
)

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// parseTime 无时区的输入按 UTC 处理
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want RFC3339 or YYYY-MM-DD)", s)
}

func parseTimes(in []string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(in))
	for _, s := range in {
		t, err := parseTime(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// parsePair base/quote，两边都是资产 reference
func parsePair(s string) (model.Pair, error) {
	base, quote, ok := strings.Cut(s, "/")
	if !ok || base == "" || quote == "" {
		return model.Pair{}, fmt.Errorf("invalid pair %q (want BASE/QUOTE)", s)
	}
	return model.Pair{Base: base, Quote: quote}, nil
}

// parseEntry account=amount
func parseEntry(s string) (model.BalanceEntry, error) {
	acct, amt, ok := strings.Cut(s, "=")
	if !ok || acct == "" {
		return model.BalanceEntry{}, fmt.Errorf("invalid entry %q (want ACCOUNT=AMOUNT)", s)
	}
	v, err := decimal.NewFromString(amt)
	if err != nil {
		return model.BalanceEntry{}, fmt.Errorf("entry %s: %w", acct, err)
	}
	return model.BalanceEntry{AccountReference: acct, Amount: v}, nil
}

func optionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseTime(s)
}
