// Package oanda 预留的 Oanda 行情源，尚未接入任何周期
package oanda

import (
	"context"
	"fmt"
	"time"

	"mdrisk/internal/domain/model"
)

const Name = "oanda"

type Feed struct{}

func New() *Feed { return &Feed{} }

func (f *Feed) Name() string { return Name }

// FetchPrices 所有周期都返回 ErrUnsupportedInterval
func (f *Feed) FetchPrices(_ context.Context, symbol string, interval model.Interval, _ []time.Time) ([]model.QueryResult, error) {
	return nil, fmt.Errorf("oanda %s: %w: %s", symbol, model.ErrUnsupportedInterval, interval)
}
