package port

import (
	"context"
	"time"

	"mdrisk/internal/domain/model"
)

// HistoricalFeed 历史收盘价行情源（Yahoo / CoinGecko / Oanda）
type HistoricalFeed interface {
	Name() string
	// FetchPrices 对每个查询时间返回不晚于它的最近一条观测；找不到时该项无匹配
	FetchPrices(ctx context.Context, symbol string, interval model.Interval, queries []time.Time) ([]model.QueryResult, error)
}

// BookStream 实时盘口流，断线自动重连，ctx 结束时关闭 channel
type BookStream interface {
	SubscribeBooks(ctx context.Context, instIDs []string) (<-chan model.BookUpdate, error)
}
