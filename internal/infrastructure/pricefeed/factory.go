// Package pricefeed 按 operator 的 discriminator 构造历史行情源
package pricefeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"mdrisk/internal/application/port"
	"mdrisk/internal/domain/model"
	"mdrisk/internal/infrastructure/pricefeed/coingecko"
	"mdrisk/internal/infrastructure/pricefeed/feedhttp"
	"mdrisk/internal/infrastructure/pricefeed/oanda"
	"mdrisk/internal/infrastructure/pricefeed/yahoo"
)

// operatorConfig Operator.Value 的 JSON；所有字段可选
type operatorConfig struct {
	BaseURL string            `json:"base_url"`
	IDs     map[string]string `json:"ids"`
}

// Factory 实现 port.FeedResolver
type Factory struct {
	Timeout   time.Duration
	UserAgent string
}

func NewFactory(timeout time.Duration, userAgent string) *Factory {
	return &Factory{Timeout: timeout, UserAgent: userAgent}
}

// Resolve 未知 discriminator 返回 ErrUnknownOperator
func (f *Factory) Resolve(op model.Operator) (port.HistoricalFeed, error) {
	var cfg operatorConfig
	if len(op.Value) > 0 {
		if err := json.Unmarshal(op.Value, &cfg); err != nil {
			return nil, fmt.Errorf("operator %s: decode value: %w", op.Reference, err)
		}
	}
	opts := feedhttp.Options{BaseURL: cfg.BaseURL, UserAgent: f.UserAgent, Timeout: f.Timeout}

	var feed port.HistoricalFeed
	switch op.Discriminator {
	case model.OperatorYahooFinance:
		feed = yahoo.New(opts)
	case model.OperatorCoinGecko:
		feed = coingecko.New(opts, cfg.IDs)
	case model.OperatorOanda:
		feed = oanda.New()
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownOperator, op.Discriminator)
	}
	log.Debug().Str("operator", op.Reference).Str("feed", feed.Name()).Msg("feed resolved")
	return feed, nil
}
