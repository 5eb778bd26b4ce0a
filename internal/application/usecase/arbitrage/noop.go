package arbitrage

import (
	"context"
	"time"

	"mdrisk/internal/domain/model"
)

type noopPublisher struct{}

func (noopPublisher) PublishSpread(context.Context, model.SpreadTick) error { return nil }

type noopSink struct{}

func (noopSink) WriteLive(string) error                { return nil }
func (noopSink) WriteSnapshot(time.Time, string) error { return nil }
func (noopSink) NewLine() error                        { return nil }
