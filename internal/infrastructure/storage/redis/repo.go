package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"mdrisk/internal/application/port"
	"mdrisk/internal/domain/model"
)

// Repo 价差广播（Stream + PubSub）与策略运行锁
type Repo struct {
	rdb          *redis.Client
	prefix       string
	ttl          time.Duration
	keyLatest    string // prefix + ":latest"
	signalStream string
	signalChan   string
}

// SpreadMessage 发布到 stream / channel 的价差
type SpreadMessage struct {
	Ts         int64  `json:"ts_ms"`
	Mode       string `json:"mode"`
	Side       string `json:"side"`
	Spread     string `json:"spread"`
	LastSpread string `json:"last_spread,omitempty"`
	Arrow      string `json:"arrow"`
	MarginBid  string `json:"margin_bid"`
	MarginAsk  string `json:"margin_ask"`
	PerpBid    string `json:"perp_bid"`
	PerpAsk    string `json:"perp_ask"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, signalStream, signalChan string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "mdrisk"
	}
	if strings.TrimSpace(signalStream) == "" {
		signalStream = prefix + ":spreads"
	}
	if strings.TrimSpace(signalChan) == "" {
		signalChan = prefix + ":spreads:pub"
	}
	return &Repo{
		rdb:          rdb,
		prefix:       prefix,
		ttl:          ttl,
		keyLatest:    prefix + ":latest",
		signalStream: signalStream,
		signalChan:   signalChan,
	}
}

func toMessage(t model.SpreadTick) SpreadMessage {
	msg := SpreadMessage{
		Ts:        t.Time.UnixMilli(),
		Mode:      string(t.Mode),
		Side:      string(t.Side),
		Spread:    t.Spread.String(),
		Arrow:     t.Arrow(),
		MarginBid: t.MarginBid.String(),
		MarginAsk: t.MarginAsk.String(),
		PerpBid:   t.PerpBid.String(),
		PerpAsk:   t.PerpAsk.String(),
	}
	if t.LastSpread != nil {
		msg.LastSpread = t.LastSpread.String()
	}
	return msg
}

// PublishSpread XADD 到 stream，PUBLISH 到 channel，并刷新 latest hash
func (r *Repo) PublishSpread(ctx context.Context, tick model.SpreadTick) error {
	msg := toMessage(tick)
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	// 1) Stream: XADD <stream> * ts_ms side spread payload
	if err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.signalStream,
		Values: map[string]any{
			"ts_ms":   msg.Ts,
			"side":    msg.Side,
			"spread":  msg.Spread,
			"payload": string(b),
		},
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", r.signalStream, err)
	}

	// 2) Hash: field = "open:long_margin_short_perp" -> json
	field := msg.Mode + ":" + msg.Side
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, field, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	// 3) PubSub: PUBLISH <channel> json
	pipe.Publish(ctx, r.signalChan, string(b))
	_, err = pipe.Exec(ctx)
	return err
}

// releaseScript 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *Repo) lockKey(name string) string { return r.prefix + ":lock:" + name }

// refreshScript 只续期自己持有的锁
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Acquire SET NX PX；已被占用返回 model.ErrAlreadyRunning
func (r *Repo) Acquire(ctx context.Context, name string, ttl time.Duration) (port.RunLease, error) {
	key := r.lockKey(name)
	token := ulid.Make().String()
	ok, err := r.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s locked by another process", model.ErrAlreadyRunning, name)
	}
	return &lease{rdb: r.rdb, key: key, token: token}, nil
}

type lease struct {
	rdb   *redis.Client
	key   string
	token string
}

func (l *lease) Refresh(ctx context.Context, ttl time.Duration) error {
	n, err := refreshScript.Run(ctx, l.rdb, []string{l.key}, l.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("refresh %s: %w", l.key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", model.ErrLockLost, l.key)
	}
	return nil
}

func (l *lease) Release(ctx context.Context) error {
	err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (r *Repo) Close() error { return r.rdb.Close() }

var (
	_ port.SpreadPublisher = (*Repo)(nil)
	_ port.RunLocker       = (*Repo)(nil)
)
