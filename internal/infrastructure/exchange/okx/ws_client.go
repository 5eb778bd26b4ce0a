package okx

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"mdrisk/internal/domain/model"
)

// BookFeed OKX books5 公共频道
type BookFeed struct {
	wsURL string // e.g., wss://ws.okx.com:8443/ws/v5/public
}

// NewBookFeed creates books5 feed
func NewBookFeed(wsURL string) *BookFeed {
	wsURL = strings.TrimSpace(wsURL)
	if wsURL == "" {
		wsURL = DefaultPublicWSURL
	}
	return &BookFeed{wsURL: wsURL}
}

func (f *BookFeed) Name() string { return "okx" }

type okxSubReq struct {
	Op   string      `json:"op"`
	Args []okxSubArg `json:"args"`
}

type okxSubArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type okxBookMsg struct {
	Event string        `json:"event,omitempty"`
	Code  string        `json:"code,omitempty"`
	Msg   string        `json:"msg,omitempty"`
	Arg   okxSubArg     `json:"arg,omitempty"`
	Data  []okxBookData `json:"data,omitempty"`
}

// okxBookData 每档为 [price, size, 废弃字段, 订单数]
type okxBookData struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
	Ts   string     `json:"ts"`
}

// SubscribeBooks 订阅 books5，断线后按指数退避重连；ctx 结束时关闭 channel
func (f *BookFeed) SubscribeBooks(ctx context.Context, instIDs []string) (<-chan model.BookUpdate, error) {
	if f.wsURL == "" {
		return nil, errors.New("okx wsURL empty")
	}
	args := make([]okxSubArg, 0, len(instIDs))
	for _, id := range instIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		args = append(args, okxSubArg{Channel: "books5", InstID: id})
	}
	if len(args) == 0 {
		return nil, errors.New("instIDs empty")
	}

	out := make(chan model.BookUpdate, 256)
	go f.run(ctx, args, out)
	return out, nil
}

func (f *BookFeed) run(ctx context.Context, args []okxSubArg, out chan<- model.BookUpdate) {
	defer close(out)

	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Debug().Str("feed", f.Name()).Str("url", f.wsURL).Msg("ws connecting")
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, f.wsURL, nil)
		cancel()
		if err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws dial failed")
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Str("feed", f.Name()).Int("channels", len(args)).Msg("ws connected")

		if b, err := json.Marshal(okxSubReq{Op: "subscribe", Args: args}); err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, b)
		}

		err = readLoop(ctx, conn, func(b []byte) {
			upd, ok := decodeBook(b)
			if !ok {
				return
			}
			select {
			case out <- upd:
			case <-ctx.Done():
			}
		})

		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		log.Warn().Str("feed", f.Name()).Err(err).Msg("ws disconnected, reconnecting")
		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = minDur(backoff*2, maxBackoff)
	}
}

// decodeBook 解析一条推送；事件消息（subscribe/error）返回 false
func decodeBook(b []byte) (model.BookUpdate, bool) {
	var msg okxBookMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		log.Error().Err(err).Msg("okx book unmarshal failed")
		return model.BookUpdate{}, false
	}
	if msg.Event == "error" {
		log.Error().Str("code", msg.Code).Str("msg", msg.Msg).Msg("okx ws error")
		return model.BookUpdate{}, false
	}
	if msg.Arg.Channel != "books5" || len(msg.Data) == 0 {
		return model.BookUpdate{}, false
	}

	d := msg.Data[0]
	upd := model.BookUpdate{
		InstID: msg.Arg.InstID,
		Bids:   parseLevels(d.Bids),
		Asks:   parseLevels(d.Asks),
		Ts:     time.Now().UTC(),
	}
	if ts, err := strconv.ParseInt(d.Ts, 10, 64); err == nil {
		upd.Ts = time.UnixMilli(ts).UTC()
	}
	return upd, true
}

func parseLevels(raw [][]string) []model.Level {
	levels := make([]model.Level, 0, len(raw))
	for _, lv := range raw {
		if len(lv) < 2 {
			continue
		}
		px, err1 := decimal.NewFromString(lv[0])
		sz, err2 := decimal.NewFromString(lv[1])
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, model.Level{Price: px, Size: sz})
	}
	return levels
}

func readLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
