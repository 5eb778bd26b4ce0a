package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"mdrisk/internal/application/port"
	"mdrisk/internal/domain/model"
)

// Func 策略主体；ctx 即取消令牌，主体应在每个循环开头检查
type Func func(ctx context.Context) (any, error)

// Result 最近一次运行结果
type Result struct {
	Name     string
	Started  time.Time
	Finished time.Time
	Value    any
	Err      error
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager name -> 运行中的策略 / 最近结果；同名策略同时只能运行一个
type Manager struct {
	locker  port.RunLocker
	lockTTL time.Duration

	mu      sync.Mutex
	running map[string]*run
	last    map[string]Result
}

// NewManager locker 可为空，此时只做进程内互斥
func NewManager(locker port.RunLocker, lockTTL time.Duration) *Manager {
	return &Manager{
		locker:  locker,
		lockTTL: lockTTL,
		running: make(map[string]*run),
		last:    make(map[string]Result),
	}
}

// Start 在独立 goroutine 中运行 fn
func (m *Manager) Start(ctx context.Context, name string, fn Func) error {
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if _, ok := m.running[name]; ok {
		m.mu.Unlock()
		cancel()
		return fmt.Errorf("%w: %s", model.ErrAlreadyRunning, name)
	}
	m.running[name] = r
	m.mu.Unlock()

	var lease port.RunLease
	if m.locker != nil {
		l, err := m.locker.Acquire(runCtx, name, m.lockTTL)
		if err != nil {
			m.mu.Lock()
			delete(m.running, name)
			m.mu.Unlock()
			cancel()
			close(r.done)
			return err
		}
		lease = l
	}

	started := time.Now()
	log.Info().Str("strategy", name).Msg("strategy started")

	go func() {
		defer close(r.done)
		defer cancel()

		var lost chan error
		if lease != nil && m.lockTTL > 0 {
			lost = make(chan error, 1)
			go m.keepAlive(runCtx, cancel, name, lease, lost)
		}

		v, err := fn(runCtx)
		cancel()
		if lost != nil {
			if lerr := <-lost; lerr != nil {
				err = errors.Join(err, lerr)
			}
		}
		res := Result{Name: name, Started: started, Finished: time.Now(), Value: v, Err: err}
		if lease != nil {
			if rerr := lease.Release(context.Background()); rerr != nil {
				log.Warn().Err(rerr).Str("strategy", name).Msg("release run lock")
			}
		}

		m.mu.Lock()
		delete(m.running, name)
		m.last[name] = res
		m.mu.Unlock()

		ev := log.Info()
		if err != nil {
			ev = log.Error().Err(err)
		}
		ev.Str("strategy", name).Dur("elapsed", res.Finished.Sub(started)).Msg("strategy finished")
	}()
	return nil
}

// keepAlive 每 ttl/3 续期一次，直到 ctx 结束；锁丢失时取消运行。
// 退出时向 lost 写入一次（nil 或 ErrLockLost）
func (m *Manager) keepAlive(ctx context.Context, cancel context.CancelFunc, name string, lease port.RunLease, lost chan<- error) {
	t := time.NewTicker(m.lockTTL / 3)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			lost <- nil
			return
		case <-t.C:
		}
		err := lease.Refresh(ctx, m.lockTTL)
		switch {
		case err == nil:
		case errors.Is(err, model.ErrLockLost):
			log.Error().Err(err).Str("strategy", name).Msg("run lock lost, cancelling")
			cancel()
			lost <- err
			return
		case ctx.Err() != nil:
			lost <- nil
			return
		default:
			// redis 暂时不可用时继续运行，下个周期再试
			log.Warn().Err(err).Str("strategy", name).Msg("refresh run lock")
		}
	}
}

// Stop 请求取消；策略不在运行时返回 false
func (m *Manager) Stop(name string) bool {
	m.mu.Lock()
	r, ok := m.running[name]
	m.mu.Unlock()
	if !ok {
		return false
	}
	r.cancel()
	return true
}

func (m *Manager) Running(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.running[name]
	return ok
}

func (m *Manager) LastResult(name string) (Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.last[name]
	return r, ok
}

// Wait 阻塞直到 name 结束，返回其结果
func (m *Manager) Wait(ctx context.Context, name string) (Result, error) {
	m.mu.Lock()
	r, ok := m.running[name]
	m.mu.Unlock()
	if ok {
		select {
		case <-r.done:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	res, ok := m.LastResult(name)
	if !ok {
		return Result{}, fmt.Errorf("strategy %s: %w", name, model.ErrNotFound)
	}
	return res, nil
}
