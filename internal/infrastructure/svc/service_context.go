package svc

import (
	"context"
	"errors"
	"fmt"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"mdrisk/internal/application/container"
	"mdrisk/internal/application/port"
	"mdrisk/internal/application/strategy"
	"mdrisk/internal/application/usecase/arbitrage"
	"mdrisk/internal/application/usecase/bills"
	"mdrisk/internal/domain/model"
	domainsvc "mdrisk/internal/domain/service"
	"mdrisk/internal/infrastructure/config"
	"mdrisk/internal/infrastructure/exchange/okx"
	"mdrisk/internal/infrastructure/id"
	"mdrisk/internal/infrastructure/pricefeed"
	"mdrisk/internal/infrastructure/storage/csvstore"
	"mdrisk/internal/infrastructure/storage/postgres"
	redisrepo "mdrisk/internal/infrastructure/storage/redis"
	"mdrisk/internal/infrastructure/storage/sqlite"
	"mdrisk/internal/interfaces/console"
)

type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// 基础设施层（第一层初始化）
	store     port.Store
	ids       *id.Generator
	okxClient *okx.Client
	redisRepo *redisrepo.Repo

	// 输出端口
	Sink     port.Sink
	Reporter *console.Reporter

	// 应用业务组件（依赖基础设施）
	Container *container.Container
	Strategy  *strategy.Manager

	// 资源管理
	closerChain []func() error
}

// New 创建并初始化 ServiceContext
// 这是应用启动的唯一入口点，所有依赖初始化都在这里完成
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		ids:         id.New(false),
		Sink:        console.NewSink(),
		Reporter:    console.NewReporter(),
		closerChain: make([]func() error, 0),
	}

	// 初始化所有组件，按依赖顺序
	if err := sc.initializeComponents(); err != nil {
		// 清理已初始化的资源
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

// initializeComponents 存储 -> redis -> 交易所客户端 -> 应用服务
func (sc *ServiceContext) initializeComponents() error {
	if err := sc.initializeStorage(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInitFailed, err)
	}
	if sc.Config.Redis.Enabled {
		if err := sc.initRedis(); err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
	}

	sc.okxClient = okx.NewClient(okx.Options{
		BaseURL:    sc.Config.OKX.RestURL,
		APIKey:     sc.Config.OKX.APIKey,
		APISecret:  sc.Config.OKX.APISecret,
		Passphrase: sc.Config.OKX.Passphrase,
		Simulated:  sc.Config.OKX.Simulated,
	})
	sc.okxClient.Account.SetQuote(sc.Config.Risk.ReportingCurrency)

	maxDelta := time.Duration(-1)
	if sc.Config.Risk.MaxDeltaMs > 0 {
		maxDelta = time.Duration(sc.Config.Risk.MaxDeltaMs) * time.Millisecond
	}
	feeds := pricefeed.NewFactory(time.Duration(sc.Config.Feeds.TimeoutSeconds)*time.Second, sc.Config.Feeds.UserAgent)
	sc.Container = container.New(sc.store, sc.ids, feeds, sc.okxClient.Account, container.RiskSettings{
		Currency:     sc.Config.Risk.ReportingCurrency,
		RiskFreeRate: sc.Config.Risk.RiskFreeRate,
		MaxDelta:     maxDelta,
	})

	var locker port.RunLocker
	if sc.redisRepo != nil {
		locker = sc.redisRepo
	}
	sc.Strategy = strategy.NewManager(locker, time.Duration(sc.Config.Arbitrage.LockTTLSeconds)*time.Second)

	log.Info().
		Str("storage", sc.Config.Storage.Driver).
		Bool("redis", sc.redisRepo != nil).
		Bool("okx_private", sc.Config.HasOKXCredentials()).
		Msg("✓ All components initialized")
	return nil
}

// initializeStorage sqlite 或 postgres
func (sc *ServiceContext) initializeStorage() error {
	var (
		store port.Store
		err   error
	)
	switch sc.Config.Storage.Driver {
	case "postgres":
		store, err = postgres.New(sc.Ctx, sc.Config.Storage.Postgres.DSN)
	default:
		store, err = sqlite.New(sc.Ctx, sc.Config.Storage.SQLite.Path)
	}
	if err != nil {
		return err
	}
	sc.store = store

	// 注册关闭回调
	sc.closerChain = append(sc.closerChain, func() error {
		log.Debug().Str("driver", sc.Config.Storage.Driver).Msg("closing store")
		return store.Close()
	})

	log.Info().Str("driver", sc.Config.Storage.Driver).Msg("✓ Store initialized")
	return nil
}

// initRedis 初始化 Redis 连接
func (sc *ServiceContext) initRedis() error {
	rdb := redisclient.NewClient(&redisclient.Options{
		Addr:     sc.Config.Redis.Addr,
		Password: sc.Config.Redis.Password,
		DB:       sc.Config.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	sc.redisRepo = redisrepo.New(
		rdb,
		sc.Config.Redis.Prefix,
		time.Duration(sc.Config.Redis.TTLSeconds)*time.Second,
		sc.Config.Redis.SignalStream,
		sc.Config.Redis.SignalChannel,
	)

	sc.closerChain = append(sc.closerChain, func() error {
		log.Debug().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", sc.Config.Redis.Addr).
		Int("db", sc.Config.Redis.DB).
		Msg("✓ Redis initialized")
	return nil
}

// NewID 实体 reference
func (sc *ServiceContext) NewID() string { return sc.ids.NewID() }

// requireCredentials 私有接口前检查
func (sc *ServiceContext) requireCredentials() error {
	if !sc.Config.HasOKXCredentials() {
		return ErrMissingCredentials
	}
	return nil
}

// ArbitrageService 构建开/平仓所需的依赖
func (sc *ServiceContext) ArbitrageService() (*arbitrage.Service, error) {
	if err := sc.requireCredentials(); err != nil {
		return nil, err
	}
	deps := arbitrage.ServiceDeps{
		Venue:         "okx",
		Books:         okx.NewBookFeed(sc.Config.OKX.WsPublicURL),
		Orders:        sc.okxClient.Orders,
		Instruments:   sc.okxClient.Instruments,
		Account:       sc.okxClient.Account,
		IDs:           id.New(true),
		Sink:          sc.Sink,
		RetryInterval: time.Duration(sc.Config.Arbitrage.RetryIntervalMs) * time.Millisecond,
	}
	if sc.redisRepo != nil {
		deps.Publisher = sc.redisRepo
	}
	return arbitrage.NewService(deps), nil
}

// ArbitrageParams 由配置推出 instId
func (sc *ServiceContext) ArbitrageParams(mode model.ArbMode, sideOverride string) (arbitrage.Params, error) {
	c := sc.Config.Arbitrage
	if c.Base == "" {
		return arbitrage.Params{}, errors.New("arbitrage.base is empty")
	}
	sideName := c.Side
	if sideOverride != "" {
		sideName = sideOverride
	}
	side, ok := model.ParseArbSide(sideName)
	if !ok {
		return arbitrage.Params{}, fmt.Errorf("unknown arbitrage side %q", sideName)
	}
	return arbitrage.Params{
		Mode:         mode,
		Side:         side,
		Base:         c.Base,
		Quote:        c.Quote,
		MarginInstID: okx.MarginInstID(c.Base, c.Quote),
		PerpInstID:   okx.SwapInstID(c.Base, c.Quote),
		MaxNotional:  decimal.NewFromFloat(c.MaxNotional),
	}, nil
}

// BillsAggregator OKX 账单 -> CSV；账单接口单独限速
func (sc *ServiceContext) BillsAggregator() (*bills.Aggregator, error) {
	if err := sc.requireCredentials(); err != nil {
		return nil, err
	}
	store, err := csvstore.New(sc.Config.Bills.BuildDir)
	if err != nil {
		return nil, err
	}
	api := okx.NewAPIClient(okx.Options{
		BaseURL:    sc.Config.OKX.RestURL,
		APIKey:     sc.Config.OKX.APIKey,
		APISecret:  sc.Config.OKX.APISecret,
		Passphrase: sc.Config.OKX.Passphrase,
		Simulated:  sc.Config.OKX.Simulated,
		RatePerSec: sc.Config.OKX.BillsRatePerSec,
	})
	return bills.NewAggregator(okx.NewBillsClient(api), store, domainsvc.BillWindow), nil
}

// RiskReady 风险报告需要账户接口
func (sc *ServiceContext) RiskReady() error {
	return sc.requireCredentials()
}

// Close 按照相反的顺序关闭所有资源
func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	sc.closerChain = nil
	return nil
}
