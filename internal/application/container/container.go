package container

import (
	"time"

	"mdrisk/internal/application/port"
	"mdrisk/internal/application/service"
	domainsvc "mdrisk/internal/domain/service"
)

// RiskSettings 风险服务参数
type RiskSettings struct {
	Currency     string
	RiskFreeRate float64
	// MaxDelta 标记价格最大陈旧度，<0 不限制
	MaxDelta time.Duration
}

// Container 按需构造应用服务，端口由 svc 注入
type Container struct {
	store   port.Store
	ids     port.IDGenerator
	feeds   port.FeedResolver
	account port.AccountClient
	risk    RiskSettings

	priceService    *service.PriceService
	autoFillService *service.AutoFillService
	riskService     *service.RiskService
}

func New(store port.Store, ids port.IDGenerator, feeds port.FeedResolver, account port.AccountClient, risk RiskSettings) *Container {
	return &Container{
		store:   store,
		ids:     ids,
		feeds:   feeds,
		account: account,
		risk:    risk,
	}
}

func (c *Container) Store() port.Store {
	return c.store
}

func (c *Container) FeedResolver() port.FeedResolver {
	return c.feeds
}

func (c *Container) PriceService() *service.PriceService {
	if c.priceService == nil {
		c.priceService = service.NewPriceService(c.store, c.ids)
	}
	return c.priceService
}

func (c *Container) AutoFillService() *service.AutoFillService {
	if c.autoFillService == nil {
		c.autoFillService = service.NewAutoFillService(c.store, c.feeds, c.ids)
	}
	return c.autoFillService
}

func (c *Container) RiskService() *service.RiskService {
	if c.riskService == nil {
		c.riskService = service.NewRiskService(
			c.PriceService(),
			c.store,
			c.account,
			domainsvc.NewRiskEngine(c.risk.RiskFreeRate),
			c.risk.Currency,
			c.risk.MaxDelta,
		)
	}
	return c.riskService
}

func (c *Container) Close() error {
	return c.store.Close()
}
