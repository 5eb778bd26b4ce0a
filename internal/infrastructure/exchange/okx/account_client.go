package okx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"mdrisk/internal/domain/model"
)

// AccountClient OKX 统一账户查询客户端
type AccountClient struct {
	*APIClient
	instruments *InstrumentClient
	// quote 现货余额折算成持仓时使用的计价币
	quote string
}

// NewAccountClient creates account client
func NewAccountClient(client *APIClient, instruments *InstrumentClient) *AccountClient {
	return &AccountClient{APIClient: client, instruments: instruments, quote: "USD"}
}

// SetQuote 设置现货持仓的计价币（报告币种）
func (c *AccountClient) SetQuote(ccy string) {
	if ccy != "" {
		c.quote = ccy
	}
}

// balanceData GET /api/v5/account/balance
type balanceData struct {
	TotalEq string `json:"totalEq"` // 总权益（USD）
	Details []struct {
		Ccy      string `json:"ccy"`      // 币种
		Eq       string `json:"eq"`       // 权益，借币时为负
		CashBal  string `json:"cashBal"`  // 现金余额
		AvailBal string `json:"availBal"` // 可用余额
		Liab     string `json:"liab"`     // 负债
		EqUsd    string `json:"eqUsd"`    // 权益 USD 值
	} `json:"details"`
}

// positionData GET /api/v5/account/positions
type positionData struct {
	InstType string `json:"instType"`
	InstID   string `json:"instId"`
	MgnMode  string `json:"mgnMode"`
	PosSide  string `json:"posSide"` // net / long / short
	Pos      string `json:"pos"`     // 张数，net 模式空头为负
	AvgPx    string `json:"avgPx"`
	MarkPx   string `json:"markPx"`
	LiqPx    string `json:"liqPx"`
	Margin   string `json:"margin"`
	Imr      string `json:"imr"`
}

func (c *AccountClient) fetchBalances(ctx context.Context, ccy string) ([]balanceData, error) {
	params := url.Values{}
	if ccy != "" {
		params.Set("ccy", ccy)
	}
	body, err := c.signedQueryRequest(ctx, http.MethodGet, "/api/v5/account/balance", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch okx balance: %w", err)
	}
	return decodeData[balanceData](body)
}

func (c *AccountClient) fetchPositions(ctx context.Context, instID string) ([]positionData, error) {
	params := url.Values{}
	if instID != "" {
		params.Set("instId", instID)
	}
	body, err := c.signedQueryRequest(ctx, http.MethodGet, "/api/v5/account/positions", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch okx positions: %w", err)
	}
	return decodeData[positionData](body)
}

// Balance 币种权益（借币时为负）
func (c *AccountClient) Balance(ctx context.Context, ccy string) (decimal.Decimal, error) {
	data, err := c.fetchBalances(ctx, ccy)
	if err != nil {
		return decimal.Zero, err
	}
	for _, acct := range data {
		for _, d := range acct.Details {
			if d.Ccy == ccy {
				return decimal.NewFromString(d.Eq)
			}
		}
	}
	return decimal.Zero, nil
}

// Contracts net 模式下的带符号张数
func (c *AccountClient) Contracts(ctx context.Context, instID string) (decimal.Decimal, error) {
	data, err := c.fetchPositions(ctx, instID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range data {
		if p.InstID != instID {
			continue
		}
		pos, err := signedPos(p)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(pos)
	}
	return total, nil
}

// Positions 现货余额 + 衍生品持仓
func (c *AccountClient) Positions(ctx context.Context) ([]model.Position, error) {
	balances, err := c.fetchBalances(ctx, "")
	if err != nil {
		return nil, err
	}
	var out []model.Position
	for _, acct := range balances {
		for _, d := range acct.Details {
			eq, err := decimal.NewFromString(d.Eq)
			if err != nil || eq.IsZero() {
				continue
			}
			inst, err := model.ParseSymbol(d.Ccy + "_" + c.quote)
			if err != nil {
				log.Warn().Err(err).Str("ccy", d.Ccy).Msg("skip balance")
				continue
			}
			out = append(out, model.Position{
				Symbol:      d.Ccy,
				Instrument:  inst,
				Side:        sideOf(eq),
				TokenAmount: eq.Abs(),
				MarginMode:  "cross",
			})
		}
	}

	positions, err := c.fetchPositions(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, p := range positions {
		pos, err := c.derivativePosition(ctx, p)
		if err != nil {
			return nil, err
		}
		if pos != nil {
			out = append(out, *pos)
		}
	}
	return out, nil
}

func (c *AccountClient) derivativePosition(ctx context.Context, p positionData) (*model.Position, error) {
	contracts, err := signedPos(p)
	if err != nil || contracts.IsZero() {
		return nil, err
	}
	inst, err := ParseInstID(p.InstType, p.InstID)
	if err != nil {
		log.Warn().Err(err).Str("inst", p.InstID).Msg("skip position")
		return nil, nil
	}
	info, err := c.instruments.Lookup(ctx, p.InstType, p.InstID)
	if err != nil {
		return nil, err
	}
	// 到期时间以 expTime 为准，合约代码里的日期只精确到天
	if inst.Kind == model.KindDatedFuture || inst.Kind == model.KindOption {
		if exp, ok := info.Expiry(); ok {
			inst.Expiry = exp
		}
	}

	mark := optDecimal(p.MarkPx)
	tokens := contracts.Abs()
	if ct, err := decimal.NewFromString(info.CtVal); err == nil && ct.IsPositive() {
		tokens = tokens.Mul(ct)
		// 反向合约面值以 USD 计
		if info.CtValCcy != "" && info.CtValCcy != inst.Base && mark != nil && mark.IsPositive() {
			tokens = tokens.Div(*mark)
		}
	}
	ca := contracts.Abs()
	return &model.Position{
		Symbol:           p.InstID,
		Instrument:       inst,
		Side:             sideOf(contracts),
		TokenAmount:      tokens,
		ContractAmount:   &ca,
		EntryPrice:       optDecimal(p.AvgPx),
		MarkPrice:        mark,
		LiquidationPrice: optDecimal(p.LiqPx),
		MarginMode:       p.MgnMode,
		Margin:           optDecimal(p.Margin),
	}, nil
}

func signedPos(p positionData) (decimal.Decimal, error) {
	if p.Pos == "" {
		return decimal.Zero, nil
	}
	pos, err := decimal.NewFromString(p.Pos)
	if err != nil {
		return decimal.Zero, fmt.Errorf("okx position %s pos %q: %w", p.InstID, p.Pos, err)
	}
	if p.PosSide == "short" {
		pos = pos.Abs().Neg()
	}
	return pos, nil
}

func sideOf(v decimal.Decimal) model.Side {
	if v.IsNegative() {
		return model.SideShort
	}
	return model.SideLong
}

func optDecimal(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
