package okx

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"mdrisk/internal/domain/model"
)

// OrderClient OKX 下单客户端
type OrderClient struct {
	*APIClient
}

// NewOrderClient 创建下单客户端
func NewOrderClient(client *APIClient) *OrderClient {
	return &OrderClient{APIClient: client}
}

// placeOrderRequest POST /api/v5/trade/order
type placeOrderRequest struct {
	InstID  string `json:"instId"`
	TdMode  string `json:"tdMode"`
	Side    string `json:"side"`
	PosSide string `json:"posSide,omitempty"`
	OrdType string `json:"ordType"`
	Sz      string `json:"sz"`
	Ccy     string `json:"ccy,omitempty"`
	ClOrdID string `json:"clOrdId,omitempty"`
}

type placeOrderAck struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

// PlaceOrder 全仓市价单（tdMode=cross, posSide=net）。
// 杠杆市价买单 sz 为计价币金额，由调用方按规则表换算。
func (c *OrderClient) PlaceOrder(ctx context.Context, req model.OrderRequest) (model.OrderResult, error) {
	body := placeOrderRequest{
		InstID:  req.InstID,
		TdMode:  "cross",
		Side:    string(req.Side),
		PosSide: "net",
		OrdType: "market",
		Sz:      req.Size.String(),
		ClOrdID: req.ClientOrderID,
	}
	if req.Market == model.MarketMargin {
		body.Ccy = req.Ccy
	}

	raw, err := c.signedJSONRequest(ctx, http.MethodPost, "/api/v5/trade/order", body)
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("place order %s: %w", req.InstID, err)
	}
	acks, err := decodeData[placeOrderAck](raw)
	if len(acks) > 0 && acks[0].SCode != "" && acks[0].SCode != "0" {
		return model.OrderResult{}, fmt.Errorf("place order %s: %w", req.InstID, &APIError{Code: acks[0].SCode, Msg: acks[0].SMsg})
	}
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("place order %s: %w", req.InstID, err)
	}
	if len(acks) == 0 {
		return model.OrderResult{}, errors.New("place order: empty ack")
	}

	log.Info().Str("inst", req.InstID).Str("side", string(req.Side)).Str("sz", body.Sz).
		Str("unit", string(req.Unit)).Str("ord_id", acks[0].OrdID).Msg("okx order placed")
	return model.OrderResult{OrderID: acks[0].OrdID, ClientOrderID: acks[0].ClOrdID, InstID: req.InstID}, nil
}
