package okx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"mdrisk/internal/domain/model"
)

// billsPageLimit bills-archive 单页上限
const billsPageLimit = 100

// BillsClient 账单归档（近三个月）
type BillsClient struct {
	*APIClient
}

// NewBillsClient creates bills client
func NewBillsClient(client *APIClient) *BillsClient {
	return &BillsClient{APIClient: client}
}

type billData struct {
	BillID  string `json:"billId"`
	Ccy     string `json:"ccy"`
	BalChg  string `json:"balChg"`
	Fee     string `json:"fee"` // 手续费，扣费为负
	Type    string `json:"type"`
	SubType string `json:"subType"`
	InstID  string `json:"instId"`
	Ts      string `json:"ts"`
}

// BillsArchive GET /api/v5/account/bills-archive，begin/end 为毫秒时间戳（闭区间）。
// 只返回一页，翻页由调用方推进 begin。
func (c *BillsClient) BillsArchive(ctx context.Context, begin, end int64) ([]model.RawBill, error) {
	params := url.Values{}
	params.Set("begin", strconv.FormatInt(begin, 10))
	params.Set("end", strconv.FormatInt(end, 10))
	params.Set("limit", strconv.Itoa(billsPageLimit))

	body, err := c.signedQueryRequest(ctx, http.MethodGet, "/api/v5/account/bills-archive", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch okx bills: %w", err)
	}
	data, err := decodeData[billData](body)
	if err != nil {
		return nil, err
	}

	out := make([]model.RawBill, 0, len(data))
	for _, d := range data {
		bill, err := toRawBill(d)
		if err != nil {
			return nil, err
		}
		out = append(out, bill)
	}
	return out, nil
}

func toRawBill(d billData) (model.RawBill, error) {
	ts, err := strconv.ParseInt(d.Ts, 10, 64)
	if err != nil {
		return model.RawBill{}, fmt.Errorf("okx bill %s ts %q: %w", d.BillID, d.Ts, err)
	}
	balChg, err := parseOptional(d.BalChg)
	if err != nil {
		return model.RawBill{}, fmt.Errorf("okx bill %s balChg: %w", d.BillID, err)
	}
	fee, err := parseOptional(d.Fee)
	if err != nil {
		return model.RawBill{}, fmt.Errorf("okx bill %s fee: %w", d.BillID, err)
	}

	side := ""
	switch d.SubType {
	case "1":
		side = "buy"
	case "2":
		side = "sell"
	}

	return model.RawBill{
		BillID: d.BillID,
		Ts:     ts,
		Ccy:    d.Ccy,
		Type:   d.Type,
		BalChg: balChg,
		Fee:    fee.Neg(),
		InstID: d.InstID,
		Side:   side,
	}, nil
}

func parseOptional(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
