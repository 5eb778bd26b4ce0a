// Package sqlstore database/sql 版 port.Store，sqlite 与 postgres 共用
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"mdrisk/internal/application/port"
	"mdrisk/internal/domain/model"
)

// querier *sql.DB 与 *sql.Tx 的公共部分
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db      *sql.DB
	q       querier
	dialect Dialect
	inTx    bool
}

// New 执行建表并返回 Store；db 的生命周期归 Store 所有
func New(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	s := &Store{db: db, q: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.inTx {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.statements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s migrate: %w", s.dialect.Name, err)
		}
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	_, err := s.q.ExecContext(ctx, s.dialect.rebind(query), args...)
	return err
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.dialect.rebind(query), args...)
}

// WithTx 嵌套调用复用外层事务
func (s *Store) WithTx(ctx context.Context, fn func(tx port.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txStore := &Store{db: s.db, q: tx, dialect: s.dialect, inTx: true}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ===== assets =====

func (s *Store) SaveAsset(ctx context.Context, a model.Asset) error {
	return s.exec(ctx, `
		INSERT INTO assets(reference, user_reference, symbol, name, decimals, is_settleable)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(reference) DO UPDATE SET
		symbol=excluded.symbol, name=excluded.name, decimals=excluded.decimals, is_settleable=excluded.is_settleable`,
		a.Reference, a.UserReference, a.Symbol, a.Name, a.Decimals, boolInt(a.IsSettleable))
}

func (s *Store) ListAssets(ctx context.Context, user string) ([]model.Asset, error) {
	rows, err := s.query(ctx, `
		SELECT reference, user_reference, symbol, name, decimals, is_settleable
		FROM assets WHERE user_reference = ? ORDER BY symbol`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Asset
	for rows.Next() {
		var a model.Asset
		var settleable int
		if err := rows.Scan(&a.Reference, &a.UserReference, &a.Symbol, &a.Name, &a.Decimals, &settleable); err != nil {
			return nil, err
		}
		a.IsSettleable = settleable != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

// ===== prices =====

const priceColumns = `reference, user_reference, base_asset_reference, quote_asset_reference, value, confirmed_time_ms`

func (s *Store) InsertPrice(ctx context.Context, p model.Price) error {
	err := s.exec(ctx, `INSERT INTO prices(`+priceColumns+`) VALUES(?, ?, ?, ?, ?, ?)`,
		p.Reference, p.UserReference, p.BaseAssetReference, p.QuoteAssetReference, p.Value.String(), p.ConfirmedTime.UnixMilli())
	if err != nil && s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", model.ErrPriceConflict, err)
	}
	return err
}

func (s *Store) ListPrices(ctx context.Context, user string, f model.PriceFilter) ([]model.Price, error) {
	var (
		where = []string{"user_reference = ?"}
		args  = []any{user}
	)
	if f.Base != "" {
		where = append(where, "base_asset_reference = ?")
		args = append(args, f.Base)
	}
	if f.Quote != "" {
		where = append(where, "quote_asset_reference = ?")
		args = append(args, f.Quote)
	}
	if !f.Gte.IsZero() {
		where = append(where, "confirmed_time_ms >= ?")
		args = append(args, f.Gte.UnixMilli())
	}
	if !f.Lt.IsZero() {
		where = append(where, "confirmed_time_ms < ?")
		args = append(args, f.Lt.UnixMilli())
	}

	q := `SELECT ` + priceColumns + ` FROM prices WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY confirmed_time_ms DESC, reference DESC`
	switch {
	case f.Limit > 0:
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	case f.Offset > 0:
		q += ` LIMIT ` + s.dialect.NoLimit + ` OFFSET ?`
		args = append(args, f.Offset)
	}
	return s.scanPrices(ctx, q, args...)
}

// ScanPrices 一次范围扫描，按 confirmed_time 升序
func (s *Store) ScanPrices(ctx context.Context, user string, pairs []model.Pair, gte, lte time.Time) ([]model.Price, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	args := []any{user, gte.UnixMilli(), lte.UnixMilli()}
	ors := make([]string, 0, len(pairs))
	for _, p := range pairs {
		ors = append(ors, "(base_asset_reference = ? AND quote_asset_reference = ?)")
		args = append(args, p.Base, p.Quote)
	}
	q := `SELECT ` + priceColumns + ` FROM prices
		WHERE user_reference = ? AND confirmed_time_ms >= ? AND confirmed_time_ms <= ?
		AND (` + strings.Join(ors, " OR ") + `)
		ORDER BY confirmed_time_ms ASC`
	return s.scanPrices(ctx, q, args...)
}

func (s *Store) ConfirmedTimes(ctx context.Context, user string, pair model.Pair) ([]time.Time, error) {
	rows, err := s.query(ctx, `
		SELECT confirmed_time_ms FROM prices
		WHERE user_reference = ? AND base_asset_reference = ? AND quote_asset_reference = ?
		ORDER BY confirmed_time_ms`, user, pair.Base, pair.Quote)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, err
		}
		out = append(out, time.UnixMilli(ms).UTC())
	}
	return out, rows.Err()
}

func (s *Store) scanPrices(ctx context.Context, q string, args ...any) ([]model.Price, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Price
	for rows.Next() {
		var (
			p     model.Price
			value string
			ms    int64
		)
		if err := rows.Scan(&p.Reference, &p.UserReference, &p.BaseAssetReference, &p.QuoteAssetReference, &value, &ms); err != nil {
			return nil, err
		}
		if p.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("price %s value %q: %w", p.Reference, value, err)
		}
		p.ConfirmedTime = time.UnixMilli(ms).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// ===== balance sheets =====

func (s *Store) SaveBalanceSheet(ctx context.Context, b model.BalanceSheet) error {
	return s.WithTx(ctx, func(tx port.Store) error {
		ts := tx.(*Store)
		if err := ts.exec(ctx, `
			INSERT INTO balance_sheets(reference, user_reference, balanced_time_ms) VALUES(?, ?, ?)
			ON CONFLICT(reference) DO UPDATE SET balanced_time_ms=excluded.balanced_time_ms`,
			b.Reference, b.UserReference, b.BalancedTime.UnixMilli()); err != nil {
			return err
		}
		if err := ts.exec(ctx, `DELETE FROM balance_entries WHERE balance_sheet_reference = ?`, b.Reference); err != nil {
			return err
		}
		for _, e := range b.Entries {
			if err := ts.exec(ctx, `
				INSERT INTO balance_entries(balance_sheet_reference, account_reference, amount) VALUES(?, ?, ?)`,
				b.Reference, e.AccountReference, e.Amount.String()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListBalanceSheets(ctx context.Context, user string) ([]model.BalanceSheet, error) {
	rows, err := s.query(ctx, `
		SELECT b.reference, b.user_reference, b.balanced_time_ms, e.account_reference, e.amount
		FROM balance_sheets b
		LEFT JOIN balance_entries e ON e.balance_sheet_reference = b.reference
		WHERE b.user_reference = ?
		ORDER BY b.balanced_time_ms, b.reference`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BalanceSheet
	for rows.Next() {
		var (
			ref, owner string
			ms         int64
			account    sql.NullString
			amount     sql.NullString
		)
		if err := rows.Scan(&ref, &owner, &ms, &account, &amount); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].Reference != ref {
			out = append(out, model.BalanceSheet{Reference: ref, UserReference: owner, BalancedTime: time.UnixMilli(ms).UTC()})
		}
		if account.Valid {
			amt, err := decimal.NewFromString(amount.String)
			if err != nil {
				return nil, fmt.Errorf("balance sheet %s amount %q: %w", ref, amount.String, err)
			}
			last := &out[len(out)-1]
			last.Entries = append(last.Entries, model.BalanceEntry{AccountReference: account.String, Amount: amt})
		}
	}
	return out, rows.Err()
}

// ===== operators =====

func (s *Store) SaveOperator(ctx context.Context, op model.Operator) error {
	return s.exec(ctx, `
		INSERT INTO operators(reference, user_reference, discriminator, value) VALUES(?, ?, ?, ?)
		ON CONFLICT(reference) DO UPDATE SET discriminator=excluded.discriminator, value=excluded.value`,
		op.Reference, op.UserReference, string(op.Discriminator), string(op.Value))
}

func (s *Store) GetOperator(ctx context.Context, user, reference string) (model.Operator, error) {
	var (
		op    model.Operator
		disc  string
		value string
	)
	err := s.q.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT reference, user_reference, discriminator, value FROM operators
		WHERE user_reference = ? AND reference = ?`), user, reference).
		Scan(&op.Reference, &op.UserReference, &disc, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Operator{}, fmt.Errorf("operator %s: %w", reference, model.ErrNotFound)
	}
	if err != nil {
		return model.Operator{}, err
	}
	op.Discriminator = model.OperatorDiscriminator(disc)
	op.Value = []byte(value)
	return op, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ port.Store = (*Store)(nil)
