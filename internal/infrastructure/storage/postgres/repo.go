package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"mdrisk/internal/infrastructure/storage/sqlstore"
)

// uniqueViolation SQLSTATE 23505
const uniqueViolation = "23505"

// Dialect postgres 方言
var Dialect = sqlstore.Dialect{
	Name:              "postgres",
	Numbered:          true,
	NoLimit:           "ALL",
	IsUniqueViolation: IsUniqueViolation,
	Schema:            sqlstore.PostgresSchema,
}

func New(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	store, err := sqlstore.New(ctx, db, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
