package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"mdrisk/internal/infrastructure/storage/sqlstore"
)

// Dialect sqlite 方言
var Dialect = sqlstore.Dialect{
	Name:              "sqlite",
	NoLimit:           "-1",
	IsUniqueViolation: isUniqueViolation,
	Schema:            sqlstore.SQLiteSchema,
}

// New 打开（必要时创建）数据库文件并建表；":memory:" 用于测试
func New(ctx context.Context, path string) (*sqlstore.Store, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	dsn := path
	if path != ":memory:" {
		dsn += "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// 单连接，事务与普通查询串行
	db.SetMaxOpenConns(1)

	store, err := sqlstore.New(ctx, db, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func isUniqueViolation(err error) bool {
	var e *sqlite.Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || e.Code() == sqlite3.SQLITE_CONSTRAINT
}
