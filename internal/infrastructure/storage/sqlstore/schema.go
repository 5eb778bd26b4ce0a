package sqlstore

// SQLiteSchema / PostgresSchema 只在整数类型上不同；金额统一存十进制字符串
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS assets (
  reference TEXT PRIMARY KEY,
  user_reference TEXT NOT NULL,
  symbol TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  decimals INTEGER NOT NULL DEFAULT 0,
  is_settleable INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_assets_user ON assets(user_reference);

CREATE TABLE IF NOT EXISTS prices (
  reference TEXT PRIMARY KEY,
  user_reference TEXT NOT NULL,
  base_asset_reference TEXT NOT NULL,
  quote_asset_reference TEXT NOT NULL,
  value TEXT NOT NULL,
  confirmed_time_ms INTEGER NOT NULL,
  UNIQUE(user_reference, base_asset_reference, quote_asset_reference, confirmed_time_ms)
);
CREATE INDEX IF NOT EXISTS idx_prices_user_ts ON prices(user_reference, confirmed_time_ms);

CREATE TABLE IF NOT EXISTS balance_sheets (
  reference TEXT PRIMARY KEY,
  user_reference TEXT NOT NULL,
  balanced_time_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_balance_sheets_user ON balance_sheets(user_reference, balanced_time_ms);

CREATE TABLE IF NOT EXISTS balance_entries (
  balance_sheet_reference TEXT NOT NULL,
  account_reference TEXT NOT NULL,
  amount TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_balance_entries_sheet ON balance_entries(balance_sheet_reference);

CREATE TABLE IF NOT EXISTS operators (
  reference TEXT PRIMARY KEY,
  user_reference TEXT NOT NULL,
  discriminator TEXT NOT NULL,
  value TEXT NOT NULL DEFAULT '{}'
);
`

const PostgresSchema = `
CREATE TABLE IF NOT EXISTS assets (
  reference TEXT PRIMARY KEY,
  user_reference TEXT NOT NULL,
  symbol TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  decimals INTEGER NOT NULL DEFAULT 0,
  is_settleable INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_assets_user ON assets(user_reference);

CREATE TABLE IF NOT EXISTS prices (
  reference TEXT PRIMARY KEY,
  user_reference TEXT NOT NULL,
  base_asset_reference TEXT NOT NULL,
  quote_asset_reference TEXT NOT NULL,
  value TEXT NOT NULL,
  confirmed_time_ms BIGINT NOT NULL,
  UNIQUE(user_reference, base_asset_reference, quote_asset_reference, confirmed_time_ms)
);
CREATE INDEX IF NOT EXISTS idx_prices_user_ts ON prices(user_reference, confirmed_time_ms);

CREATE TABLE IF NOT EXISTS balance_sheets (
  reference TEXT PRIMARY KEY,
  user_reference TEXT NOT NULL,
  balanced_time_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_balance_sheets_user ON balance_sheets(user_reference, balanced_time_ms);

CREATE TABLE IF NOT EXISTS balance_entries (
  balance_sheet_reference TEXT NOT NULL,
  account_reference TEXT NOT NULL,
  amount TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_balance_entries_sheet ON balance_entries(balance_sheet_reference);

CREATE TABLE IF NOT EXISTS operators (
  reference TEXT PRIMARY KEY,
  user_reference TEXT NOT NULL,
  discriminator TEXT NOT NULL,
  value TEXT NOT NULL DEFAULT '{}'
);
`
