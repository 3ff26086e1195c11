package db

import "fmt"

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS positions (
    symbol TEXT PRIMARY KEY,
    entry_price REAL NOT NULL,
    amount REAL NOT NULL,
    entry_time DATETIME NOT NULL,
    status TEXT NOT NULL DEFAULT 'HOLD',
    strategy TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    qty REAL NOT NULL,
    price REAL NOT NULL,
    status TEXT NOT NULL,
    mode TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS trade_logs (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    event TEXT NOT NULL,
    price REAL NOT NULL,
    amount REAL NOT NULL,
    pnl REAL NOT NULL DEFAULT 0,
    pnl_pct REAL NOT NULL DEFAULT 0,
    strategy TEXT NOT NULL,
    detail TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_trade_logs_symbol ON trade_logs(symbol, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol, created_at);
`

// ApplyMigrations creates the schema if it does not exist.
func ApplyMigrations(d *Database) error {
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
