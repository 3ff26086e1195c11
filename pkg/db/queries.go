package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Sentinel errors for position writes. These indicate invariant violations
// when seen from the trading loop, which never double-opens or closes blind.
var (
	ErrPositionExists   = errors.New("db: open position already exists")
	ErrPositionNotFound = errors.New("db: no open position")
)

// OpenPosition atomically inserts a HOLD position. Returns ErrPositionExists
// when a row for the symbol is already present.
func (d *Database) OpenPosition(ctx context.Context, p Position) error {
	res, err := d.DB.ExecContext(ctx, `
		INSERT INTO positions (symbol, entry_price, amount, entry_time, status, strategy)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO NOTHING
	`, p.Symbol, p.EntryPrice, p.Amount, p.EntryTime, StatusHold, p.Strategy)
	if err != nil {
		return fmt.Errorf("open position %s: %w", p.Symbol, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPositionExists
	}
	return nil
}

// ClosePosition atomically removes the HOLD position for a symbol. Returns
// ErrPositionNotFound when nothing was open.
func (d *Database) ClosePosition(ctx context.Context, symbol string) error {
	res, err := d.DB.ExecContext(ctx, `
		DELETE FROM positions WHERE symbol = ? AND status = ?
	`, symbol, StatusHold)
	if err != nil {
		return fmt.Errorf("close position %s: %w", symbol, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPositionNotFound
	}
	return nil
}

// GetPosition returns the open position for a symbol, or nil when flat.
func (d *Database) GetPosition(ctx context.Context, symbol string) (*Position, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT symbol, entry_price, amount, entry_time, status, strategy
		FROM positions WHERE symbol = ?
	`, symbol)

	var p Position
	if err := row.Scan(&p.Symbol, &p.EntryPrice, &p.Amount, &p.EntryTime, &p.Status, &p.Strategy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get position %s: %w", symbol, err)
	}
	return &p, nil
}

// ListPositions returns all open positions.
func (d *Database) ListPositions(ctx context.Context) ([]Position, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT symbol, entry_price, amount, entry_time, status, strategy
		FROM positions ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var out []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.Symbol, &p.EntryPrice, &p.Amount, &p.EntryTime, &p.Status, &p.Strategy); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateOrder inserts a new order row.
func (d *Database) CreateOrder(ctx context.Context, o Order) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO orders (id, symbol, side, qty, price, status, mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`, o.ID, o.Symbol, o.Side, o.Qty, o.Price, o.Status, o.Mode, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order %s: %w", o.ID, err)
	}
	return nil
}

// ListOrders returns the most recent orders, newest first.
func (d *Database) ListOrders(ctx context.Context, limit int) ([]Order, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, symbol, side, qty, price, status, mode, created_at
		FROM orders ORDER BY rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Symbol, &o.Side, &o.Qty, &o.Price, &o.Status, &o.Mode, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CreateTradeLog appends a trade-log row and prunes entries for the symbol
// beyond the retention cap (oldest first).
func (d *Database) CreateTradeLog(ctx context.Context, t TradeLog, retain int) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO trade_logs (id, symbol, event, price, amount, pnl, pnl_pct, strategy, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`, t.ID, t.Symbol, t.Event, t.Price, t.Amount, t.PnL, t.PnLPct, t.Strategy, t.Detail, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create trade log %s: %w", t.ID, err)
	}

	if retain > 0 {
		_, err = d.DB.ExecContext(ctx, `
			DELETE FROM trade_logs
			WHERE symbol = ? AND rowid NOT IN (
				SELECT rowid FROM trade_logs WHERE symbol = ? ORDER BY rowid DESC LIMIT ?
			)
		`, t.Symbol, t.Symbol, retain)
		if err != nil {
			return fmt.Errorf("prune trade logs %s: %w", t.Symbol, err)
		}
	}
	return nil
}

// ListTradeLogs returns the most recent trade logs for a symbol, newest first.
// An empty symbol returns logs across all symbols.
func (d *Database) ListTradeLogs(ctx context.Context, symbol string, limit int) ([]TradeLog, error) {
	query := `
		SELECT id, symbol, event, price, amount, pnl, pnl_pct, strategy, detail, created_at
		FROM trade_logs WHERE (? = '' OR symbol = ?) ORDER BY rowid DESC LIMIT ?
	`
	rows, err := d.DB.QueryContext(ctx, query, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("list trade logs: %w", err)
	}
	defer rows.Close()

	var out []TradeLog
	for rows.Next() {
		var t TradeLog
		var detail sql.NullString
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Event, &t.Price, &t.Amount, &t.PnL, &t.PnLPct, &t.Strategy, &detail, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Detail = detail.String
		out = append(out, t)
	}
	return out, rows.Err()
}
