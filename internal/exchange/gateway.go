package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jpillora/backoff"

	"coinhunter/pkg/db"
)

// Error taxonomy. PriceUnavailable and OrderFailed are recoverable at the
// loop level (skip the instrument this cycle); OrderRejected means the
// request itself was invalid (e.g. below the venue minimum).
var (
	ErrPriceUnavailable = errors.New("exchange: price unavailable")
	ErrOrderRejected    = errors.New("exchange: order rejected")
	ErrOrderFailed      = errors.New("exchange: order failed")
)

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderRequest captures a market-order intent. Price carries the reference
// price the loop fetched this cycle; paper mode fills against it, live
// mode uses it only for notional validation.
type OrderRequest struct {
	Symbol string
	Side   Side
	Amount float64
	Price  float64
}

// OrderResult is the normalized ack for an executed (or simulated) order.
type OrderResult struct {
	OrderID   string
	Symbol    string
	Side      Side
	Amount    float64
	FillPrice float64
	Fee       float64
	Simulated bool
}

// Gateway abstracts a trading venue. Paper and live implementations log
// and persist identically so downstream consumers cannot tell them apart.
type Gateway interface {
	// CurrentPrice returns the latest trade price for a symbol, or an
	// error wrapping ErrPriceUnavailable.
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	// Balance returns the free balance for an asset.
	Balance(ctx context.Context, asset string) (float64, error)
	// PlaceOrder executes a market order, retrying transient failures up
	// to the configured budget. After exhausting retries the returned
	// error wraps ErrOrderFailed and carries the last cause.
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
}

// OrderRecorder persists executed orders; *db.Database satisfies it.
type OrderRecorder interface {
	CreateOrder(ctx context.Context, o db.Order) error
}

const (
	defaultRetries    = 3
	defaultRetryDelay = time.Second
)

// withRetry runs fn up to attempts times with a fixed delay between tries.
// Rejections are terminal immediately; other errors are treated as
// transient until the budget runs out, then surfaced as ErrOrderFailed.
func withRetry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = defaultRetries
	}
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	b := &backoff.Backoff{Min: delay, Max: delay, Factor: 1}

	var last error
	for i := 0; i < attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrOrderRejected) {
			return err
		}
		last = err

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrOrderFailed, ctx.Err())
		case <-time.After(b.Duration()):
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrOrderFailed, attempts, last)
}

// splitSymbol breaks a QUOTE-BASE ticker (e.g. KRW-BTC) into its parts.
// Symbols without a separator are treated as base-only.
func splitSymbol(symbol string) (quote, base string) {
	parts := strings.SplitN(symbol, "-", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", symbol
}
