package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coinhunter/pkg/db"
	"coinhunter/pkg/logger"
)

// PriceSource supplies reference prices for paper fills. In production it
// is a live market-data client; tests inject a fixture.
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// PaperGateway simulates fills locally: slippage against the reference
// price, then a proportional fee. Deterministic for a given configuration
// and free of network dependencies on the order path.
type PaperGateway struct {
	prices   PriceSource
	recorder OrderRecorder

	slippage float64
	feeRate  float64

	mu       sync.Mutex
	balances map[string]float64
}

// NewPaperGateway builds a paper gateway seeded with an initial balance
// for the given quote asset (e.g. "KRW"). The recorder may be nil.
func NewPaperGateway(prices PriceSource, recorder OrderRecorder, quoteAsset string, initialBalance, slippage, feeRate float64) *PaperGateway {
	return &PaperGateway{
		prices:   prices,
		recorder: recorder,
		slippage: slippage,
		feeRate:  feeRate,
		balances: map[string]float64{quoteAsset: initialBalance},
	}
}

// CurrentPrice proxies the underlying price source.
func (g *PaperGateway) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := g.prices.CurrentPrice(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrPriceUnavailable, symbol, err)
	}
	return price, nil
}

// Balance returns the simulated free balance for an asset.
func (g *PaperGateway) Balance(ctx context.Context, asset string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balances[asset], nil
}

// PlaceOrder simulates an immediate fill and updates simulated balances.
// It never fails on network grounds; only a non-positive request is
// rejected.
func (g *PaperGateway) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	if req.Amount <= 0 || req.Price <= 0 {
		return OrderResult{}, fmt.Errorf("%w: non-positive amount or price (%s amount=%v price=%v)",
			ErrOrderRejected, req.Symbol, req.Amount, req.Price)
	}

	fill, slipped := g.fillPrice(req.Side, req.Price)
	fee := slipped * req.Amount * g.feeRate

	quote, base := splitSymbol(req.Symbol)
	g.mu.Lock()
	if req.Side == SideBuy {
		g.balances[quote] -= fill * req.Amount
		g.balances[base] += req.Amount
	} else {
		g.balances[quote] += fill * req.Amount
		g.balances[base] -= req.Amount
	}
	g.mu.Unlock()

	res := OrderResult{
		OrderID:   uuid.NewString(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Amount:    req.Amount,
		FillPrice: fill,
		Fee:       fee,
		Simulated: true,
	}

	logger.Info("paper fill",
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.Float64("amount", req.Amount),
		zap.Float64("ref_price", req.Price),
		zap.Float64("fill_price", fill))

	if g.recorder != nil {
		order := db.Order{
			ID:        res.OrderID,
			Symbol:    req.Symbol,
			Side:      string(req.Side),
			Qty:       req.Amount,
			Price:     fill,
			Status:    "FILLED",
			Mode:      "paper",
			CreatedAt: time.Now().UTC(),
		}
		if err := g.recorder.CreateOrder(ctx, order); err != nil {
			logger.Warn("paper order persistence failed", zap.Error(err))
		}
	}

	return res, nil
}

// fillPrice applies slippage against the reference price and then the
// proportional fee, using decimal arithmetic so configured rates map to
// exact fills. It also returns the pre-fee slipped price, which is the
// base the fee is charged on.
func (g *PaperGateway) fillPrice(side Side, price float64) (eff, slipped float64) {
	p := decimal.NewFromFloat(price)
	slip := decimal.NewFromFloat(g.slippage)
	fee := decimal.NewFromFloat(g.feeRate)
	one := decimal.NewFromInt(1)

	var raw decimal.Decimal
	if side == SideBuy {
		raw = p.Mul(one.Add(slip))
	} else {
		raw = p.Mul(one.Sub(slip))
	}
	eff, _ = raw.Mul(one.Sub(fee)).Float64()
	slipped, _ = raw.Float64()
	return eff, slipped
}
