package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"

	"go.uber.org/zap"

	"coinhunter/pkg/db"
	"coinhunter/pkg/logger"
)

const requestTimeout = 10 * time.Second

// BinanceGateway places real spot market orders on Binance.
type BinanceGateway struct {
	client      *binance.Client
	limiter     *rate.Limiter
	recorder    OrderRecorder
	minNotional float64
	retries     int
	retryDelay  time.Duration
}

// NewBinanceGateway builds a live gateway. Orders whose notional value is
// below minNotional are rejected before touching the exchange.
func NewBinanceGateway(apiKey, apiSecret string, testnet bool, recorder OrderRecorder, minNotional float64) (*BinanceGateway, error) {
	client := binance.NewClient(apiKey, apiSecret)
	if testnet {
		client.BaseURL = "https://testnet.binance.vision"
	}
	return &BinanceGateway{
		client: client,
		// Spot REST allows 1200 request weight per minute; stay well under.
		limiter:     rate.NewLimiter(rate.Limit(10), 20),
		recorder:    recorder,
		minNotional: minNotional,
		retries:     defaultRetries,
		retryDelay:  defaultRetryDelay,
	}, nil
}

// CurrentPrice fetches the latest trade price for a symbol.
func (g *BinanceGateway) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrPriceUnavailable, symbol, err)
	}

	prices, err := g.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrPriceUnavailable, symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("%w: %s: empty response", ErrPriceUnavailable, symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("%w: %s: bad price %q", ErrPriceUnavailable, symbol, prices[0].Price)
	}
	return price, nil
}

// Balance returns the free balance for an asset.
func (g *BinanceGateway) Balance(ctx context.Context, asset string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	account, err := g.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("get balance %s: %w", asset, err)
	}
	for _, b := range account.Balances {
		if b.Asset == asset {
			free, err := strconv.ParseFloat(b.Free, 64)
			if err != nil {
				return 0, fmt.Errorf("get balance %s: bad amount %q", asset, b.Free)
			}
			return free, nil
		}
	}
	return 0, nil
}

// PlaceOrder submits a market order with the gateway's retry budget.
func (g *BinanceGateway) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	if notional := req.Amount * req.Price; notional < g.minNotional {
		return OrderResult{}, fmt.Errorf("%w: %s notional %.2f below minimum %.2f",
			ErrOrderRejected, req.Symbol, notional, g.minNotional)
	}

	side := binance.SideTypeBuy
	if req.Side == SideSell {
		side = binance.SideTypeSell
	}
	qty := strconv.FormatFloat(req.Amount, 'f', -1, 64)

	var resp *binance.CreateOrderResponse
	err := withRetry(ctx, g.retries, g.retryDelay, func() error {
		callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		if err := g.limiter.Wait(callCtx); err != nil {
			return err
		}
		r, err := g.client.NewCreateOrderService().
			Symbol(req.Symbol).
			Side(side).
			Type(binance.OrderTypeMarket).
			Quantity(qty).
			Do(callCtx)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		logger.Error("order submission failed",
			zap.String("symbol", req.Symbol),
			zap.String("side", string(req.Side)),
			zap.Error(err))
		return OrderResult{}, err
	}

	res := OrderResult{
		OrderID:   strconv.FormatInt(resp.OrderID, 10),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Amount:    req.Amount,
		FillPrice: avgFillPrice(resp, req.Price),
	}

	logger.Info("live fill",
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.Float64("amount", req.Amount),
		zap.Float64("fill_price", res.FillPrice),
		zap.String("exchange_order_id", res.OrderID))

	if g.recorder != nil {
		order := db.Order{
			ID:        res.OrderID,
			Symbol:    req.Symbol,
			Side:      string(req.Side),
			Qty:       req.Amount,
			Price:     res.FillPrice,
			Status:    string(resp.Status),
			Mode:      "live",
			CreatedAt: time.Now().UTC(),
		}
		if err := g.recorder.CreateOrder(ctx, order); err != nil {
			logger.Warn("live order persistence failed", zap.Error(err))
		}
	}

	return res, nil
}

// avgFillPrice averages the fills weighted by quantity, falling back to
// the reference price when the response carries no fill details.
func avgFillPrice(resp *binance.CreateOrderResponse, ref float64) float64 {
	var notional, qty float64
	for _, f := range resp.Fills {
		p, errP := strconv.ParseFloat(f.Price, 64)
		q, errQ := strconv.ParseFloat(f.Quantity, 64)
		if errP != nil || errQ != nil {
			continue
		}
		notional += p * q
		qty += q
	}
	if qty == 0 {
		return ref
	}
	return notional / qty
}
