package exchange

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

type staticPrices map[string]float64

func (s staticPrices) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if p, ok := s[symbol]; ok {
		return p, nil
	}
	return 0, errors.New("no quote")
}

func TestPaperBuyFillPrice(t *testing.T) {
	g := NewPaperGateway(staticPrices{"KRW-BTC": 100}, nil, "KRW", 1000000, 0.001, 0.0005)

	res, err := g.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "KRW-BTC",
		Side:   SideBuy,
		Amount: 1,
		Price:  100,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	want := 100 * 1.001 * (1 - 0.0005)
	if math.Abs(res.FillPrice-want) > 1e-9 {
		t.Errorf("fill price = %v, expected %v", res.FillPrice, want)
	}
	if !res.Simulated {
		t.Error("paper fill not flagged as simulated")
	}
}

func TestPaperFeeChargedOnSlippedPrice(t *testing.T) {
	g := NewPaperGateway(staticPrices{}, nil, "KRW", 1000000, 0.001, 0.0005)

	res, err := g.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "KRW-BTC",
		Side:   SideBuy,
		Amount: 2,
		Price:  100,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	// The fee base is the slipped price before the fee is folded into
	// the fill, not the net fill itself.
	want := 100 * 1.001 * 2 * 0.0005
	if math.Abs(res.Fee-want) > 1e-9 {
		t.Errorf("fee = %v, expected %v", res.Fee, want)
	}
}

func TestPaperSellFillBelowReference(t *testing.T) {
	g := NewPaperGateway(staticPrices{}, nil, "KRW", 1000000, 0.001, 0.0005)

	res, err := g.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "KRW-BTC",
		Side:   SideSell,
		Amount: 2,
		Price:  100,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if res.FillPrice >= 100 {
		t.Errorf("sell fill %v not below reference 100", res.FillPrice)
	}
}

func TestPaperBalancesMove(t *testing.T) {
	g := NewPaperGateway(staticPrices{}, nil, "KRW", 1000, 0, 0)
	ctx := context.Background()

	if _, err := g.PlaceOrder(ctx, OrderRequest{Symbol: "KRW-BTC", Side: SideBuy, Amount: 2, Price: 100}); err != nil {
		t.Fatalf("buy: %v", err)
	}

	krw, _ := g.Balance(ctx, "KRW")
	btc, _ := g.Balance(ctx, "BTC")
	if krw != 800 {
		t.Errorf("KRW balance = %v, expected 800", krw)
	}
	if btc != 2 {
		t.Errorf("BTC balance = %v, expected 2", btc)
	}

	if _, err := g.PlaceOrder(ctx, OrderRequest{Symbol: "KRW-BTC", Side: SideSell, Amount: 2, Price: 110}); err != nil {
		t.Fatalf("sell: %v", err)
	}
	krw, _ = g.Balance(ctx, "KRW")
	if krw != 1020 {
		t.Errorf("KRW balance after round trip = %v, expected 1020", krw)
	}
}

func TestPaperRejectsNonPositiveRequests(t *testing.T) {
	g := NewPaperGateway(staticPrices{}, nil, "KRW", 1000, 0, 0)

	_, err := g.PlaceOrder(context.Background(), OrderRequest{Symbol: "KRW-BTC", Side: SideBuy, Amount: 0, Price: 100})
	if !errors.Is(err, ErrOrderRejected) {
		t.Fatalf("err = %v, expected ErrOrderRejected", err)
	}
}

func TestPaperPriceUnavailable(t *testing.T) {
	g := NewPaperGateway(staticPrices{}, nil, "KRW", 1000, 0, 0)

	_, err := g.CurrentPrice(context.Background(), "KRW-DOGE")
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("err = %v, expected ErrPriceUnavailable", err)
	}
}

func TestWithRetryExhaustionWrapsLastError(t *testing.T) {
	calls := 0
	cause := errors.New("connection reset")

	err := withRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return fmt.Errorf("attempt %d: %w", calls, cause)
	})
	if calls != 3 {
		t.Errorf("fn called %d times, expected 3", calls)
	}
	if !errors.Is(err, ErrOrderFailed) {
		t.Errorf("err = %v, expected ErrOrderFailed", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("err = %v, expected to carry the last cause", err)
	}
}

func TestWithRetryStopsOnRejection(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return fmt.Errorf("%w: below minimum", ErrOrderRejected)
	})
	if calls != 1 {
		t.Errorf("fn called %d times, expected 1 (no retry on rejection)", calls)
	}
	if !errors.Is(err, ErrOrderRejected) {
		t.Errorf("err = %v, expected ErrOrderRejected", err)
	}
}

func TestWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v, expected success on retry", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, expected 2", calls)
	}
}
