package exchange

import (
	"context"
	"testing"
	"time"
)

type countingPrices struct {
	price float64
	calls int
}

func (c *countingPrices) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	c.calls++
	return c.price, nil
}

func TestPriceCacheAvoidsRepeatLookups(t *testing.T) {
	src := &countingPrices{price: 100}
	gw := WithPriceCache(NewPaperGateway(src, nil, "KRW", 1000, 0, 0), time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		price, err := gw.CurrentPrice(ctx, "KRW-BTC")
		if err != nil {
			t.Fatal(err)
		}
		if price != 100 {
			t.Fatalf("price = %v", price)
		}
	}
	if src.calls != 1 {
		t.Fatalf("upstream called %d times, want 1", src.calls)
	}
}
