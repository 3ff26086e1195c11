package exchange

import (
	"context"
	"time"

	"coinhunter/pkg/cache"
)

// cachedGateway serves prices from a short-lived cache in front of the
// wrapped gateway. Orders and balances pass through untouched.
type cachedGateway struct {
	Gateway
	quotes *cache.QuoteCache
}

// WithPriceCache wraps gw so price lookups within ttl of each other hit
// the cache instead of the exchange.
func WithPriceCache(gw Gateway, ttl time.Duration) Gateway {
	return &cachedGateway{Gateway: gw, quotes: cache.NewQuoteCache(ttl)}
}

func (g *cachedGateway) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if price, ok := g.quotes.Get(symbol); ok {
		return price, nil
	}
	price, err := g.Gateway.CurrentPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}
	g.quotes.Set(symbol, price)
	return price, nil
}
