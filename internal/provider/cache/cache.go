package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"securityprices/internal/provider"
)

// entry stores the cached quote for a single symbol with expiry.
type entry struct {
	expiresAt time.Time
	quote     provider.Quote
}

// Provider caches quotes per symbol for a TTL.
// It requests only missing symbols from the underlying provider and
// returns cached + fresh results in request order.
type Provider struct {
	P        provider.Provider
	TTL      time.Duration
	MaxItems int

	mu    sync.RWMutex
	items map[string]entry // key: symbol
}

func (c *Provider) Name() string { return c.P.Name() }

// Fetch returns one quote per requested symbol using the cache when valid.
// A failed fetch of the missing symbols fails the whole call; partial
// batches are never returned.
func (c *Provider) Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error) {
	if c.TTL <= 0 {
		return c.P.Fetch(ctx, symbols)
	}

	now := time.Now()

	// Collect unique missing symbols preserving request order
	hits := make(map[string]provider.Quote, len(symbols))
	missing := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	c.mu.RLock()
	for _, s := range symbols {
		if e, ok := c.items[s]; ok && now.Before(e.expiresAt) {
			hits[s] = e.quote
			continue
		}
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			missing = append(missing, s)
		}
	}
	c.mu.RUnlock()

	if len(missing) > 0 {
		fresh, err := c.P.Fetch(ctx, missing)
		if err != nil {
			return nil, err
		}
		c.store(fresh, now.Add(c.TTL))
		for _, q := range fresh {
			hits[q.Symbol] = q
		}
	}

	out := make([]provider.Quote, 0, len(symbols))
	for _, s := range symbols {
		q, ok := hits[s]
		if !ok {
			return nil, fmt.Errorf("%w: %s", provider.ErrMissingSymbol, s)
		}
		out = append(out, q)
	}
	return out, nil
}

func (c *Provider) store(quotes []provider.Quote, expiry time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]entry, len(quotes))
	}
	for _, q := range quotes {
		c.items[q.Symbol] = entry{expiresAt: expiry, quote: q}
	}
	// best-effort cap cache size: expired first, then arbitrary
	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		now := time.Now()
		for k, v := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			if now.After(v.expiresAt) {
				delete(c.items, k)
			}
		}
		for k := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			delete(c.items, k)
		}
	}
}
