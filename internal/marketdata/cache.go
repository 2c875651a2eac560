package marketdata

import (
	"time"

	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/models"
)

// cacheEntry stores one cached quote with its expiry instant.
type cacheEntry struct {
	quote     models.Quote
	expiresAt time.Time
}

// quoteCache holds the most recent quote per symbol for a TTL. Expired
// entries are evicted lazily on lookup. The clock is injectable so TTL
// behavior is testable without sleeps. Not safe for concurrent use; the
// pipeline runs single-writer.
type quoteCache struct {
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

func newQuoteCache(ttl time.Duration, now func() time.Time) *quoteCache {
	if now == nil {
		now = time.Now
	}
	return &quoteCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// get returns the cached quote for a symbol if it has not expired.
func (c *quoteCache) get(symbol string) (models.Quote, bool) {
	entry, ok := c.entries[symbol]
	if !ok {
		return models.Quote{}, false
	}

	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, symbol)
		return models.Quote{}, false
	}

	return entry.quote, true
}

// put caches a quote under its symbol. Last write wins.
func (c *quoteCache) put(quote models.Quote) {
	c.entries[quote.Symbol] = cacheEntry{
		quote:     quote,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *quoteCache) clear() {
	c.entries = make(map[string]cacheEntry)
}
