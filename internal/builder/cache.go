package builder

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// summaryCache caches conversation summaries keyed by session id and
// message count. Any new message changes the count, so stale entries are
// never served; they simply age out of the cache.
type summaryCache struct {
	c *ristretto.Cache
}

func newSummaryCache() (*summaryCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     4 << 20, // ~4MB of summary text
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("summary cache: %w", err)
	}
	return &summaryCache{c: c}, nil
}

func summaryKey(sessionID string, messageCount int) string {
	return fmt.Sprintf("%s:%d", sessionID, messageCount)
}

func (sc *summaryCache) get(sessionID string, messageCount int) (string, bool) {
	v, ok := sc.c.Get(summaryKey(sessionID, messageCount))
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (sc *summaryCache) set(sessionID string, messageCount int, summary string) {
	sc.c.Set(summaryKey(sessionID, messageCount), summary, int64(len(summary)))
	// admission is async; wait so the very next build can hit
	sc.c.Wait()
}
