package task

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shelfwise/shelfwise-api/internal/domain"
)

// DefaultDedupWindow is how long an identical submission reuses an existing
// task instead of spawning a new one.
const DefaultDedupWindow = 10 * time.Second

// Signature derives the dedup key for a submission: the normalized query
// plus the sorted ISBNs of the matched books. Two submissions that match
// the same books under the same query collapse to one task.
func Signature(normalizedQuery string, books []domain.Book) string {
	isbns := make([]string, 0, len(books))
	for _, b := range books {
		isbns = append(isbns, b.ISBN)
	}
	sort.Strings(isbns)
	return normalizedQuery + "|" + strings.Join(isbns, ",")
}

type dedupEntry struct {
	taskID    uuid.UUID
	createdAt time.Time
}

// DedupCache maps submission signatures to recently created task IDs so that
// burst-duplicate requests share one background job. Entries expire after
// the window both lazily on lookup and via the periodic sweep.
type DedupCache struct {
	mu      sync.Mutex
	entries map[string]dedupEntry
	window  time.Duration
	logger  *slog.Logger
}

// NewDedupCache creates a DedupCache. A non-positive window falls back to
// DefaultDedupWindow.
func NewDedupCache(window time.Duration, logger *slog.Logger) *DedupCache {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &DedupCache{
		entries: make(map[string]dedupEntry),
		window:  window,
		logger:  logger,
	}
}

// Lookup returns the task ID registered for the signature within the window,
// if any. Expired entries are removed on the spot.
func (c *DedupCache) Lookup(signature string) (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[signature]
	if !ok {
		return uuid.Nil, false
	}
	if time.Since(entry.createdAt) > c.window {
		delete(c.entries, signature)
		return uuid.Nil, false
	}
	return entry.taskID, true
}

// Store records a fresh task ID for the signature, replacing any stale entry.
func (c *DedupCache) Store(signature string, taskID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[signature] = dedupEntry{taskID: taskID, createdAt: time.Now()}
}

// Sweep drops entries older than the window and returns how many were
// removed.
func (c *DedupCache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for sig, entry := range c.entries {
		if now.Sub(entry.createdAt) > c.window {
			delete(c.entries, sig)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (c *DedupCache) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := c.Sweep(now); removed > 0 {
				c.logger.Debug("swept expired dedup entries", "removed", removed)
			}
		}
	}
}
