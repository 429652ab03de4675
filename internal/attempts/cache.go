package attempts

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dstrelow/gallerygate/internal/models"
)

// AddressUnknown is substituted by callers when a request carries no usable
// remote address, so the cache key is always well-formed.
const AddressUnknown = "unknown"

// DefaultEvictionPeriod is how often the cache wipes all recorded attempts.
const DefaultEvictionPeriod = 15 * time.Minute

const maxKeyPartLen = 255

// Cache tracks login attempts per (username, address) pair in memory. It is a
// best-effort brute-force signal, not a durable record: a single shared timer
// clears the entire map on every eviction tick, regardless of how old each
// entry is. The global reset means every counter drops to zero at once; this
// coarse policy is kept deliberately.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*models.LoginAttempt

	evictionPeriod time.Duration
	logger         *slog.Logger

	ticker  *time.Ticker
	stopCh  chan struct{}
	started bool
	closed  bool
}

// NewCache creates a login attempt cache. The eviction loop is started lazily
// on the first Record call.
func NewCache(evictionPeriod time.Duration, logger *slog.Logger) *Cache {
	if evictionPeriod <= 0 {
		evictionPeriod = DefaultEvictionPeriod
	}
	return &Cache{
		entries:        make(map[string]*models.LoginAttempt),
		evictionPeriod: evictionPeriod,
		logger:         logger,
		stopCh:         make(chan struct{}),
	}
}

// Get returns the recorded attempt for the pair, or nil when none exists.
func (c *Cache) Get(username, address string) (*models.LoginAttempt, error) {
	if err := validateKey(username, address); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cacheKey(username, address)]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

// AttemptCount returns the attempt counter for the pair, 0 when absent.
func (c *Cache) AttemptCount(username, address string) (int, error) {
	entry, err := c.Get(username, address)
	if err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, nil
	}
	return entry.Count, nil
}

// Record notes one more attempt for the pair. The first call creates an entry
// with a counter of 1; later calls replace it with a new record carrying
// counter+1. The first non-empty user agent ever observed sticks and is never
// overwritten by later values.
func (c *Cache) Record(username, address, userAgent string) (*models.LoginAttempt, error) {
	if err := validateKey(username, address); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.startEvictionLocked()

	key := cacheKey(username, address)
	prev, ok := c.entries[key]
	if !ok {
		entry := &models.LoginAttempt{
			Username:  username,
			Address:   address,
			Count:     1,
			UserAgent: userAgent,
			FirstSeen: time.Now(),
		}
		c.entries[key] = entry
		copied := *entry
		return &copied, nil
	}

	next := &models.LoginAttempt{
		Username:  prev.Username,
		Address:   prev.Address,
		Count:     prev.Count + 1,
		UserAgent: prev.UserAgent,
		FirstSeen: prev.FirstSeen,
	}
	if next.UserAgent == "" {
		next.UserAgent = userAgent
	}
	c.entries[key] = next

	copied := *next
	return &copied, nil
}

// Clear drops every recorded attempt. Exposed for the eviction loop and tests.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*models.LoginAttempt)
}

// Size returns the number of tracked pairs.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the eviction loop. Safe to call when it never started.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.started {
		close(c.stopCh)
	}
}

// startEvictionLocked lazily starts the shared eviction timer. Caller holds mu.
func (c *Cache) startEvictionLocked() {
	if c.started || c.closed {
		return
	}
	c.started = true
	c.ticker = time.NewTicker(c.evictionPeriod)

	go func() {
		defer c.ticker.Stop()
		for {
			select {
			case <-c.ticker.C:
				c.mu.Lock()
				cleared := len(c.entries)
				c.entries = make(map[string]*models.LoginAttempt)
				c.mu.Unlock()
				if cleared > 0 && c.logger != nil {
					c.logger.Debug("login attempt cache cleared",
						slog.Int("entries", cleared))
				}
			case <-c.stopCh:
				return
			}
		}
	}()
}

func validateKey(username, address string) error {
	if username == "" || address == "" {
		return fmt.Errorf("%w: username and address must not be empty", models.ErrInvalidInput)
	}
	if len(username) > maxKeyPartLen || len(address) > maxKeyPartLen {
		return fmt.Errorf("%w: username and address must not exceed %d characters", models.ErrInvalidInput, maxKeyPartLen)
	}
	return nil
}

func cacheKey(username, address string) string {
	return username + "|" + address
}
