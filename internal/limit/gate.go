// Package limit counts accepted messages per client per calendar day.
package limit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meligy/internal/models"
	"meligy/internal/store"

	"go.uber.org/zap"
)

const (
	// DefaultDailyLimit is the free-tier quota.
	DefaultDailyLimit = 25
	keyPrefix         = "meleji-daily-message-data:"
	dateLayout        = "Mon Jan 02 2006"
)

// Gate is the daily limit gate. Read-modify-write of a counter is serialized
// by mu so concurrent requests for one client cannot lose increments.
type Gate struct {
	store  store.Store
	limit  int
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
	mu     sync.Mutex
}

type Option func(*Gate)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithLocation sets the zone that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(g *Gate) {
		if loc != nil {
			g.loc = loc
		}
	}
}

func NewGate(s store.Store, limit int, logger *zap.Logger, opts ...Option) *Gate {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gate{store: s, limit: limit, loc: time.Local, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Status describes a client's quota at a point in time.
type Status struct {
	Count        int       `json:"count"`
	Limit        int       `json:"limit"`
	Remaining    int       `json:"remaining"`
	LimitReached bool      `json:"limitReached"`
	ResetIn      ResetTime `json:"resetIn"`
}

type ResetTime struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

func (g *Gate) today() string {
	return g.now().In(g.loc).Format(dateLayout)
}

// load returns the counter, resetting and persisting it when the stored date
// is not today. Callers hold mu.
func (g *Gate) load(ctx context.Context, clientID string) (models.DailyMessageCounter, error) {
	key := keyPrefix + clientID
	today := g.today()
	var c models.DailyMessageCounter
	found, err := store.GetJSON(ctx, g.store, key, &c)
	if err != nil {
		return c, fmt.Errorf("load daily counter: %w", err)
	}
	if found && c.LastResetDate == today {
		return c, nil
	}
	if found {
		g.logger.Debug("daily counter reset", zap.String("client", clientID), zap.String("from", c.LastResetDate))
	}
	c = models.DailyMessageCounter{Count: 0, LastResetDate: today}
	if err := store.SetJSON(ctx, g.store, key, c); err != nil {
		return c, fmt.Errorf("reset daily counter: %w", err)
	}
	return c, nil
}

// Counter returns the current (possibly freshly reset) counter.
func (g *Gate) Counter(ctx context.Context, clientID string) (models.DailyMessageCounter, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.load(ctx, clientID)
}

func (g *Gate) Status(ctx context.Context, clientID string) (Status, error) {
	c, err := g.Counter(ctx, clientID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Count:        c.Count,
		Limit:        g.limit,
		Remaining:    g.remaining(c.Count),
		LimitReached: c.Count >= g.limit,
		ResetIn:      g.TimeUntilReset(),
	}, nil
}

func (g *Gate) IsLimitReached(ctx context.Context, clientID string) (bool, error) {
	c, err := g.Counter(ctx, clientID)
	if err != nil {
		return false, err
	}
	return c.Count >= g.limit, nil
}

func (g *Gate) Remaining(ctx context.Context, clientID string) (int, error) {
	c, err := g.Counter(ctx, clientID)
	if err != nil {
		return 0, err
	}
	return g.remaining(c.Count), nil
}

func (g *Gate) remaining(count int) int {
	if r := g.limit - count; r > 0 {
		return r
	}
	return 0
}

// Increment records one accepted message and returns the new count.
func (g *Gate) Increment(ctx context.Context, clientID string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, err := g.load(ctx, clientID)
	if err != nil {
		return 0, err
	}
	c.Count++
	c.LastResetDate = g.today()
	if err := store.SetJSON(ctx, g.store, keyPrefix+clientID, c); err != nil {
		return 0, fmt.Errorf("increment daily counter: %w", err)
	}
	return c.Count, nil
}

// TryAcquire increments only when the quota is not yet reached.
func (g *Gate) TryAcquire(ctx context.Context, clientID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, err := g.load(ctx, clientID)
	if err != nil {
		return false, err
	}
	if c.Count >= g.limit {
		return false, nil
	}
	c.Count++
	if err := store.SetJSON(ctx, g.store, keyPrefix+clientID, c); err != nil {
		return false, fmt.Errorf("increment daily counter: %w", err)
	}
	return true, nil
}

// TimeUntilReset is the time left until the next local midnight.
func (g *Gate) TimeUntilReset() ResetTime {
	now := g.now().In(g.loc)
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, g.loc)
	left := midnight.Sub(now)
	return ResetTime{Hours: int(left / time.Hour), Minutes: int((left % time.Hour) / time.Minute)}
}

// Reset clears the client's counter.
func (g *Gate) Reset(ctx context.Context, clientID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.store.Delete(ctx, keyPrefix+clientID)
}
