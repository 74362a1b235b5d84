package assistant

import (
	"strconv"
	"sync"
	"time"
)

// IDGenerator hands out millisecond-timestamp message ids that strictly
// increase within the process.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
}

func NewIDGenerator() *IDGenerator { return &IDGenerator{} }

func (g *IDGenerator) Next(at time.Time) string {
	ms := at.UnixMilli()
	g.mu.Lock()
	defer g.mu.Unlock()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}
