// Package scan bridges asynchronous hardware tag scans to the occupancy
// flows. The correlator is a single-slot, consume-once mailbox: the newest
// unclaimed scan wins, a claim removes it, and an unclaimed scan older than
// its TTL is treated as absent.
package scan

import (
	"errors"
	"sync"
	"time"
)

// Mode is the intent reported by the scanner hardware.
type Mode string

const (
	ModeAssign Mode = "ASSIGN"
	ModeIn     Mode = "IN"
	ModeOut    Mode = "OUT"
)

var ErrInvalidMode = errors.New("invalid scan mode")

// ParseMode validates the raw mode string from the device.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeAssign, ModeIn, ModeOut:
		return Mode(raw), nil
	}
	return "", ErrInvalidMode
}

// Event is one physical tag scan. Ephemeral: it exists only inside the
// correlator and is consumed at most once.
type Event struct {
	Tag       string
	Mode      Mode
	At        time.Time
	ExpiresAt time.Time
}

// Correlator holds at most one unclaimed event.
type Correlator struct {
	mu   sync.Mutex
	ttl  time.Duration
	held *Event
	now  func() time.Time
}

func NewCorrelator(ttl time.Duration) *Correlator {
	return &Correlator{ttl: ttl, now: time.Now}
}

// Post records a scan, overwriting any unclaimed one (last scan wins), and
// stamps its expiry.
func (c *Correlator) Post(tag string, mode Mode, at time.Time) Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev := Event{Tag: tag, Mode: mode, At: at, ExpiresAt: at.Add(c.ttl)}
	c.held = &ev
	return ev
}

// TryClaim atomically removes and returns the held event if it has not
// expired. A second claim before a new post comes back empty, so two readers
// can never act on the same physical scan.
func (c *Correlator) TryClaim() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev := c.take(func(Event) bool { return true })
	if ev == nil {
		return Event{}, false
	}
	return *ev, true
}

// ClaimAssign claims the held event only if it is an ASSIGN scan. Used by
// vehicle registration, the terminal consumer for that mode; a pending IN or
// OUT event is left in place.
func (c *Correlator) ClaimAssign() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev := c.take(func(e Event) bool { return e.Mode == ModeAssign })
	if ev == nil {
		return Event{}, false
	}
	return *ev, true
}

// Peek returns the held, unexpired event without claiming it.
func (c *Correlator) Peek() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.held == nil || c.expired(*c.held) {
		return Event{}, false
	}
	return *c.held, true
}

// take removes and returns the held event when it is live and matches; an
// expired event is dropped either way. Callers hold c.mu.
func (c *Correlator) take(match func(Event) bool) *Event {
	if c.held == nil {
		return nil
	}
	if c.expired(*c.held) {
		c.held = nil
		return nil
	}
	if !match(*c.held) {
		return nil
	}
	ev := c.held
	c.held = nil
	return ev
}

func (c *Correlator) expired(ev Event) bool {
	return c.now().After(ev.ExpiresAt)
}
