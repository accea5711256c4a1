package parking

import (
	"math"
	"sync"
	"time"
)

// Session records one vehicle's continuous occupancy of one slot. A session
// with ExitedAt == nil is open; once closed it is never mutated again.
type Session struct {
	ID              string
	Plate           string
	SlotID          int
	Class           VehicleClass
	EnteredAt       time.Time
	ExitedAt        *time.Time
	DurationMinutes int
	Fare            float64
}

// Open reports whether the session has no exit timestamp yet.
func (s Session) Open() bool {
	return s.ExitedAt == nil
}

// BillableMinutes is the ceiling of the elapsed time in minutes, never less
// than one: a zero or negative elapsed interval (clock skew) still bills the
// minimum of one minute.
func BillableMinutes(enteredAt, exitedAt time.Time) int {
	minutes := int(math.Ceil(exitedAt.Sub(enteredAt).Seconds() / 60))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// SessionLedger owns every session, open and closed, and enforces at most one
// open session per vehicle.
type SessionLedger struct {
	mu       sync.Mutex
	sessions []*Session
	open     map[string]*Session // plate -> open session
}

func NewSessionLedger() *SessionLedger {
	return &SessionLedger{open: make(map[string]*Session)}
}

// OpenFor creates an open session for the vehicle. Fails if one is already
// open.
func (l *SessionLedger) OpenFor(sessionID, plate string, slotID int, class VehicleClass, at time.Time) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.open[plate]; ok {
		return Session{}, ErrSessionOpen
	}
	sess := &Session{
		ID:        sessionID,
		Plate:     plate,
		SlotID:    slotID,
		Class:     class,
		EnteredAt: at,
	}
	l.sessions = append(l.sessions, sess)
	l.open[plate] = sess
	return *sess, nil
}

// HasOpen reports whether the vehicle currently holds an open session.
func (l *SessionLedger) HasOpen(plate string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.open[plate]
	return ok
}

// Preview computes the closure figures for the vehicle's open session at the
// given instant without mutating it. The session stays open.
func (l *SessionLedger) Preview(plate string, at time.Time) (Session, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sess, ok := l.open[plate]
	if !ok {
		return Session{}, 0, ErrSessionNotOpen
	}
	return *sess, BillableMinutes(sess.EnteredAt, at), nil
}

// CloseFor seals the vehicle's open session with the exit timestamp, duration
// and fare. After this the record is immutable.
func (l *SessionLedger) CloseFor(plate string, at time.Time, minutes int, fare float64) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sess, ok := l.open[plate]
	if !ok {
		return Session{}, ErrSessionNotOpen
	}
	exit := at
	sess.ExitedAt = &exit
	sess.DurationMinutes = minutes
	sess.Fare = fare
	delete(l.open, plate)
	return *sess, nil
}

// OpenCount reports the number of open sessions.
func (l *SessionLedger) OpenCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.open)
}

// History returns a copy of every session in creation order.
func (l *SessionLedger) History() []Session {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Session, len(l.sessions))
	for i, sess := range l.sessions {
		out[i] = *sess
	}
	return out
}

// FindBySessionID looks a session up by identity.
func (l *SessionLedger) FindBySessionID(sessionID string) (Session, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, sess := range l.sessions {
		if sess.ID == sessionID {
			return *sess, true
		}
	}
	return Session{}, false
}
