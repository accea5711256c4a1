package parking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RateTable maps a vehicle class to its per-minute rate. Supplied by the
// registration subsystem; read-only from the kernel's perspective.
type RateTable interface {
	PerMinuteRate(class VehicleClass) (float64, bool)
}

// VehicleRef is the resolved identity the coordinator operates on. Resolution
// (plate or tag lookup) happens outside the kernel.
type VehicleRef struct {
	Plate     string
	Class     VehicleClass
	AccountID string
	OwnerName string
}

// EnterReceipt reports a successful entry.
type EnterReceipt struct {
	SlotID    int
	EnteredAt time.Time
}

// ExitReceipt reports a successful exit with the billing figures.
type ExitReceipt struct {
	SlotID          int
	EnteredAt       time.Time
	ExitedAt        time.Time
	DurationMinutes int
	Fare            float64
	BalanceBefore   float64
	BalanceAfter    float64
}

// Coordinator sequences the slot registry, session ledger and account ledger
// as one atomic Enter or Exit transaction. It owns no records itself; the
// per-vehicle mutex serializes competing transitions for the same vehicle
// while each ledger's own lock keeps its primitives atomic.
type Coordinator struct {
	slots    *SlotRegistry
	sessions *SessionLedger
	accounts *AccountLedger
	rates    RateTable

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewCoordinator(slots *SlotRegistry, sessions *SessionLedger, accounts *AccountLedger, rates RateTable) *Coordinator {
	return &Coordinator{
		slots:    slots,
		sessions: sessions,
		accounts: accounts,
		rates:    rates,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (c *Coordinator) lockVehicle(plate string) func() {
	c.mu.Lock()
	lock, ok := c.locks[plate]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[plate] = lock
	}
	c.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// Enter moves the vehicle from Outside to Inside: allocate the lowest free
// slot of its class, then open the session bound to it. The allocation is
// rolled back if the session cannot be opened.
func (c *Coordinator) Enter(ctx context.Context, v VehicleRef, at time.Time) (EnterReceipt, error) {
	unlock := c.lockVehicle(v.Plate)
	defer unlock()

	if c.sessions.HasOpen(v.Plate) {
		return EnterReceipt{}, ErrAlreadyInside
	}

	sessionID := uuid.NewString()
	slot, err := c.slots.Allocate(v.Class, sessionID)
	if err != nil {
		return EnterReceipt{}, err
	}

	sess, err := c.sessions.OpenFor(sessionID, v.Plate, slot.ID, v.Class, at)
	if err != nil {
		if relErr := c.slots.Release(slot.ID); relErr != nil {
			return EnterReceipt{}, fmt.Errorf("rollback of slot %d failed: %v: %w", slot.ID, relErr, err)
		}
		return EnterReceipt{}, err
	}

	return EnterReceipt{SlotID: slot.ID, EnteredAt: sess.EnteredAt}, nil
}

// Exit moves the vehicle from Inside to Outside. The ordering is the critical
// invariant: fare is computed against the still-open session, the account is
// debited, and only after a successful debit are the session closed and the
// slot released. On insufficient funds nothing is mutated, so the vehicle can
// retry after a top-up.
func (c *Coordinator) Exit(ctx context.Context, v VehicleRef, at time.Time) (ExitReceipt, error) {
	unlock := c.lockVehicle(v.Plate)
	defer unlock()

	sess, minutes, err := c.sessions.Preview(v.Plate, at)
	if err != nil {
		return ExitReceipt{}, ErrNotInside
	}

	rate, _ := c.rates.PerMinuteRate(v.Class)
	fare := Round2(rate * float64(minutes))

	before, after, err := c.accounts.Debit(v.AccountID, fare)
	if err != nil {
		return ExitReceipt{}, err
	}

	closed, err := c.sessions.CloseFor(v.Plate, at, minutes, fare)
	if err != nil {
		// Cannot happen while the vehicle lock is held; restore the debit
		// so a partial exit is never observable.
		c.accounts.Credit(v.AccountID, fare)
		return ExitReceipt{}, fmt.Errorf("close session %s: %w", sess.ID, err)
	}

	if err := c.slots.Release(closed.SlotID); err != nil {
		return ExitReceipt{}, fmt.Errorf("occupancy invariant violated: %w", err)
	}

	return ExitReceipt{
		SlotID:          closed.SlotID,
		EnteredAt:       closed.EnteredAt,
		ExitedAt:        *closed.ExitedAt,
		DurationMinutes: minutes,
		Fare:            fare,
		BalanceBefore:   before,
		BalanceAfter:    after,
	}, nil
}

// Status maps every slot ID to the plate occupying it, nil when free.
func (c *Coordinator) Status(ctx context.Context) map[int]*string {
	status := make(map[int]*string)
	for _, slot := range c.slots.Snapshot() {
		if !slot.Occupied {
			status[slot.ID] = nil
			continue
		}
		if sess, ok := c.sessions.FindBySessionID(slot.SessionID); ok {
			plate := sess.Plate
			status[slot.ID] = &plate
		} else {
			status[slot.ID] = nil
		}
	}
	return status
}

// Occupancy reports occupied slots and open sessions; the two counts are
// equal whenever no transaction is in flight.
func (c *Coordinator) Occupancy() (occupiedSlots, openSessions int) {
	return c.slots.OccupiedCount(), c.sessions.OpenCount()
}
