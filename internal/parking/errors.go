package parking

import (
	"errors"
	"fmt"
)

// Domain conditions. These are expected, caller-recoverable outcomes and are
// matched with errors.Is / errors.As at the server boundary; anything else
// bubbling out of the kernel is an internal failure.
var (
	ErrNoSlotAvailable = errors.New("no slot available for this vehicle class")
	ErrAlreadyInside   = errors.New("vehicle already has an open session")
	ErrNotInside       = errors.New("vehicle has no open session")
	ErrSessionOpen     = errors.New("vehicle already has an open session record")
	ErrSessionNotOpen  = errors.New("no open session record for vehicle")
	ErrUnknownAccount  = errors.New("account not found")
	ErrUnknownSlot     = errors.New("slot does not exist")
	ErrSlotNotOccupied = errors.New("slot is not occupied")
	ErrNegativeAmount  = errors.New("amount must not be negative")
)

// InsufficientFundsError carries the figures the exit contract reports back
// to the caller so they can top up and retry.
type InsufficientFundsError struct {
	Balance  float64
	Required float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %.2f, required %.2f", e.Balance, e.Required)
}

// Shortfall is the amount the caller must credit before retrying.
func (e *InsufficientFundsError) Shortfall() float64 {
	return Round2(e.Required - e.Balance)
}
