package parking

import (
	"fmt"
	"sync"
)

// VehicleClass tags a slot with the kind of vehicle it can hold.
type VehicleClass string

const (
	ClassCar        VehicleClass = "car"
	ClassMotorcycle VehicleClass = "motorcycle"
)

// Slot is a single physical parking space. Occupied and SessionID are only
// mutated through the registry's Allocate/Release.
type Slot struct {
	ID        int
	Class     VehicleClass
	Occupied  bool
	SessionID string
}

// SlotSpec declares how many slots of a class to provision.
type SlotSpec struct {
	Class VehicleClass
	Count int
}

// SlotRegistry owns the slot pool. Slot IDs are assigned sequentially from 1
// in provisioning order, so "lowest free ID" is deterministic across runs.
type SlotRegistry struct {
	mu    sync.Mutex
	slots []*Slot
}

func NewSlotRegistry(specs []SlotSpec) *SlotRegistry {
	var slots []*Slot
	id := 1
	for _, spec := range specs {
		for i := 0; i < spec.Count; i++ {
			slots = append(slots, &Slot{ID: id, Class: spec.Class})
			id++
		}
	}
	return &SlotRegistry{slots: slots}
}

// Allocate marks the lowest-ID free slot of the class occupied and binds it
// to the session. The scan-and-mark happens under one lock so two concurrent
// allocations can never land on the same slot.
func (r *SlotRegistry) Allocate(class VehicleClass, sessionID string) (Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, slot := range r.slots {
		if slot.Class == class && !slot.Occupied {
			slot.Occupied = true
			slot.SessionID = sessionID
			return *slot, nil
		}
	}
	return Slot{}, ErrNoSlotAvailable
}

// Release clears occupancy and the session binding. Releasing a free slot
// means a coordinator bug; it is surfaced, never swallowed.
func (r *SlotRegistry) Release(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := r.find(id)
	if slot == nil {
		return fmt.Errorf("release slot %d: %w", id, ErrUnknownSlot)
	}
	if !slot.Occupied {
		return fmt.Errorf("release slot %d: %w", id, ErrSlotNotOccupied)
	}
	slot.Occupied = false
	slot.SessionID = ""
	return nil
}

// Snapshot returns a copy of every slot, ordered by ID.
func (r *SlotRegistry) Snapshot() []Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Slot, len(r.slots))
	for i, slot := range r.slots {
		out[i] = *slot
	}
	return out
}

// OccupiedCount reports how many slots are currently occupied.
func (r *SlotRegistry) OccupiedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, slot := range r.slots {
		if slot.Occupied {
			n++
		}
	}
	return n
}

// Capacity is the total number of provisioned slots.
func (r *SlotRegistry) Capacity() int {
	return len(r.slots)
}

func (r *SlotRegistry) find(id int) *Slot {
	for _, slot := range r.slots {
		if slot.ID == id {
			return slot
		}
	}
	return nil
}
