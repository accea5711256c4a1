package parking

import (
	"errors"
	"testing"
)

func testSpecs() []SlotSpec {
	return []SlotSpec{
		{Class: ClassCar, Count: 3},
		{Class: ClassMotorcycle, Count: 2},
	}
}

func TestNewSlotRegistry(t *testing.T) {
	r := NewSlotRegistry(testSpecs())

	if r.Capacity() != 5 {
		t.Errorf("Expected capacity 5, got %d", r.Capacity())
	}

	snapshot := r.Snapshot()
	for i, slot := range snapshot {
		if slot.ID != i+1 {
			t.Errorf("Expected slot ID %d, got %d", i+1, slot.ID)
		}
		if slot.Occupied {
			t.Errorf("Expected slot %d to be free", slot.ID)
		}
	}
	if snapshot[2].Class != ClassCar {
		t.Errorf("Expected slot 3 to be a car slot, got %s", snapshot[2].Class)
	}
	if snapshot[3].Class != ClassMotorcycle {
		t.Errorf("Expected slot 4 to be a motorcycle slot, got %s", snapshot[3].Class)
	}
}

func TestSlotRegistryAllocateLowestID(t *testing.T) {
	r := NewSlotRegistry(testSpecs())

	slot, err := r.Allocate(ClassCar, "s1")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if slot.ID != 1 {
		t.Errorf("Expected slot 1, got %d", slot.ID)
	}

	slot, err = r.Allocate(ClassCar, "s2")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if slot.ID != 2 {
		t.Errorf("Expected slot 2, got %d", slot.ID)
	}

	// Motorcycles skip the car slots.
	slot, err = r.Allocate(ClassMotorcycle, "s3")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if slot.ID != 4 {
		t.Errorf("Expected slot 4, got %d", slot.ID)
	}
}

func TestSlotRegistryExhaustion(t *testing.T) {
	r := NewSlotRegistry([]SlotSpec{{Class: ClassCar, Count: 1}})

	if _, err := r.Allocate(ClassCar, "s1"); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if _, err := r.Allocate(ClassCar, "s2"); !errors.Is(err, ErrNoSlotAvailable) {
		t.Errorf("Expected ErrNoSlotAvailable, got %v", err)
	}
	if _, err := r.Allocate(ClassMotorcycle, "s3"); !errors.Is(err, ErrNoSlotAvailable) {
		t.Errorf("Expected ErrNoSlotAvailable for unprovisioned class, got %v", err)
	}
}

func TestSlotRegistryReleaseAndReuse(t *testing.T) {
	r := NewSlotRegistry(testSpecs())

	r.Allocate(ClassCar, "s1")
	r.Allocate(ClassCar, "s2")
	r.Allocate(ClassCar, "s3")

	if err := r.Release(2); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	slot, err := r.Allocate(ClassCar, "s4")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if slot.ID != 2 {
		t.Errorf("Expected freed slot 2 to be reused, got %d", slot.ID)
	}
	if slot.SessionID != "s4" {
		t.Errorf("Expected session binding s4, got %s", slot.SessionID)
	}
}

func TestSlotRegistryReleaseErrors(t *testing.T) {
	r := NewSlotRegistry(testSpecs())

	if err := r.Release(1); !errors.Is(err, ErrSlotNotOccupied) {
		t.Errorf("Expected ErrSlotNotOccupied, got %v", err)
	}
	if err := r.Release(99); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("Expected ErrUnknownSlot, got %v", err)
	}
}

func TestSlotRegistryConcurrentAllocate(t *testing.T) {
	r := NewSlotRegistry([]SlotSpec{{Class: ClassCar, Count: 1}})

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func(session string) {
			_, err := r.Allocate(ClassCar, session)
			results <- err
		}("s" + string(rune('1'+i)))
	}

	var failures int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("Expected exactly one allocation to fail, got %d failures", failures)
	}
	if r.OccupiedCount() != 1 {
		t.Errorf("Expected 1 occupied slot, got %d", r.OccupiedCount())
	}
}
