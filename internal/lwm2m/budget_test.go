package lwm2m

import (
	"errors"
	"testing"
)

func TestBudget_ReserveRelease(t *testing.T) {
	b := NewBudget(10)

	if err := b.Reserve(6); err != nil {
		t.Fatalf("Reserve(6) error = %v", err)
	}
	if err := b.Reserve(5); !errors.Is(err, ErrAllocationFailed) {
		t.Fatalf("Reserve(5) error = %v, want ErrAllocationFailed", err)
	}
	if got := b.Used(); got != 6 {
		t.Errorf("Used() = %d, want 6", got)
	}

	b.Release(6)
	if err := b.Reserve(10); err != nil {
		t.Fatalf("Reserve(10) after release error = %v", err)
	}
	if got := b.Used(); got != 10 {
		t.Errorf("Used() = %d, want 10", got)
	}
}

func TestBudget_Swap(t *testing.T) {
	b := NewBudget(8)
	if err := b.Reserve(4); err != nil {
		t.Fatal(err)
	}

	if err := b.Swap(4, 9); !errors.Is(err, ErrAllocationFailed) {
		t.Fatalf("Swap(4, 9) error = %v, want ErrAllocationFailed", err)
	}
	if got := b.Used(); got != 4 {
		t.Errorf("Used() after failed swap = %d, want 4", got)
	}

	if err := b.Swap(4, 8); err != nil {
		t.Fatalf("Swap(4, 8) error = %v", err)
	}
	if err := b.Swap(8, 2); err != nil {
		t.Fatalf("Swap(8, 2) error = %v", err)
	}
	if got := b.Used(); got != 2 {
		t.Errorf("Used() = %d, want 2", got)
	}
}

func TestBudget_Unbounded(t *testing.T) {
	var nilBudget *Budget
	if err := nilBudget.Reserve(1 << 20); err != nil {
		t.Errorf("nil budget Reserve() error = %v", err)
	}
	nilBudget.Release(1 << 20)

	b := NewBudget(0)
	if err := b.Reserve(1 << 20); err != nil {
		t.Errorf("unbounded Reserve() error = %v", err)
	}
	if b.Capacity() != 0 {
		t.Errorf("Capacity() = %d, want 0", b.Capacity())
	}
}
