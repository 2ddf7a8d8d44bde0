package gateway

import (
	"testing"
	"time"
)

func TestBudget_RemainingDecreases(t *testing.T) {
	b := NewBudget(30 * time.Second)

	first := b.Remaining()
	if first > 30*time.Second {
		t.Errorf("Remaining = %v, want <= ceiling", first)
	}

	time.Sleep(10 * time.Millisecond)
	second := b.Remaining()
	if second >= first {
		t.Errorf("Remaining did not decrease: %v then %v", first, second)
	}
}

func TestBudget_ElapsedAndRemainingSum(t *testing.T) {
	ceiling := 5 * time.Second
	b := NewBudget(ceiling)

	// Elapsed + Remaining should reconstruct the ceiling to within
	// clock-read slop.
	sum := b.Elapsed() + b.Remaining()
	diff := ceiling - sum
	if diff < -time.Millisecond || diff > time.Millisecond {
		t.Errorf("Elapsed+Remaining = %v, want ~%v", sum, ceiling)
	}
}

func TestBudget_ExhaustedGoesNegative(t *testing.T) {
	b := NewBudget(time.Nanosecond)
	time.Sleep(time.Millisecond)
	if b.Remaining() > 0 {
		t.Error("expected non-positive remaining after ceiling passed")
	}
}
