package host

import (
	"testing"
	"time"
)

func TestTickerAccumulates(t *testing.T) {
	tk := &Ticker{Interval: 10 * time.Millisecond, MaxSteps: 10}

	if n := tk.Advance(4 * time.Millisecond); n != 0 {
		t.Errorf("expected 0 ticks, got %d", n)
	}
	if n := tk.Advance(4 * time.Millisecond); n != 0 {
		t.Errorf("expected 0 ticks, got %d", n)
	}
	if n := tk.Advance(4 * time.Millisecond); n != 1 {
		t.Errorf("expected 1 tick, got %d", n)
	}
	if p := tk.Pending(); p != 2*time.Millisecond {
		t.Errorf("expected 2ms pending, got %v", p)
	}
	if n := tk.Advance(28 * time.Millisecond); n != 3 {
		t.Errorf("expected 3 ticks, got %d", n)
	}
}

func TestTickerDropsBacklog(t *testing.T) {
	tk := &Ticker{Interval: 10 * time.Millisecond, MaxSteps: 10}

	if n := tk.Advance(time.Second); n != 10 {
		t.Errorf("expected the cap of 10 ticks, got %d", n)
	}
	if p := tk.Pending(); p != 0 {
		t.Errorf("expected backlog to be dropped, %v pending", p)
	}
	if n := tk.Advance(5 * time.Millisecond); n != 0 {
		t.Errorf("expected 0 ticks after drop, got %d", n)
	}
}

func TestTickerIgnoresNegative(t *testing.T) {
	tk := DefaultTicker()
	if n := tk.Advance(-time.Second); n != 0 {
		t.Errorf("expected 0 ticks, got %d", n)
	}
	tk.Advance(DefaultInterval / 2)
	tk.Reset()
	if p := tk.Pending(); p != 0 {
		t.Errorf("expected reset, %v pending", p)
	}
}

func TestDefaultTickerRate(t *testing.T) {
	tk := DefaultTicker()
	total := 0
	for i := 0; i < 60; i++ {
		total += tk.Advance(DefaultInterval)
	}
	if total != 60 {
		t.Errorf("expected 60 ticks in one second, got %d", total)
	}
}
