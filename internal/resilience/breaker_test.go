package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func failN(n int) func() error {
	count := 0
	return func() error {
		count++
		if count <= n {
			return errBackend
		}
		return nil
	}
}

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", MaxFailures: 3, ResetTimeout: time.Hour})

	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return errBackend }); !errors.Is(err, errBackend) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v after %d failures, want open", b.State(), 3)
	}

	// Open breaker rejects without invoking fn.
	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("fn invoked while the circuit was open")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", MaxFailures: 3, ResetTimeout: time.Hour})

	// Two failures, one success, two failures: never reaches the threshold.
	b.Execute(func() error { return errBackend })
	b.Execute(func() error { return errBackend })
	b.Execute(func() error { return nil })
	b.Execute(func() error { return errBackend })
	b.Execute(func() error { return errBackend })

	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_HalfOpenProbesCloseTheCircuit(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		Name:         "test",
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  2,
	})

	b.Execute(func() error { return errBackend })
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	time.Sleep(20 * time.Millisecond)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v after reset timeout, want half-open", b.State())
	}

	// Two successful probes close the circuit.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v after successful probes, want closed", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		Name:         "test",
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
	})

	b.Execute(func() error { return errBackend })
	time.Sleep(20 * time.Millisecond)

	if err := b.Execute(func() error { return errBackend }); !errors.Is(err, errBackend) {
		t.Fatal(err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v after failed probe, want open", b.State())
	}
}

func TestBreaker_Reset(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", MaxFailures: 1, ResetTimeout: time.Hour})
	b.Execute(func() error { return errBackend })
	if b.State() != StateOpen {
		t.Fatal("breaker did not open")
	}

	b.Reset()
	if b.State() != StateClosed {
		t.Fatalf("state = %v after Reset, want closed", b.State())
	}
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
}

func TestBreakerState_String(t *testing.T) {
	cases := map[BreakerState]string{
		StateClosed:      "closed",
		StateOpen:        "open",
		StateHalfOpen:    "half-open",
		BreakerState(99): "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
