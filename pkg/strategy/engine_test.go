package strategy

import (
	"errors"
	"sync"
	"testing"
)

func TestEngineRegistry(t *testing.T) {
	e := NewEngine()

	if _, err := e.Register(testPairConfig("gld-gdx")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := e.Register(testPairConfig("gld-gdx")); !errors.Is(err, ErrPairExists) {
		t.Errorf("duplicate Register error = %v, want ErrPairExists", err)
	}
	if _, err := e.Register(testPairConfig("ewa-ewc")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	names := e.ListPairs()
	if len(names) != 2 || names[0] != "ewa-ewc" || names[1] != "gld-gdx" {
		t.Errorf("ListPairs = %v, want [ewa-ewc gld-gdx]", names)
	}

	if err := e.Deregister("gld-gdx"); err != nil {
		t.Fatalf("Deregister failed: %v", err)
	}
	if err := e.Deregister("gld-gdx"); !errors.Is(err, ErrPairNotFound) {
		t.Errorf("double Deregister error = %v, want ErrPairNotFound", err)
	}
}

func TestEngineUnknownPair(t *testing.T) {
	e := NewEngine()

	if _, err := e.Update("missing", 100.0, 50.0); !errors.Is(err, ErrPairNotFound) {
		t.Errorf("Update error = %v, want ErrPairNotFound", err)
	}
	if _, err := e.GetState("missing"); !errors.Is(err, ErrPairNotFound) {
		t.Errorf("GetState error = %v, want ErrPairNotFound", err)
	}
	if err := e.InitPair("missing", nil, nil); !errors.Is(err, ErrPairNotFound) {
		t.Errorf("InitPair error = %v, want ErrPairNotFound", err)
	}
	if err := e.ResetPair("missing"); !errors.Is(err, ErrPairNotFound) {
		t.Errorf("ResetPair error = %v, want ErrPairNotFound", err)
	}
}

func TestEnginePairIsolation(t *testing.T) {
	e := NewEngine()
	pricesA, pricesB := makeRevertingPair(100, 1.0, 0.8, 3)

	for _, name := range []string{"p1", "p2"} {
		if _, err := e.Register(testPairConfig(name)); err != nil {
			t.Fatalf("Register %s failed: %v", name, err)
		}
	}
	if err := e.InitPair("p1", pricesA, pricesB); err != nil {
		t.Fatalf("InitPair failed: %v", err)
	}

	// p1 is initialized and updatable; p2 is untouched.
	if _, err := e.Update("p1", pricesA[99], pricesB[99]); err != nil {
		t.Fatalf("Update p1 failed: %v", err)
	}
	s2, err := e.GetState("p2")
	if err != nil {
		t.Fatalf("GetState p2 failed: %v", err)
	}
	if s2.Initialized || s2.UpdateCount != 0 {
		t.Errorf("p2 state leaked: %+v", s2)
	}

	// Resetting p1 leaves p2 registered and p1's position flat.
	if err := e.ResetPair("p1"); err != nil {
		t.Fatalf("ResetPair failed: %v", err)
	}
	s1, _ := e.GetState("p1")
	if s1.Initialized {
		t.Error("p1 still initialized after reset")
	}
}

func TestEngineConcurrentUpdates(t *testing.T) {
	e := NewEngine()
	pricesA, pricesB := makeRevertingPair(100, 1.0, 0.8, 9)

	names := []string{"c1", "c2", "c3", "c4"}
	for _, name := range names {
		if _, err := e.Register(testPairConfig(name)); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if err := e.InitPair(name, pricesA, pricesB); err != nil {
			t.Fatalf("InitPair failed: %v", err)
		}
	}

	const updatesPerPair = 50
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			for i := 0; i < updatesPerPair; i++ {
				if _, err := e.Update(name, pricesA[99], pricesB[99]); err != nil {
					t.Errorf("Update %s failed: %v", name, err)
					return
				}
			}
		}(name)
	}
	wg.Wait()

	for _, name := range names {
		s, err := e.GetState(name)
		if err != nil {
			t.Fatalf("GetState failed: %v", err)
		}
		if s.UpdateCount != updatesPerPair {
			t.Errorf("%s update count = %d, want %d", name, s.UpdateCount, updatesPerPair)
		}
	}

	states := e.States()
	if len(states) != len(names) {
		t.Errorf("States returned %d entries, want %d", len(states), len(names))
	}
}
