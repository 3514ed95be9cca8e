package policy

import (
	"math"
	"testing"
)

func TestAnneal(t *testing.T) {
	e, err := EGreedyConfig{
		InitialEpsilon: 1.0,
		AnnealInterval: 2000,
		MinEpsilon:     0.1,
		DecayRate:      0.99,
	}.Create(0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	e.Anneal()
	want := 1.0 - 0.9*0.99/2000
	if math.Abs(e.Epsilon()-want) > 1e-12 {
		t.Errorf("anneal: want(%v) have(%v)", want, e.Epsilon())
	}

	for i := 0; i < 5000; i++ {
		e.Anneal()
	}
	if e.Epsilon() != 0.1 {
		t.Errorf("anneal: epsilon should floor at 0.1, have(%v)", e.Epsilon())
	}
}

func TestGreedySelection(t *testing.T) {
	e, err := EGreedyConfig{
		InitialEpsilon: 0,
		AnnealInterval: 1,
		MinEpsilon:     0,
		DecayRate:      1,
	}.Create(7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	values := []float64{0, 2, 1, 2}
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		action := e.SelectAction(values, false)
		if action != 1 && action != 3 {
			t.Fatalf("selectAction: selected non-greedy action %v", action)
		}
		seen[action] = true
	}
	if !seen[1] || !seen[3] {
		t.Error("selectAction: ties should be broken randomly")
	}

	for i := 0; i < 20; i++ {
		if action := e.SelectAction(values, true); action != 1 {
			t.Fatalf("selectAction: deterministic want(1) have(%v)", action)
		}
	}
}

func TestExploration(t *testing.T) {
	e, err := EGreedyConfig{
		InitialEpsilon: 1,
		AnnealInterval: 1,
		MinEpsilon:     1,
		DecayRate:      1,
	}.Create(3)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	counts := make([]int, 4)
	for i := 0; i < 4000; i++ {
		counts[e.SelectAction([]float64{10, 0, 0, 0}, false)]++
	}
	for action, count := range counts {
		if count < 800 {
			t.Errorf("selectAction: action %v selected only %v times", action,
				count)
		}
	}

	// Deterministic mode ignores epsilon
	if action := e.SelectAction([]float64{10, 0, 0, 0}, true); action != 0 {
		t.Errorf("selectAction: deterministic want(0) have(%v)", action)
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := (EGreedyConfig{InitialEpsilon: 0.1, MinEpsilon: 0.5,
		AnnealInterval: 1}).Create(0); err == nil {
		t.Error("create: expected error for minimum above initial epsilon")
	}
}
