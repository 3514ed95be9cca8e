package expreplay

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/gymrl/timestep"
)

func transition(r float64, done bool) ts.Transition {
	return ts.Transition{
		State:     mat.NewVecDense(2, []float64{r, r}),
		Action:    mat.NewVecDense(1, []float64{-r}),
		Reward:    r,
		Discount:  0.99,
		NextState: mat.NewVecDense(2, []float64{r + 1, r + 1}),
		Done:      done,
	}
}

func TestSampleErrors(t *testing.T) {
	r, err := NewRandom(2, 3, 10, 2, 1, 1)
	if err != nil {
		t.Fatalf("newRandom: %v", err)
	}

	if _, err := r.Sample(); !IsEmptyBuffer(err) {
		t.Errorf("sample: expected empty buffer error, got %v", err)
	}

	r.Add(transition(1, false))
	r.Add(transition(2, false))
	if _, err := r.Sample(); !IsInsufficientSamples(err) {
		t.Errorf("sample: expected insufficient samples error, got %v", err)
	}

	r.Add(transition(3, false))
	if _, err := r.Sample(); err != nil {
		t.Errorf("sample: %v", err)
	}
}

func TestOverwriteOldest(t *testing.T) {
	r, err := NewRandom(3, 1, 3, 2, 1, 42)
	if err != nil {
		t.Fatalf("newRandom: %v", err)
	}

	for i := 1; i <= 4; i++ {
		if err := r.Add(transition(float64(i), i == 4)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if r.Capacity() != 3 {
		t.Errorf("capacity: want(3) have(%v)", r.Capacity())
	}

	seen := make(map[float64]bool)
	for s := 0; s < 30; s++ {
		batch, err := r.Sample()
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if batch.Size() != 3 {
			t.Fatalf("sample: batch size want(3) have(%v)", batch.Size())
		}

		for i, reward := range batch.Rewards {
			seen[reward] = true
			if reward < 2 || reward > 4 {
				t.Errorf("sample: reward %v should have been overwritten",
					reward)
			}

			// Each field of a sampled transition must come from the same
			// stored transition
			if batch.States[2*i] != reward ||
				batch.NextStates[2*i+1] != reward+1 {
				t.Errorf("sample: misaligned states for reward %v", reward)
			}
			if batch.Actions[i] != -reward {
				t.Errorf("sample: misaligned action for reward %v", reward)
			}
			if batch.Dones[i] != (reward == 4) {
				t.Errorf("sample: misaligned done flag for reward %v",
					reward)
			}
			if batch.Discounts[i] != 0.99 {
				t.Errorf("sample: discount want(0.99) have(%v)",
					batch.Discounts[i])
			}
		}
	}

	// 90 uniform draws over 3 entries hit every entry
	for _, reward := range []float64{2, 3, 4} {
		if !seen[reward] {
			t.Errorf("sample: stored reward %v never sampled", reward)
		}
	}
}

func TestBatchLargerThanCapacity(t *testing.T) {
	if _, err := NewRandom(4, 1, 3, 2, 1, 0); err == nil {
		t.Error("newRandom: expected error for batch size > capacity")
	}
}

func TestAddInvalidSize(t *testing.T) {
	r, err := NewRandom(1, 1, 2, 3, 1, 0)
	if err != nil {
		t.Fatalf("newRandom: %v", err)
	}
	if err := r.Add(transition(1, false)); err == nil {
		t.Error("add: expected error for invalid feature size")
	}
	if r.Capacity() != 0 {
		t.Errorf("add: invalid transition should not be stored")
	}
}

func TestConfigCreate(t *testing.T) {
	if _, err := (Config{BatchSize: 64, Capacity: 32}).Create(2, 1, 0); err == nil {
		t.Error("create: expected error for batch size > capacity")
	}

	replay, err := Config{BatchSize: 4, Capacity: 16}.Create(2, 1, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if replay.MinCapacity() != 4 {
		t.Errorf("create: default min capacity want(4) have(%v)",
			replay.MinCapacity())
	}
}
