package trackers

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/gymrl/timestep"
)

// episode returns the timesteps of an episode with the given rewards
func episode(rewards ...float64) []ts.TimeStep {
	obs := mat.NewVecDense(1, nil)
	steps := []ts.TimeStep{ts.New(ts.First, 0, 0.99, obs, 0)}
	for i, r := range rewards {
		stepType := ts.Mid
		if i == len(rewards)-1 {
			stepType = ts.Last
		}
		steps = append(steps, ts.New(stepType, r, 0.99, obs, i+1))
	}
	return steps
}

func TestReturn(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	r := NewReturn(filename)

	for _, step := range episode(1, 2, 3) {
		r.Track(step)
	}
	for _, step := range episode(-1, 5) {
		r.Track(step)
	}
	// Unfinished episodes are not recorded
	for _, step := range episode(7, 7)[:2] {
		r.Track(step)
	}

	want := []float64{6, 4}
	returns := r.Returns()
	if len(returns) != len(want) || returns[0] != want[0] ||
		returns[1] != want[1] {
		t.Fatalf("returns: want(%v) have(%v)", want, returns)
	}

	if err := r.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := LoadData(filename)
	if err != nil {
		t.Fatalf("loadData: %v", err)
	}
	if len(data) != len(want) || data[0] != want[0] || data[1] != want[1] {
		t.Errorf("loadData: want(%v) have(%v)", want, data)
	}
}

func TestReturnNonSequential(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("track: expected panic on non-sequential timesteps")
		}
	}()

	r := NewReturn("")
	steps := episode(1, 2, 3)
	r.Track(steps[0])
	r.Track(steps[2])
}

func TestPlot(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.png")
	p := NewPlot(filename, "Test", 2)

	for _, rewards := range [][]float64{{1}, {2, 2}, {3, 3, 3}} {
		for _, step := range episode(rewards...) {
			p.Track(step)
		}
	}
	if len(p.Returns()) != 3 {
		t.Fatalf("track: want(3) returns have(%v)", len(p.Returns()))
	}

	if err := p.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(filename)
	if err != nil {
		t.Fatalf("save: plot not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("save: empty plot file")
	}
}
