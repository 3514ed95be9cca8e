package environment

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNumActions(t *testing.T) {
	shape := mat.NewVecDense(1, nil)
	low := mat.NewVecDense(1, nil)
	high := mat.NewVecDense(1, []float64{3})

	discrete := NewSpec(shape, Action, low, high, Discrete)
	n, err := discrete.NumActions()
	if err != nil {
		t.Fatalf("numActions: %v", err)
	}
	if n != 4 {
		t.Errorf("numActions: want(4) have(%v)", n)
	}

	continuous := NewSpec(shape, Action, low, high, Continuous)
	if _, err := continuous.NumActions(); err == nil {
		t.Error("numActions: expected error for continuous spec")
	}

	offset := NewSpec(shape, Action, mat.NewVecDense(1, []float64{1}), high,
		Discrete)
	if _, err := offset.NumActions(); err == nil {
		t.Error("numActions: expected error for actions not starting at 0")
	}
}

func TestNewSpecPanicsOnMismatchedBounds(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("newSpec: expected panic on mismatched bounds")
		}
	}()
	NewSpec(mat.NewVecDense(2, nil), Observation, mat.NewVecDense(1, nil),
		mat.NewVecDense(2, nil), Continuous)
}
