package matutils

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestVecClip(t *testing.T) {
	a := mat.NewVecDense(3, []float64{-5, 0.5, 5})
	low := mat.NewVecDense(3, []float64{-1, 0, 0})
	high := mat.NewVecDense(3, []float64{1, 1, 2})

	VecClip(a, low, high)

	want := []float64{-1, 0.5, 2}
	for i := range want {
		if a.AtVec(i) != want[i] {
			t.Errorf("vecClip: index %v want(%v) have(%v)", i, want[i],
				a.AtVec(i))
		}
	}
}

func TestVecCopy(t *testing.T) {
	v := mat.NewVecDense(2, []float64{1, 2})
	c := VecCopy(v)
	v.SetVec(0, 10)

	if c.AtVec(0) != 1 || c.AtVec(1) != 2 {
		t.Errorf("vecCopy: copy changed with original: %v", Format(c))
	}
}
