// Package matutils implements utility function for working with mat.Matrix
// structs
package matutils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gymrl/utils/floatutils"
)

// Format formats a matrix for printing
func Format(X mat.Matrix) string {
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	return fmt.Sprintf("%v", fa)
}

// VecClip performs an element-wise clipping of a vector's values such
// that each value a[i] is at least low[i] and at most high[i]
func VecClip(a *mat.VecDense, low, high mat.Vector) {
	if a.Len() != low.Len() || a.Len() != high.Len() {
		panic(fmt.Sprintf("vecClip: bounds of length (%v, %v) do not match "+
			"vector of length %v", low.Len(), high.Len(), a.Len()))
	}

	for i := 0; i < a.Len(); i++ {
		a.SetVec(i, floatutils.Clip(a.AtVec(i), low.AtVec(i), high.AtVec(i)))
	}
}

// VecCopy returns a copy of v as a *mat.VecDense
func VecCopy(v mat.Vector) *mat.VecDense {
	c := mat.NewVecDense(v.Len(), nil)
	c.CopyVec(v)
	return c
}
