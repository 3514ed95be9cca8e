// Package wrappers implements environment wrappers which alter how an
// agent interacts with an embedded environment.
package wrappers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/gymrl/environment"
	ts "github.com/samuelfneumann/gymrl/timestep"
)

// ActionScale multiplies every action by a constant before passing it
// to the embedded environment. Agents act in the unscaled space, so an
// agent with a tanh output in [-1, 1] can drive an environment whose
// actions live in [-scale, scale].
//
// ActionScale itself implements the environment.Environment interface.
type ActionScale struct {
	env.Environment
	scale float64
}

// NewActionScale returns a new ActionScale environment wrapper. The
// scale must be non-zero.
func NewActionScale(e env.Environment, scale float64) (*ActionScale, error) {
	if scale == 0 {
		return nil, fmt.Errorf("newActionScale: scale must be non-zero")
	}
	return &ActionScale{Environment: e, scale: scale}, nil
}

// Step scales the action and takes one step in the embedded environment.
// The argument action is not modified.
func (a *ActionScale) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	scaled := mat.NewVecDense(action.Len(), nil)
	scaled.ScaleVec(a.scale, action)

	return a.Environment.Step(scaled)
}

// ActionSpec returns the action specification as seen by the agent,
// with the embedded environment's bounds divided by the scale
func (a *ActionScale) ActionSpec() env.Spec {
	spec := a.Environment.ActionSpec()
	if spec.Cardinality == env.Discrete {
		return spec
	}

	low := mat.NewVecDense(spec.LowerBound.Len(), nil)
	low.ScaleVec(1/a.scale, spec.LowerBound)
	high := mat.NewVecDense(spec.UpperBound.Len(), nil)
	high.ScaleVec(1/a.scale, spec.UpperBound)

	// Negative scales flip the bounds
	if a.scale < 0 {
		low, high = high, low
	}

	return env.NewSpec(spec.Shape, spec.Type, low, high, spec.Cardinality)
}

// Close closes the embedded environment if it holds resources
func (a *ActionScale) Close() error {
	if closer, ok := a.Environment.(env.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (a *ActionScale) String() string {
	return fmt.Sprintf("ActionScale(%v): %v", a.scale, a.Environment)
}
