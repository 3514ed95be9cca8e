// Package environment outlines the interfaces and structs needed to
// interact with environments, whether they are simulated in-process or
// served by a remote process.
package environment

import (
	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/gymrl/timestep"
)

// Environment implements an environment that an agent interacts with.
//
// Step returns the next TimeStep along with whether or not that
// TimeStep ended the episode. Any error returned by Reset or Step
// means the environment can no longer be trusted.
type Environment interface {
	Reset() (ts.TimeStep, error)
	Step(action *mat.VecDense) (ts.TimeStep, bool, error)
	ObservationSpec() Spec
	ActionSpec() Spec
	DiscountSpec() Spec
}

// Closer is an Environment that holds resources that must be released
// once the environment is no longer needed
type Closer interface {
	Environment
	Close() error
}
