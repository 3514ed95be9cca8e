// Package noise implements exploration noise processes for continuous
// action agents
package noise

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// OUConfig configures an Ornstein-Uhlenbeck process
type OUConfig struct {
	Mean  float64 // μ
	Theta float64 // Rate of mean reversion
	Sigma float64 // Scale of the gaussian perturbation
}

// Validate checks an OUConfig for errors
func (c OUConfig) Validate() error {
	if c.Theta < 0 {
		return fmt.Errorf("validate: theta must be non-negative")
	}
	if c.Sigma < 0 {
		return fmt.Errorf("validate: sigma must be non-negative")
	}
	return nil
}

// OU implements an Ornstein-Uhlenbeck process. Each sample advances the
// process by one step:
//
//		x <- x + θ(μ - x) + σN(0, 1)
//
// and returns the new state.
type OU struct {
	mean  float64
	theta float64
	sigma float64

	state  *mat.VecDense
	normal distuv.Normal
}

// NewOU returns a new OU process of dimension size with its state set
// to the mean
func NewOU(size int, c OUConfig, seed uint64) (*OU, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newOU: %v", err)
	}
	if size < 1 {
		return nil, fmt.Errorf("newOU: size must be positive")
	}

	o := &OU{
		mean:  c.Mean,
		theta: c.Theta,
		sigma: c.Sigma,
		state: mat.NewVecDense(size, nil),
		normal: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewSource(seed),
		},
	}
	o.Reset()
	return o, nil
}

// Reset resets the state of the process to the mean
func (o *OU) Reset() {
	for i := 0; i < o.state.Len(); i++ {
		o.state.SetVec(i, o.mean)
	}
}

// Sample advances the process one step and returns a copy of the new
// state
func (o *OU) Sample() *mat.VecDense {
	for i := 0; i < o.state.Len(); i++ {
		x := o.state.AtVec(i)
		dx := o.theta*(o.mean-x) + o.sigma*o.normal.Rand()
		o.state.SetVec(i, x+dx)
	}

	sample := mat.NewVecDense(o.state.Len(), nil)
	sample.CopyVec(o.state)
	return sample
}

// State returns the current state of the process
func (o *OU) State() mat.Vector {
	return o.state
}
