// Package policy implements exploration policies which select actions
// from the outputs of an agent's function approximator.
package policy

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/gymrl/utils/floatutils"
)

// EGreedyConfig configures an annealed epsilon greedy policy
type EGreedyConfig struct {
	InitialEpsilon float64
	AnnealInterval int // Number of Anneal calls to reach MinEpsilon
	MinEpsilon     float64

	// DecayRate scales the amount epsilon is annealed by on each call
	DecayRate float64
}

// Validate checks an EGreedyConfig for errors
func (c EGreedyConfig) Validate() error {
	if c.InitialEpsilon < 0 || c.InitialEpsilon > 1 {
		return fmt.Errorf("validate: initial epsilon must be in [0, 1], "+
			"got %v", c.InitialEpsilon)
	}
	if c.MinEpsilon < 0 || c.MinEpsilon > c.InitialEpsilon {
		return fmt.Errorf("validate: minimum epsilon must be in [0, %v], "+
			"got %v", c.InitialEpsilon, c.MinEpsilon)
	}
	if c.AnnealInterval < 1 {
		return fmt.Errorf("validate: anneal interval must be positive")
	}
	if c.DecayRate < 0 {
		return fmt.Errorf("validate: decay rate must be non-negative")
	}
	return nil
}

// Create returns the EGreedy policy described by the config
func (c EGreedyConfig) Create(seed uint64) (*EGreedy, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	delta := (c.InitialEpsilon - c.MinEpsilon) * c.DecayRate /
		float64(c.AnnealInterval)

	return &EGreedy{
		epsilon:    c.InitialEpsilon,
		minEpsilon: c.MinEpsilon,
		delta:      delta,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// EGreedy implements an epsilon greedy policy over a set of action
// values. With probability epsilon, a uniformly random action is
// selected. Otherwise, an action of maximum value is selected, with
// ties broken randomly.
//
// Epsilon is annealed linearly: each call to Anneal lowers epsilon by
// (initial - minimum) * decay / interval until it reaches the minimum.
type EGreedy struct {
	epsilon    float64
	minEpsilon float64
	delta      float64

	rng *rand.Rand
}

// SelectAction selects an action given the values of each action. If
// deterministic is true, the first action of maximum value is always
// selected.
func (e *EGreedy) SelectAction(actionValues []float64,
	deterministic bool) int {
	if deterministic {
		return floatutils.ArgMax(actionValues)
	}

	// With probability epsilon return a random action
	if e.rng.Float64() < e.epsilon {
		return e.rng.Intn(len(actionValues))
	}

	// If multiple actions have max value, return a random max-valued action
	_, maxIndices := floatutils.MaxSlice(actionValues)
	return maxIndices[e.rng.Intn(len(maxIndices))]
}

// Anneal anneals epsilon towards its minimum
func (e *EGreedy) Anneal() {
	e.epsilon -= e.delta
	if e.epsilon < e.minEpsilon {
		e.epsilon = e.minEpsilon
	}
}

// Epsilon returns the current value of epsilon
func (e *EGreedy) Epsilon() float64 {
	return e.epsilon
}
