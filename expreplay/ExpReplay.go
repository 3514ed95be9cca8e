// Package expreplay implements experience replay buffers
package expreplay

import (
	"fmt"

	ts "github.com/samuelfneumann/gymrl/timestep"
)

// Store is anything transitions can be added to. The training loop only
// ever writes to replay buffers through a Store.
type Store interface {
	Add(t ts.Transition) error
}

// Sampler samples batches of transitions
type Sampler interface {
	Sample() (Batch, error)

	// BatchSize returns the number of transitions returned by Sample
	BatchSize() int
}

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	Store
	Sampler

	// Capacity returns the current number of samples in the buffer
	Capacity() int

	// MaxCapacity returns the maximum allowable samples in the buffer
	MaxCapacity() int

	// MinCapacity returns the number of samples required to be in
	// the buffer before the buffer can be sampled
	MinCapacity() int
}

// Batch is a batch of transitions sampled from a replay buffer. States,
// Actions, and NextStates are flattened row-major so that row i of each
// holds the data of transition i.
type Batch struct {
	States     []float64
	Actions    []float64
	Rewards    []float64
	Discounts  []float64
	NextStates []float64
	Dones      []bool
}

// Size returns the number of transitions in the batch
func (b Batch) Size() int {
	return len(b.Rewards)
}

// Config implements a specific configuration of an ExperienceReplayer.
// If MinCapacity is 0, the batch size is used as the minimum capacity.
type Config struct {
	BatchSize   int
	Capacity    int
	MinCapacity int
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be >= 1")
	}
	if c.Capacity < c.BatchSize {
		return fmt.Errorf("validate: cannot have batch size(%v) > max "+
			"buffer capacity (%v)", c.BatchSize, c.Capacity)
	}
	if c.MinCapacity < 0 || c.MinCapacity > c.Capacity {
		return fmt.Errorf("validate: min capacity must be in [0, %v], "+
			"got %v", c.Capacity, c.MinCapacity)
	}
	return nil
}

// Create creates and returns the ExperienceReplayer with the specified
// Config.
func (c Config) Create(featureSize, actionSize int,
	seed uint64) (ExperienceReplayer, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	minCapacity := c.MinCapacity
	if minCapacity == 0 {
		minCapacity = c.BatchSize
	}

	return NewRandom(c.BatchSize, minCapacity, c.Capacity, featureSize,
		actionSize, seed)
}
