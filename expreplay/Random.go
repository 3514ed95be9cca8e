package expreplay

import (
	"fmt"

	"golang.org/x/exp/rand"

	ts "github.com/samuelfneumann/gymrl/timestep"
)

// RandomReplay is a fixed-capacity ring buffer of transitions. Once
// full, each added transition overwrites the oldest one. Batches are
// sampled uniformly at random with replacement.
type RandomReplay struct {
	stateCache     []float64
	actionCache    []float64
	rewardCache    []float64
	discountCache  []float64
	nextStateCache []float64
	doneCache      []bool

	// position is the index the next transition is written to
	position int
	size     int

	batchSize   int
	minCapacity int
	maxCapacity int
	featureSize int
	actionSize  int

	rng *rand.Rand
}

// NewRandom creates and returns a new RandomReplay. The featureSize and
// actionSize parameters define the size of the feature and action
// vectors.
//
// Pixel observations should be flattened before adding to the buffer.
func NewRandom(batchSize, minCapacity, maxCapacity, featureSize,
	actionSize int, seed uint64) (*RandomReplay, error) {
	if minCapacity <= 0 {
		return nil, fmt.Errorf("newRandom: minCapacity must be > 0")
	}
	if maxCapacity < minCapacity {
		return nil, fmt.Errorf("newRandom: maxCapacity (%v) must be >= "+
			"minCapacity (%v)", maxCapacity, minCapacity)
	}
	if batchSize < 1 || maxCapacity < batchSize {
		return nil, fmt.Errorf("newRandom: cannot have batch size(%v) > max "+
			"buffer capacity (%v)", batchSize, maxCapacity)
	}
	if featureSize < 1 || actionSize < 1 {
		return nil, fmt.Errorf("newRandom: feature and action sizes must "+
			"be positive, got %v and %v", featureSize, actionSize)
	}

	return &RandomReplay{
		stateCache:     make([]float64, maxCapacity*featureSize),
		actionCache:    make([]float64, maxCapacity*actionSize),
		rewardCache:    make([]float64, maxCapacity),
		discountCache:  make([]float64, maxCapacity),
		nextStateCache: make([]float64, maxCapacity*featureSize),
		doneCache:      make([]bool, maxCapacity),

		batchSize:   batchSize,
		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
		featureSize: featureSize,
		actionSize:  actionSize,

		rng: rand.New(rand.NewSource(seed)),
	}, nil
}

// Add adds a transition to the buffer, overwriting the oldest
// transition if the buffer is full
func (r *RandomReplay) Add(t ts.Transition) error {
	if t.State.Len() != r.featureSize || t.NextState.Len() != r.featureSize {
		return fmt.Errorf("add: invalid feature size \n\twant(%v)\n\thave(%v)",
			r.featureSize, t.State.Len())
	}
	if t.Action.Len() != r.actionSize {
		return fmt.Errorf("add: invalid action size \n\twant(%v)\n\thave(%v)",
			r.actionSize, t.Action.Len())
	}

	index := r.position

	stateInd := index * r.featureSize
	copy(r.stateCache[stateInd:stateInd+r.featureSize],
		t.State.RawVector().Data)
	copy(r.nextStateCache[stateInd:stateInd+r.featureSize],
		t.NextState.RawVector().Data)

	actionInd := index * r.actionSize
	copy(r.actionCache[actionInd:actionInd+r.actionSize],
		t.Action.RawVector().Data)

	r.rewardCache[index] = t.Reward
	r.discountCache[index] = t.Discount
	r.doneCache[index] = t.Done

	r.position = (r.position + 1) % r.maxCapacity
	if r.size < r.maxCapacity {
		r.size++
	}

	return nil
}

// Sample samples and returns a batch of transitions from the replay
// buffer
func (r *RandomReplay) Sample() (Batch, error) {
	if r.Capacity() == 0 {
		return Batch{}, &ExpReplayError{Op: "sample", Err: errEmptyCache}
	}
	if r.Capacity() < r.MinCapacity() {
		return Batch{}, &ExpReplayError{
			Op:  "sample",
			Err: errInsufficientSamples,
		}
	}

	batch := Batch{
		States:     make([]float64, r.batchSize*r.featureSize),
		Actions:    make([]float64, r.batchSize*r.actionSize),
		Rewards:    make([]float64, r.batchSize),
		Discounts:  make([]float64, r.batchSize),
		NextStates: make([]float64, r.batchSize*r.featureSize),
		Dones:      make([]bool, r.batchSize),
	}

	for i := 0; i < r.batchSize; i++ {
		index := r.rng.Intn(r.size)

		batchStartInd := i * r.featureSize
		expStartInd := index * r.featureSize
		copy(batch.States[batchStartInd:batchStartInd+r.featureSize],
			r.stateCache[expStartInd:expStartInd+r.featureSize])
		copy(batch.NextStates[batchStartInd:batchStartInd+r.featureSize],
			r.nextStateCache[expStartInd:expStartInd+r.featureSize])

		batchStartInd = i * r.actionSize
		expStartInd = index * r.actionSize
		copy(batch.Actions[batchStartInd:batchStartInd+r.actionSize],
			r.actionCache[expStartInd:expStartInd+r.actionSize])

		batch.Rewards[i] = r.rewardCache[index]
		batch.Discounts[i] = r.discountCache[index]
		batch.Dones[i] = r.doneCache[index]
	}

	return batch, nil
}

// BatchSize returns the number of samples sampled using Sample()
func (r *RandomReplay) BatchSize() int {
	return r.batchSize
}

// Capacity returns the current number of elements in the buffer that
// are available for sampling
func (r *RandomReplay) Capacity() int {
	return r.size
}

// MaxCapacity returns the maximum number of elements that are allowed
// in the buffer
func (r *RandomReplay) MaxCapacity() int {
	return r.maxCapacity
}

// MinCapacity returns the minimum number of elements required in the
// buffer before sampling is allowed
func (r *RandomReplay) MinCapacity() int {
	return r.minCapacity
}

// String returns the string representation of the buffer
func (r *RandomReplay) String() string {
	return fmt.Sprintf("RandomReplay | Size: %v/%v | Batch Size: %v",
		r.size, r.maxCapacity, r.batchSize)
}
