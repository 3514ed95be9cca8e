package deepq

import (
	"fmt"

	"github.com/samuelfneumann/gymrl/agent"
	"github.com/samuelfneumann/gymrl/agent/policy"
	env "github.com/samuelfneumann/gymrl/environment"
	"github.com/samuelfneumann/gymrl/expreplay"
	"github.com/samuelfneumann/gymrl/initwfn"
	"github.com/samuelfneumann/gymrl/network"
	"github.com/samuelfneumann/gymrl/solver"
)

// Config implements a configuration for a DeepQ agent
type Config struct {
	PolicyLayers []int                 // Layer sizes in neural net
	Biases       []bool                // Whether each layer should have a bias
	Activations  []*network.Activation // Activation of each layer
	Solver       *solver.Solver        // Solver for learning weights

	// Initialization algorithm for weights
	InitWFn *initwfn.InitWFn

	// Behaviour policy exploration schedule
	Policy policy.EGreedyConfig

	// Target net updates
	Tau                  float64 // Polyak averaging constant
	TargetUpdateInterval int     // Number of updates between target updates

	// DoubleQ selects next actions with the learned network and values
	// them with the target network
	DoubleQ bool
}

// Validate checks a Config to ensure it is a valid configuration of a
// DeepQ agent.
func (c Config) Validate() error {
	if len(c.PolicyLayers) != len(c.Biases) {
		return fmt.Errorf("validate: invalid number of biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.PolicyLayers), len(c.Biases))
	}

	if len(c.PolicyLayers) != len(c.Activations) {
		return fmt.Errorf("validate: invalid number of activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.PolicyLayers),
			len(c.Activations))
	}

	if c.Solver == nil {
		return fmt.Errorf("validate: no solver specified")
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer specified")
	}

	if c.Tau <= 0 || c.Tau > 1 {
		return fmt.Errorf("validate: tau must be in (0, 1], got %v", c.Tau)
	}

	if c.TargetUpdateInterval < 1 {
		return fmt.Errorf("validate: target networks must be updated at "+
			"positive intervals \n\twant(>0) \n\thave(%v)",
			c.TargetUpdateInterval)
	}

	return c.Policy.Validate()
}

// CreateAgent creates a new DeepQ agent based on the configuration
func (c Config) CreateAgent(e env.Environment, replay expreplay.Sampler,
	seed uint64) (agent.Agent, error) {
	return New(e, c, replay, seed)
}
