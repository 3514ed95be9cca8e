package ddpg

import (
	"fmt"

	"github.com/samuelfneumann/gymrl/agent"
	"github.com/samuelfneumann/gymrl/agent/noise"
	env "github.com/samuelfneumann/gymrl/environment"
	"github.com/samuelfneumann/gymrl/expreplay"
	"github.com/samuelfneumann/gymrl/initwfn"
	"github.com/samuelfneumann/gymrl/network"
	"github.com/samuelfneumann/gymrl/solver"
)

// Config implements a configuration for a DDPG agent
type Config struct {
	// Actor network, a final tanh layer is always added
	ActorLayers      []int
	ActorBiases      []bool
	ActorActivations []*network.Activation
	ActorSolver      *solver.Solver

	// Critic network over the concatenated state and action, a final
	// linear layer with a single output is always added
	CriticLayers      []int
	CriticBiases      []bool
	CriticActivations []*network.Activation
	CriticSolver      *solver.Solver

	// Initialization algorithm for the weights of both networks
	InitWFn *initwfn.InitWFn

	// Exploration noise added to actions in training mode
	Noise noise.OUConfig

	// Target net updates
	Tau                  float64 // Polyak averaging constant
	TargetUpdateInterval int     // Number of updates between target updates
}

// Validate checks a Config to ensure it is a valid configuration of a
// DDPG agent.
func (c Config) Validate() error {
	if len(c.ActorLayers) != len(c.ActorBiases) ||
		len(c.ActorLayers) != len(c.ActorActivations) {
		return fmt.Errorf("validate: actor must have one bias and " +
			"activation per layer")
	}
	if len(c.CriticLayers) != len(c.CriticBiases) ||
		len(c.CriticLayers) != len(c.CriticActivations) {
		return fmt.Errorf("validate: critic must have one bias and " +
			"activation per layer")
	}

	if c.ActorSolver == nil || c.CriticSolver == nil {
		return fmt.Errorf("validate: both actor and critic solvers must " +
			"be specified")
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

	return c.Noise.Validate()
}

// CreateAgent creates a new DDPG agent based on the configuration
func (c Config) CreateAgent(e env.Environment, replay expreplay.Sampler,
	seed uint64) (agent.Agent, error) {
	return New(e, c, replay, seed)
}
