package agent

import (
	"github.com/samuelfneumann/gymrl/environment"
	"github.com/samuelfneumann/gymrl/expreplay"
)

// Config represents a configuration for creating an agent
type Config interface {
	// CreateAgent creates the agent that the config describes. The
	// agent learns from batches sampled from replay.
	CreateAgent(env environment.Environment, replay expreplay.Sampler,
		seed uint64) (Agent, error)

	// Validate returns an error describing whether or not the
	// configuration is valid or not.
	Validate() error
}
