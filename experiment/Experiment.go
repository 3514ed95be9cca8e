// Package experiment implements functionality for running an experiment
package experiment

import (
	"fmt"

	"github.com/samuelfneumann/gymrl/experiment/trackers"
)

// Interface Experiment outlines structs that can run experiments.
// Experiments send each environment TimeStep generated while training
// to their Trackers, which cache the data in RAM to be later saved to
// disk by Save(). The Run() method runs whole episodes until a budget
// of environment steps is reached, RunEpisode() runs a single episode
// and Evaluate() runs a single episode with the agent acting
// deterministically.
//
// New Trackers can be registered with an Experiment through the
// constructor or through an Experiment's Register() function.
type Experiment interface {
	Run(budget int) error
	RunEpisode() (float64, error) // Returns the return of the episode
	Evaluate() (EvalResult, error)

	// Adds a new trackers.Tracker to the (possibly already running)
	// experiment. Useful if you want to track data only after a
	// specified event.
	Register(t trackers.Tracker)

	// Save all tracked data to disk
	Save() error
}

// EvalResult is the outcome of an evaluation episode
type EvalResult struct {
	Steps  int
	Reward float64
}

// Config represents a configuration of an online experiment
type Config struct {
	// Number of environment steps before the agent starts learning
	WarmupSteps int

	// Number of agent updates after each environment step
	UpdatesPerStep int

	// Number of episodes in the trailing window of returns
	WindowSize int

	// Number of episodes between progress reports
	ReportInterval int

	// Discount stored with each transition
	Discount float64
}

// Validate checks a Config to ensure it is a valid experiment
// configuration
func (c Config) Validate() error {
	if c.WarmupSteps < 0 {
		return fmt.Errorf("warmup steps must be non-negative")
	}
	if c.UpdatesPerStep < 0 {
		return fmt.Errorf("updates per step must be non-negative")
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive")
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("report interval must be positive")
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("discount must be in [0, 1]")
	}
	return nil
}
