package experiment

import (
	"fmt"

	"github.com/samuelfneumann/gymrl/agent"
	env "github.com/samuelfneumann/gymrl/environment"
	"github.com/samuelfneumann/gymrl/experiment/trackers"
	"github.com/samuelfneumann/gymrl/expreplay"
	ts "github.com/samuelfneumann/gymrl/timestep"
)

// Online is an Experiment that trains an agent online. Each
// transition is written to a replay buffer and the agent is updated
// after every step once warm-up is over.
//
// Errors returned by the environment, agent, or replay buffer are
// returned as-is.
type Online struct {
	env    env.Environment
	agent  agent.Agent
	replay expreplay.Store
	config Config

	state    RunState
	trackers []trackers.Tracker
	reporter Reporter
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. Transitions are written to replay.
// The t parameter is a slice of trackers.Tracker which determine what
// data is saved.
func NewOnline(e env.Environment, a agent.Agent, replay expreplay.Store,
	c Config, t ...trackers.Tracker) (*Online, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newOnline: %v", err)
	}

	return &Online{
		env:      e,
		agent:    a,
		replay:   replay,
		config:   c,
		state:    newRunState(c.WindowSize),
		trackers: t,
		reporter: LogProgress,
	}, nil
}

// SetReporter sets the function progress is reported to
func (o *Online) SetReporter(r Reporter) {
	o.reporter = r
}

// Register registers a trackers.Tracker with an Experiment so that
// data generated during the experiment can be tracked and saved
func (o *Online) Register(t trackers.Tracker) {
	o.trackers = append(o.trackers, t)
}

// State returns the current state of the run
func (o *Online) State() RunState {
	return o.state
}

// Run puts the agent in training mode and runs episodes until at least
// budget environment steps have been taken in total. Episodes are
// always run until they end, so the budget may be exceeded.
func (o *Online) Run(budget int) error {
	o.agent.Train()

	for o.state.TotalSteps < budget {
		if _, err := o.RunEpisode(); err != nil {
			return err
		}
	}
	return nil
}

// RunEpisode runs a single episode of the experiment and returns its
// return
func (o *Online) RunEpisode() (float64, error) {
	step, err := o.env.Reset()
	if err != nil {
		return 0, err
	}
	o.track(step)

	var episodeReturn float64
	for done := false; !done; {
		action, err := o.agent.SelectAction(step)
		if err != nil {
			return episodeReturn, err
		}

		var next ts.TimeStep
		next, done, err = o.env.Step(action)
		if err != nil {
			return episodeReturn, err
		}

		transition := ts.NewTransition(step, action, next, o.config.Discount)
		if err := o.replay.Add(transition); err != nil {
			return episodeReturn, err
		}

		episodeReturn += next.Reward
		o.state.TotalSteps++
		o.track(next)

		if !o.agent.IsEval() && o.state.TotalSteps >= o.config.WarmupSteps {
			for i := 0; i < o.config.UpdatesPerStep; i++ {
				if err := o.agent.Step(); err != nil {
					return episodeReturn, err
				}
			}
		}

		step = next
	}

	o.state.window.Add(episodeReturn)
	o.state.Episodes++

	if o.state.Episodes%o.config.ReportInterval == 0 && o.reporter != nil {
		o.reporter(Progress{
			Average:      o.state.window.Average(),
			WindowLength: o.state.window.Len(),
			Episodes:     o.state.Episodes,
			Return:       episodeReturn,
			TotalSteps:   o.state.TotalSteps,
		})
	}

	return episodeReturn, nil
}

// Evaluate puts the agent in evaluation mode and runs a single episode.
// Nothing is written to the replay buffer, the agent is not updated,
// and the run's counters are left untouched.
func (o *Online) Evaluate() (EvalResult, error) {
	return o.EvaluateOn(o.env)
}

// EvaluateOn is like Evaluate but runs the episode on e, which must
// have the same specs as the training environment
func (o *Online) EvaluateOn(e env.Environment) (EvalResult, error) {
	o.agent.Eval()

	var result EvalResult
	step, err := e.Reset()
	if err != nil {
		return result, err
	}

	for done := false; !done; {
		action, err := o.agent.SelectAction(step)
		if err != nil {
			return result, err
		}

		step, done, err = e.Step(action)
		if err != nil {
			return result, err
		}
		result.Steps++
		result.Reward += step.Reward
	}

	return result, nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	for _, tracker := range o.trackers {
		if err := tracker.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}

// track tracks the current timestep by caching its data in each Tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tracker := range o.trackers {
		tracker.Track(t)
	}
}
