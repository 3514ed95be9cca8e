// Package gym provides access to Gym environments served by a remote
// Gym TCP server.
//
// The server runs the actual simulation. Each GymEnv holds a single TCP
// connection to the server and controls one environment instance over
// it. Messages are JSON objects terminated by Delimiter and every
// request is answered by exactly one reply, except for the final close
// request.
package gym

import (
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/gymrl/environment"
	ts "github.com/samuelfneumann/gymrl/timestep"
)

// Environment IDs used by the example scripts
const (
	LunarLanderV2           = "LunarLander-v2"
	MountainCarContinuousV0 = "MountainCarContinuous-v0"
	CartPoleV1              = "CartPole-v1"
)

// Config describes how to connect to a Gym environment server
type Config struct {
	Host        string
	Port        string
	DialTimeout time.Duration

	// Render determines whether the server renders every step
	Render bool
}

// GymEnv implements environment.Environment for an environment living
// on a Gym server
type GymEnv struct {
	client   *Client
	envID    string
	discount float64
	render   bool

	actionSpace      Space
	observationSpace Space

	currentStep ts.TimeStep
}

// New connects to the server described by c and creates the
// environment envID on it. The environment is not reset.
func New(c Config, envID string, discount float64) (*GymEnv, error) {
	client, err := Dial(c.Host, c.Port, c.DialTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "new")
	}

	g, err := NewFromClient(client, envID, discount, c.Render)
	if err != nil {
		client.Close()
		return nil, err
	}
	return g, nil
}

// NewFromClient creates the environment envID through an already
// connected Client
func NewFromClient(client *Client, envID string, discount float64,
	render bool) (*GymEnv, error) {
	if err := client.Make(envID); err != nil {
		return nil, errors.Wrapf(err, "new: could not create environment %v",
			envID)
	}

	actionSpace, err := client.ActionSpace()
	if err != nil {
		return nil, errors.Wrap(err, "new: could not get action space")
	}
	if err := validateSpace(actionSpace); err != nil {
		return nil, errors.Wrap(err, "new: invalid action space")
	}

	observationSpace, err := client.ObservationSpace()
	if err != nil {
		return nil, errors.Wrap(err, "new: could not get observation space")
	}
	if observationSpace.Name != BoxSpace {
		return nil, errors.Errorf("new: observation space must be %v, got %v",
			BoxSpace, observationSpace.Name)
	}
	if err := validateSpace(observationSpace); err != nil {
		return nil, errors.Wrap(err, "new: invalid observation space")
	}

	return &GymEnv{
		client:           client,
		envID:            envID,
		discount:         discount,
		render:           render,
		actionSpace:      actionSpace,
		observationSpace: observationSpace,
	}, nil
}

// Reset resets the environment to some starting state
func (g *GymEnv) Reset() (ts.TimeStep, error) {
	obs, err := g.client.Reset()
	if err != nil {
		return ts.TimeStep{}, err
	}
	if err := g.validateObservation(obs); err != nil {
		return ts.TimeStep{}, errors.Wrap(err, "reset")
	}

	t := ts.New(ts.First, 0, g.discount, mat.NewVecDense(len(obs), obs), 0)
	g.currentStep = t

	return t, nil
}

// Step takes a single environmental step
func (g *GymEnv) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	action := make([]float64, a.Len())
	copy(action, a.RawVector().Data)

	result, err := g.client.Step(action, g.render)
	if err != nil {
		return ts.TimeStep{}, true, err
	}
	if err := g.validateObservation(result.Observation); err != nil {
		return ts.TimeStep{}, true, errors.Wrap(err, "step")
	}

	obs := mat.NewVecDense(len(result.Observation), result.Observation)
	t := ts.New(ts.Mid, result.Reward, g.discount, obs,
		g.currentStep.Number+1)
	if result.Done {
		t.StepType = ts.Last
	}
	g.currentStep = t

	return t, result.Done, nil
}

// CurrentTimeStep returns the current timestep in the environment
func (g *GymEnv) CurrentTimeStep() ts.TimeStep {
	return g.currentStep
}

// ID returns the Gym ID of the environment
func (g *GymEnv) ID() string {
	return g.envID
}

// Seed seeds the remote environment
func (g *GymEnv) Seed(seed int) error {
	return g.client.Seed(seed)
}

// Render renders the current state of the remote environment
func (g *GymEnv) Render() error {
	return g.client.Render()
}

// Monitor starts recording episodes into the server-side directory dir
func (g *GymEnv) Monitor(dir string, force, resume bool) error {
	return g.client.MonitorStart(dir, force, resume)
}

// CloseMonitor stops recording episodes
func (g *GymEnv) CloseMonitor() error {
	return g.client.MonitorClose()
}

// URL returns the URL at which the server publishes recordings
func (g *GymEnv) URL() (string, error) {
	return g.client.URL()
}

// Close closes the remote environment and the connection to the
// server
func (g *GymEnv) Close() error {
	return g.client.Close()
}

// ObservationSpec returns the observation spec of the environment
func (g *GymEnv) ObservationSpec() env.Spec {
	low := mat.NewVecDense(len(g.observationSpace.Low),
		g.observationSpace.Low)
	high := mat.NewVecDense(len(g.observationSpace.High),
		g.observationSpace.High)
	shape := mat.NewVecDense(low.Len(), nil)

	return env.NewSpec(shape, env.Observation, low, high, env.Continuous)
}

// ActionSpec returns the action specification of the environment.
// Discrete action spaces of N actions are one-dimensional with bounds
// [0, N-1].
func (g *GymEnv) ActionSpec() env.Spec {
	space := g.actionSpace

	if space.Name == DiscreteSpace {
		shape := mat.NewVecDense(1, nil)
		low := mat.NewVecDense(1, nil)
		high := mat.NewVecDense(1, []float64{float64(space.N - 1)})

		return env.NewSpec(shape, env.Action, low, high, env.Discrete)
	}

	low := mat.NewVecDense(len(space.Low), space.Low)
	high := mat.NewVecDense(len(space.High), space.High)
	shape := mat.NewVecDense(low.Len(), nil)

	return env.NewSpec(shape, env.Action, low, high, env.Continuous)
}

// DiscountSpec returns the discount specification of the environment
func (g *GymEnv) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{g.discount})

	return env.NewSpec(shape, env.Discount, bound, bound, env.Continuous)
}

func (g *GymEnv) validateObservation(obs []float64) error {
	if want := len(g.observationSpace.Low); len(obs) != want {
		return errors.Errorf("invalid observation size \n\twant(%v) \n\thave(%v)",
			want, len(obs))
	}
	return nil
}

func validateSpace(s Space) error {
	switch s.Name {
	case DiscreteSpace:
		if s.N < 1 {
			return errors.Errorf("discrete space must have at least one action")
		}

	case BoxSpace:
		if len(s.Low) == 0 || len(s.Low) != len(s.High) {
			return errors.Errorf("box space bounds must be non-empty and "+
				"of equal length, got low(%v) high(%v)", len(s.Low),
				len(s.High))
		}

	default:
		return errors.Errorf("no such space type: %v", s.Name)
	}
	return nil
}
