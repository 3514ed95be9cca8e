// Package ddpg implements the Deep Deterministic Policy Gradient
// algorithm
package ddpg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gymrl/agent/noise"
	"github.com/samuelfneumann/gymrl/environment"
	"github.com/samuelfneumann/gymrl/expreplay"
	"github.com/samuelfneumann/gymrl/network"
	"github.com/samuelfneumann/gymrl/solver"
	ts "github.com/samuelfneumann/gymrl/timestep"
	"github.com/samuelfneumann/gymrl/utils/matutils"
)

// DDPG implements the Deep Deterministic Policy Gradient algorithm. A
// deterministic actor with a tanh output maps states to actions. The
// tanh output is mapped affinely onto the bounds of the action space,
// so every copy of the actor acts in the range that ends up in the
// replay buffer. The actor is trained to maximize the action value
// predicted by a critic. The critic is trained by regression towards
// r + γQ'(s', μ'(s')), where Q' and μ' are slowly moving target copies
// of the critic and actor.
//
// Like DeepQ, DDPG does not observe transitions itself but learns from
// batches sampled from an externally filled replay buffer.
type DDPG struct {
	// Actor used for action selection, takes a single input
	actor   network.NeuralNet
	actorVM G.VM
	noise   *noise.OU

	// Actor whose weights are adapted. The actor training graph holds a
	// copy of the critic so that the gradient of Q(s, μ(s)) can flow
	// back to the actor's weights.
	trainActor   network.NeuralNet
	actorCritic  network.NeuralNet
	trainActorVM G.VM
	actorSolver  *solver.Solver
	actorStates  *G.Node

	// Critic whose weights are adapted
	critic        network.NeuralNet
	criticVM      G.VM
	criticSolver  *solver.Solver
	criticStates  *G.Node
	criticActions *G.Node
	criticTargets *G.Node

	// Target networks
	targetActor         network.NeuralNet
	targetActorVM       G.VM
	targetCritic        network.NeuralNet
	targetCriticVM      G.VM
	targetCriticStates  *G.Node
	targetCriticActions *G.Node

	tau                  float64
	targetUpdateInterval int
	gradientSteps        int

	replay     expreplay.Sampler
	features   int
	actionDims int
	batchSize  int
	minAction  *mat.VecDense
	maxAction  *mat.VecDense

	// Affine map from tanh outputs onto the action bounds
	actionScale  []float64
	actionOffset []float64

	eval bool
}

// New creates and returns a new DDPG agent. The agent learns from
// batches sampled from replay.
func New(env environment.Environment, config Config,
	replay expreplay.Sampler, seed uint64) (*DDPG, error) {
	actionSpec := env.ActionSpec()
	if actionSpec.Cardinality != environment.Continuous {
		return nil, fmt.Errorf("new: cannot use non-continuous actions")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	batchSize := replay.BatchSize()
	features := env.ObservationSpec().Shape.Len()
	actionDims := actionSpec.Shape.Len()
	init := config.InitWFn.InitWFn()

	actionScale, actionOffset, err := actionMap(actionSpec.LowerBound,
		actionSpec.UpperBound)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	ou, err := noise.NewOU(actionDims, config.Noise, seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create noise process: %v",
			err)
	}

	// Actor for action selection
	g := G.NewGraph()
	actor, err := network.NewMLP("actor", features, 1, actionDims, g,
		config.ActorLayers, config.ActorBiases, init,
		config.ActorActivations, network.TanH())
	if err != nil {
		return nil, fmt.Errorf("new: could not create actor: %v", err)
	}
	actorVM := G.NewTapeMachine(g)

	targetActor, err := actor.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create target actor: %v", err)
	}
	targetActorVM := G.NewTapeMachine(targetActor.Graph())

	// Critic and its MSE loss
	gCritic := G.NewGraph()
	criticStates := G.NewMatrix(gCritic, tensor.Float64,
		G.WithShape(batchSize, features), G.WithName("states"),
		G.WithInit(G.Zeroes()))
	criticActions := G.NewMatrix(gCritic, tensor.Float64,
		G.WithShape(batchSize, actionDims), G.WithName("actions"),
		G.WithInit(G.Zeroes()))
	critic, err := network.NewMLPFromInput("critic",
		[]*G.Node{criticStates, criticActions}, 1, gCritic,
		config.CriticLayers, config.CriticBiases, init,
		config.CriticActivations, network.Identity())
	if err != nil {
		return nil, fmt.Errorf("new: could not create critic: %v", err)
	}

	criticTargets := G.NewVector(gCritic, tensor.Float64,
		G.WithShape(batchSize), G.WithName("targets"),
		G.WithInit(G.Zeroes()))
	actionValues := G.Must(G.Sum(critic.Prediction(), 1))
	criticLoss := G.Must(G.Sub(criticTargets, actionValues))
	criticLoss = G.Must(G.Square(criticLoss))
	criticLoss = G.Must(G.Mean(criticLoss))

	if _, err := G.Grad(criticLoss, critic.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute critic gradient: %v",
			err)
	}
	criticVM := G.NewTapeMachine(gCritic,
		G.BindDualValues(critic.Learnables()...))

	// Target critic, evaluated at the next states and the target
	// actor's actions in those states
	gTargetCritic := G.NewGraph()
	targetCriticStates := G.NewMatrix(gTargetCritic, tensor.Float64,
		G.WithShape(batchSize, features), G.WithName("nextStates"),
		G.WithInit(G.Zeroes()))
	targetCriticActions := G.NewMatrix(gTargetCritic, tensor.Float64,
		G.WithShape(batchSize, actionDims), G.WithName("nextActions"),
		G.WithInit(G.Zeroes()))
	targetCritic, err := critic.CloneWithInputTo(1,
		[]*G.Node{targetCriticStates, targetCriticActions}, gTargetCritic)
	if err != nil {
		return nil, fmt.Errorf("new: could not create target critic: %v",
			err)
	}
	targetCriticVM := G.NewTapeMachine(gTargetCritic)

	// Actor training graph: maximize the mean of Q(s, μ(s))
	gActor := G.NewGraph()
	actorStates := G.NewMatrix(gActor, tensor.Float64,
		G.WithShape(batchSize, features), G.WithName("actorInput"),
		G.WithInit(G.Zeroes()))
	trainActor, err := actor.CloneWithInputTo(1, []*G.Node{actorStates},
		gActor)
	if err != nil {
		return nil, fmt.Errorf("new: could not create training actor: %v",
			err)
	}
	scaleNode := G.NewVector(gActor, tensor.Float64,
		G.WithShape(actionDims), G.WithName("actionScale"),
		G.WithValue(tensor.New(tensor.WithBacking(actionScale),
			tensor.WithShape(actionDims))))
	offsetNode := G.NewVector(gActor, tensor.Float64,
		G.WithShape(actionDims), G.WithName("actionOffset"),
		G.WithValue(tensor.New(tensor.WithBacking(actionOffset),
			tensor.WithShape(actionDims))))
	actorActions := G.Must(G.BroadcastHadamardProd(trainActor.Prediction(),
		scaleNode, nil, []byte{0}))
	actorActions = G.Must(G.BroadcastAdd(actorActions, offsetNode, nil,
		[]byte{0}))

	actorCritic, err := critic.CloneWithInputTo(1,
		[]*G.Node{actorStates, actorActions}, gActor)
	if err != nil {
		return nil, fmt.Errorf("new: could not attach critic to actor: %v",
			err)
	}
	actorLoss := G.Must(G.Neg(G.Must(G.Mean(actorCritic.Prediction()))))

	if _, err := G.Grad(actorLoss, trainActor.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute actor gradient: %v",
			err)
	}
	trainActorVM := G.NewTapeMachine(gActor,
		G.BindDualValues(trainActor.Learnables()...))

	return &DDPG{
		actor:   actor,
		actorVM: actorVM,
		noise:   ou,

		trainActor:   trainActor,
		actorCritic:  actorCritic,
		trainActorVM: trainActorVM,
		actorSolver:  config.ActorSolver.Clone(),
		actorStates:  actorStates,

		critic:        critic,
		criticVM:      criticVM,
		criticSolver:  config.CriticSolver.Clone(),
		criticStates:  criticStates,
		criticActions: criticActions,
		criticTargets: criticTargets,

		targetActor:         targetActor,
		targetActorVM:       targetActorVM,
		targetCritic:        targetCritic,
		targetCriticVM:      targetCriticVM,
		targetCriticStates:  targetCriticStates,
		targetCriticActions: targetCriticActions,

		tau:                  config.Tau,
		targetUpdateInterval: config.TargetUpdateInterval,

		replay:     replay,
		features:   features,
		actionDims: actionDims,
		batchSize:  batchSize,
		minAction:  matutils.VecCopy(actionSpec.LowerBound),
		maxAction:  matutils.VecCopy(actionSpec.UpperBound),

		actionScale:  actionScale,
		actionOffset: actionOffset,
	}, nil
}

// SelectAction returns the actor's action in the state of t. In
// training mode, Ornstein-Uhlenbeck noise is added to the action and the
// noise process is reset at the start of each episode. Actions are
// clipped to the bounds of the action space.
func (d *DDPG) SelectAction(t ts.TimeStep) (*mat.VecDense, error) {
	if t.Observation.Len() != d.features {
		return nil, fmt.Errorf("selectAction: invalid observation size "+
			"\n\twant(%v) \n\thave(%v)", d.features, t.Observation.Len())
	}

	obs := make([]float64, d.features)
	copy(obs, t.Observation.RawVector().Data)
	if err := d.actor.SetInput(obs); err != nil {
		return nil, fmt.Errorf("selectAction: %v", err)
	}
	if err := d.actorVM.RunAll(); err != nil {
		return nil, fmt.Errorf("selectAction: could not run actor: %v", err)
	}
	action := mat.NewVecDense(d.actionDims, d.toBounds(copyOutput(d.actor)))
	d.actorVM.Reset()

	if !d.eval {
		if t.First() {
			d.noise.Reset()
		}
		action.AddVec(action, d.noise.Sample())
	}

	matutils.VecClip(action, d.minAction, d.maxAction)

	return action, nil
}

// Step performs a single update of the critic followed by a single
// update of the actor using a batch sampled from the replay buffer. If
// the buffer does not yet hold enough transitions to sample, Step does
// nothing.
func (d *DDPG) Step() error {
	batch, err := d.replay.Sample()
	if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("step: could not sample batch: %v", err)
	}
	if batch.Size() != d.batchSize {
		return fmt.Errorf("step: invalid batch size \n\twant(%v) "+
			"\n\thave(%v)", d.batchSize, batch.Size())
	}

	if err := d.stepCritic(batch); err != nil {
		return fmt.Errorf("step: %v", err)
	}
	if err := d.stepActor(batch); err != nil {
		return fmt.Errorf("step: %v", err)
	}
	d.gradientSteps++

	if d.gradientSteps%d.targetUpdateInterval == 0 {
		if err := d.targetActor.Polyak(d.trainActor, d.tau); err != nil {
			return fmt.Errorf("step: could not update target actor: %v", err)
		}
		if err := d.targetCritic.Polyak(d.critic, d.tau); err != nil {
			return fmt.Errorf("step: could not update target critic: %v",
				err)
		}
	}

	return nil
}

// stepCritic performs one update of the critic towards the targets
// r + γQ'(s', μ'(s'))
func (d *DDPG) stepCritic(batch expreplay.Batch) error {
	// Next actions from the target actor
	if err := d.targetActor.SetInput(batch.NextStates); err != nil {
		return fmt.Errorf("could not set target actor input: %v", err)
	}
	if err := d.targetActorVM.RunAll(); err != nil {
		return fmt.Errorf("could not run target actor: %v", err)
	}
	nextActions := d.toBounds(copyOutput(d.targetActor))
	d.targetActorVM.Reset()

	// Next action values from the target critic
	if err := letMatrix(d.targetCriticStates, batch.NextStates); err != nil {
		return err
	}
	if err := letMatrix(d.targetCriticActions, nextActions); err != nil {
		return err
	}
	if err := d.targetCriticVM.RunAll(); err != nil {
		return fmt.Errorf("could not run target critic: %v", err)
	}
	nextValues := copyOutput(d.targetCritic)
	d.targetCriticVM.Reset()

	targets := make([]float64, d.batchSize)
	for i := range targets {
		targets[i] = batch.Rewards[i]
		if !batch.Dones[i] {
			targets[i] += batch.Discounts[i] * nextValues[i]
		}
	}

	if err := letMatrix(d.criticStates, batch.States); err != nil {
		return err
	}
	if err := letMatrix(d.criticActions, batch.Actions); err != nil {
		return err
	}
	err := G.Let(d.criticTargets, tensor.New(
		tensor.WithBacking(targets),
		tensor.WithShape(d.batchSize),
	))
	if err != nil {
		return fmt.Errorf("could not set critic targets: %v", err)
	}

	if err := d.criticVM.RunAll(); err != nil {
		return fmt.Errorf("could not run critic: %v", err)
	}
	if err := d.criticSolver.Step(d.critic.Model()); err != nil {
		return fmt.Errorf("could not step critic solver: %v", err)
	}
	d.criticVM.Reset()

	return nil
}

// stepActor performs one gradient ascent step on the mean action value
// of the actor's actions in the sampled states
func (d *DDPG) stepActor(batch expreplay.Batch) error {
	// The critic in the actor's graph is a copy, keep it current
	if err := d.actorCritic.Set(d.critic); err != nil {
		return fmt.Errorf("could not synchronize critic: %v", err)
	}

	if err := d.trainActor.SetInput(batch.States); err != nil {
		return fmt.Errorf("could not set actor input: %v", err)
	}
	if err := d.trainActorVM.RunAll(); err != nil {
		return fmt.Errorf("could not run actor: %v", err)
	}
	if err := d.actorSolver.Step(d.trainActor.Model()); err != nil {
		return fmt.Errorf("could not step actor solver: %v", err)
	}
	d.trainActorVM.Reset()

	if err := d.actor.Set(d.trainActor); err != nil {
		return fmt.Errorf("could not update behaviour actor: %v", err)
	}
	return nil
}

// actionMap returns the scale and offset mapping [-1, 1] onto
// [low, high] element-wise
func actionMap(low, high mat.Vector) ([]float64, []float64, error) {
	scale := make([]float64, low.Len())
	offset := make([]float64, low.Len())
	for i := range scale {
		l, h := low.AtVec(i), high.AtVec(i)
		if math.IsInf(l, 0) || math.IsInf(h, 0) {
			return nil, nil, fmt.Errorf("action bounds must be finite, "+
				"got [%v, %v] at index %v", l, h, i)
		}
		if l > h {
			return nil, nil, fmt.Errorf("action lower bound %v exceeds "+
				"upper bound %v at index %v", l, h, i)
		}
		scale[i] = (h - l) / 2
		offset[i] = (h + l) / 2
	}
	return scale, offset, nil
}

// toBounds maps row major tanh outputs onto the action bounds in place
func (d *DDPG) toBounds(actions []float64) []float64 {
	for i := range actions {
		j := i % d.actionDims
		actions[i] = d.actionScale[j]*actions[i] + d.actionOffset[j]
	}
	return actions
}

// letMatrix sets the value of a matrix node from row major data
func letMatrix(n *G.Node, data []float64) error {
	err := G.Let(n, tensor.New(
		tensor.WithBacking(data),
		tensor.WithShape(n.Shape()...),
	))
	if err != nil {
		return fmt.Errorf("could not set %v: %v", n.Name(), err)
	}
	return nil
}

// copyOutput returns a copy of the output of net
func copyOutput(net network.NeuralNet) []float64 {
	out := net.Output().Data().([]float64)
	return append([]float64(nil), out...)
}

// Eval sets the agent into evaluation mode
func (d *DDPG) Eval() {
	d.eval = true
}

// Train sets the agent into training mode
func (d *DDPG) Train() {
	d.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (d *DDPG) IsEval() bool {
	return d.eval
}

// Close closes the VMs used by the agent
func (d *DDPG) Close() error {
	vms := []G.VM{d.actorVM, d.trainActorVM, d.criticVM, d.targetActorVM,
		d.targetCriticVM}
	for _, vm := range vms {
		if err := vm.Close(); err != nil {
			return fmt.Errorf("close: %v", err)
		}
	}
	return nil
}
