// Package deepq implements the deep Q-learning algorithm
package deepq

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gymrl/agent/policy"
	"github.com/samuelfneumann/gymrl/environment"
	"github.com/samuelfneumann/gymrl/expreplay"
	"github.com/samuelfneumann/gymrl/network"
	"github.com/samuelfneumann/gymrl/solver"
	ts "github.com/samuelfneumann/gymrl/timestep"
	"github.com/samuelfneumann/gymrl/utils/floatutils"
)

// DeepQ implements the deep Q-learning algorithm. This algorithm is
// conceptually similar to DQN, but uses the MSE loss.
//
// Transitions are not observed by the agent. DeepQ learns from batches
// sampled from an experience replay buffer that is filled externally.
// Actions are stored in the buffer as action indices.
type DeepQ struct {
	// Network for selecting actions, takes a single input
	behaviourNet   network.NeuralNet
	behaviourNetVM G.VM
	policy         *policy.EGreedy

	// Network whose weights are adapted, takes batches of inputs
	trainNet   network.NeuralNet
	trainNetVM G.VM
	solver     *solver.Solver

	// Network that provides the update target for a batch of inputs
	targetNet   network.NeuralNet
	targetNetVM G.VM

	// Copy of trainNet used to select next actions for double Q-learning
	nextNet   network.NeuralNet
	nextNetVM G.VM

	// Variables to track target network updates
	tau                  float64 // Polyak averaging constant
	targetUpdateInterval int     // Updates between target updates
	gradientSteps        int

	// Inputs to the loss of trainNet: one-hot encodings of the actions
	// taken in the sampled states, and the update targets
	selectedActions *G.Node
	targets         *G.Node

	replay     expreplay.Sampler
	numActions int
	features   int
	batchSize  int

	eval bool // Whether or not in evaluation mode
}

// New creates and returns a new DeepQ agent. The agent learns from
// batches sampled from replay.
func New(env environment.Environment, config Config,
	replay expreplay.Sampler, seed uint64) (*DeepQ, error) {
	numActions, err := env.ActionSpec().NumActions()
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	// Ensure the configuration is valid
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	batchSize := replay.BatchSize()
	features := env.ObservationSpec().Shape.Len()

	// Behaviour network for selecting actions
	g := G.NewGraph()
	behaviourNet, err := network.NewMultiHeadMLP(features, 1, numActions, g,
		config.PolicyLayers, config.Biases, config.InitWFn.InitWFn(),
		config.Activations)
	if err != nil {
		return nil, fmt.Errorf("new: could not create behaviour network: %v",
			err)
	}
	behaviourNetVM := G.NewTapeMachine(g)

	egreedy, err := config.Policy.Create(seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy: %v", err)
	}

	// Create the target network which provides the update target
	targetNet, err := behaviourNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create target network: %v",
			err)
	}
	targetNetVM := G.NewTapeMachine(targetNet.Graph())

	var nextNet network.NeuralNet
	var nextNetVM G.VM
	if config.DoubleQ {
		nextNet, err = behaviourNet.CloneWithBatch(batchSize)
		if err != nil {
			return nil, fmt.Errorf("new: could not create next action "+
				"network: %v", err)
		}
		nextNetVM = G.NewTapeMachine(nextNet.Graph())
	}

	// Create a training network which learns the weights
	trainNet, err := behaviourNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create learning network: %v",
			err)
	}
	gTrain := trainNet.Graph()

	// Update targets r + γ * max[Q(s', a')] are computed outside the
	// graph so that the same loss serves both Q-learning and double
	// Q-learning
	targets := G.NewVector(gTrain, tensor.Float64, G.WithShape(batchSize),
		G.WithName("targets"), G.WithInit(G.Zeroes()))

	// Action selected in the previous state. This is needed to compute
	// the loss using the correct action value since the network outputs N
	// action values, one for each environmental action
	selectedActions := G.NewMatrix(
		gTrain,
		tensor.Float64,
		G.WithName("actionSelected"),
		G.WithShape(batchSize, numActions),
		G.WithInit(G.Zeroes()),
	)
	selectedActionsValue := G.Must(G.HadamardProd(trainNet.Prediction(),
		selectedActions))
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	// Compute the Mean Squarred TD error
	losses := G.Must(G.Sub(targets, selectedActionsValue))
	losses = G.Must(G.Square(losses))
	cost := G.Must(G.Mean(losses))

	// Compute the gradient with respect to the Mean Squarred TD error
	if _, err := G.Grad(cost, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute gradient: %v", err)
	}

	// Compile the trainNet graph into a VM
	trainNetVM := G.NewTapeMachine(
		gTrain,
		G.BindDualValues(trainNet.Learnables()...),
	)

	return &DeepQ{
		behaviourNet:         behaviourNet,
		behaviourNetVM:       behaviourNetVM,
		policy:               egreedy,
		trainNet:             trainNet,
		trainNetVM:           trainNetVM,
		solver:               config.Solver.Clone(),
		targetNet:            targetNet,
		targetNetVM:          targetNetVM,
		nextNet:              nextNet,
		nextNetVM:            nextNetVM,
		tau:                  config.Tau,
		targetUpdateInterval: config.TargetUpdateInterval,
		selectedActions:      selectedActions,
		targets:              targets,
		replay:               replay,
		numActions:           numActions,
		features:             features,
		batchSize:            batchSize,
	}, nil
}

// SelectAction runs the behaviour network on the observation of t and
// returns the index of the action selected by the epsilon greedy
// policy. In evaluation mode the greedy action is always selected.
func (d *DeepQ) SelectAction(t ts.TimeStep) (*mat.VecDense, error) {
	if t.Observation.Len() != d.features {
		return nil, fmt.Errorf("selectAction: invalid observation size "+
			"\n\twant(%v) \n\thave(%v)", d.features, t.Observation.Len())
	}

	actionValues, err := d.ActionValues(t.Observation)
	if err != nil {
		return nil, fmt.Errorf("selectAction: %v", err)
	}

	action := d.policy.SelectAction(actionValues, d.eval)
	return mat.NewVecDense(1, []float64{float64(action)}), nil
}

// ActionValues returns the predicted value of each action in a state
func (d *DeepQ) ActionValues(obs mat.Vector) ([]float64, error) {
	input := make([]float64, obs.Len())
	for i := range input {
		input[i] = obs.AtVec(i)
	}
	if err := d.behaviourNet.SetInput(input); err != nil {
		return nil, err
	}

	defer d.behaviourNetVM.Reset()
	if err := d.behaviourNetVM.RunAll(); err != nil {
		return nil, err
	}
	return copyOutput(d.behaviourNet), nil
}

// Step performs a single update of the agent's weights using a batch
// sampled from the replay buffer. If the buffer does not yet hold
// enough transitions to sample, Step does nothing.
func (d *DeepQ) Step() error {
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

	targets, err := d.updateTargets(batch)
	if err != nil {
		return fmt.Errorf("step: could not compute update targets: %v", err)
	}
	err = G.Let(d.targets, tensor.New(
		tensor.WithBacking(targets),
		tensor.WithShape(d.batchSize),
	))
	if err != nil {
		return fmt.Errorf("step: could not set update targets: %v", err)
	}

	// Previous action one-hot vectors
	oneHot := make([]float64, d.batchSize*d.numActions)
	for i, a := range batch.Actions {
		action := int(a)
		if action < 0 || action >= d.numActions {
			return fmt.Errorf("step: invalid action %v in batch", a)
		}
		oneHot[i*d.numActions+action] = 1.0
	}
	err = G.Let(d.selectedActions, tensor.New(
		tensor.WithShape(d.batchSize, d.numActions),
		tensor.WithBacking(oneHot),
	))
	if err != nil {
		return fmt.Errorf("step: could not set selected actions: %v", err)
	}

	// Run the learning step
	if err := d.trainNet.SetInput(batch.States); err != nil {
		return fmt.Errorf("step: could not set trainNet input: %v", err)
	}
	if err := d.trainNetVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run trainNet: %v", err)
	}
	if err := d.solver.Step(d.trainNet.Model()); err != nil {
		return fmt.Errorf("step: could not step solver: %v", err)
	}
	d.trainNetVM.Reset()
	d.gradientSteps++
	d.policy.Anneal()

	// Update the target network using the newly learned weights
	if d.gradientSteps%d.targetUpdateInterval == 0 {
		if d.tau == 1.0 {
			err = d.targetNet.Set(d.trainNet)
		} else {
			err = d.targetNet.Polyak(d.trainNet, d.tau)
		}
		if err != nil {
			return fmt.Errorf("step: could not update target network: %v",
				err)
		}
	}

	if d.nextNet != nil {
		if err := d.nextNet.Set(d.trainNet); err != nil {
			return fmt.Errorf("step: could not update next action "+
				"network: %v", err)
		}
	}
	if err := d.behaviourNet.Set(d.trainNet); err != nil {
		return fmt.Errorf("step: could not update behaviour network: %v", err)
	}

	return nil
}

// updateTargets computes the Q-learning update targets for a batch:
//
//		r + γ * Q_target(s', argmax_a' Q(s', a'))
//
// where Q is the target network for Q-learning and the learned network
// for double Q-learning. Terminal transitions do not bootstrap.
func (d *DeepQ) updateTargets(batch expreplay.Batch) ([]float64, error) {
	nextValues, err := run(d.targetNet, d.targetNetVM, batch.NextStates)
	if err != nil {
		return nil, err
	}

	selectionValues := nextValues
	if d.nextNet != nil {
		selectionValues, err = run(d.nextNet, d.nextNetVM, batch.NextStates)
		if err != nil {
			return nil, err
		}
	}

	targets := make([]float64, d.batchSize)
	for i := range targets {
		targets[i] = batch.Rewards[i]
		if batch.Dones[i] {
			continue
		}

		row := selectionValues[i*d.numActions : (i+1)*d.numActions]
		action := floatutils.ArgMax(row)
		targets[i] += batch.Discounts[i] * nextValues[i*d.numActions+action]
	}

	return targets, nil
}

// run runs the graph of net on input and returns a copy of the output
func run(net network.NeuralNet, vm G.VM, input []float64) ([]float64,
	error) {
	if err := net.SetInput(input); err != nil {
		return nil, err
	}

	defer vm.Reset()
	if err := vm.RunAll(); err != nil {
		return nil, err
	}
	return copyOutput(net), nil
}

// copyOutput returns a copy of the output of net. Gorgonia reuses the
// backing memory of values between runs.
func copyOutput(net network.NeuralNet) []float64 {
	out := net.Output().Data().([]float64)
	return append([]float64(nil), out...)
}

// Epsilon returns the current exploration rate of the behaviour policy
func (d *DeepQ) Epsilon() float64 {
	return d.policy.Epsilon()
}

// Eval sets the agent into evaluation mode
func (d *DeepQ) Eval() {
	d.eval = true
}

// Train sets the agent into training mode
func (d *DeepQ) Train() {
	d.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (d *DeepQ) IsEval() bool {
	return d.eval
}

// Close closes the VMs used by the agent
func (d *DeepQ) Close() error {
	vms := []G.VM{d.behaviourNetVM, d.trainNetVM, d.targetNetVM}
	if d.nextNetVM != nil {
		vms = append(vms, d.nextNetVM)
	}

	for _, vm := range vms {
		if err := vm.Close(); err != nil {
			return fmt.Errorf("close: %v", err)
		}
	}
	return nil
}
