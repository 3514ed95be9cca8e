package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// mlp implements a multi-layered perceptron with multiple output nodes,
// one for each value that should be predicted.
type mlp struct {
	g          *G.ExprGraph
	prefix     string
	layers     []*fcLayer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMultiHeadMLP creates and returns a new multi-layered perceptron
// that has multiple output nodes, The number of outputs nodes is equal
// to outputs. The graph parameter g is populated with the MLP.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. A final
// layer is always added such that given any input, the output will
// be outputs. The final layer also contains a bias unit, and bias units
// for each additional hidden layer is specified by biases. The final
// layer will contain no activations, and the activations of additional
// hidden layers is specified by activations. The parameter init
// determines the weight initialization scheme.
//
// The function works such that for index i, hiddenSizes[i] is the
// number of nodes in hidden layer i; biases[i] is true if the
// hidden layer will contain a bias unit and false otherwise; and
// activations[i] is the activation function for hidden layer i.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	return NewMLP("", features, batch, outputs, g, hiddenSizes, biases,
		init, activations, Identity())
}

// NewMLP is like NewMultiHeadMLP, but the final layer uses the output
// activation and all node names are prefixed by prefix. Networks
// sharing a graph must use distinct prefixes.
func NewMLP(prefix string, features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation, output *Activation) (NeuralNet, error) {
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName(prefix+"Input"), G.WithInit(G.Zeroes()))

	return NewMLPFromInput(prefix, []*G.Node{input}, outputs, g, hiddenSizes,
		biases, init, activations, output)
}

// NewMLPFromInput returns a new MLP that has a specific node as its
// input node. If multiple input nodes are given, they are first
// concatenated along the feature (column) dimension.
func NewMLPFromInput(prefix string, inputs []*G.Node, outputs int,
	g *G.ExprGraph, hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation, output *Activation) (NeuralNet, error) {
	// Ensure we have one activation per layer
	if len(hiddenSizes) != len(activations) {
		msg := "newMLPFromInput: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// Ensure one bias bool per layer
	if len(hiddenSizes) != len(biases) {
		msg := "newMLPFromInput: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}

	if outputs < 1 {
		return nil, fmt.Errorf("newMLPFromInput: outputs must be positive")
	}

	input, err := concatInputs(1, inputs, g)
	if err != nil {
		return nil, fmt.Errorf("newMLPFromInput: %v", err)
	}

	batch := input.Shape()[0]
	features := input.Shape()[1]

	// Add a final layer so that the network predicts outputs values
	sizes := append(append([]int{}, hiddenSizes...), outputs)
	withBias := append(append([]bool{}, biases...), true)
	acts := append(append([]*Activation{}, activations...), output)

	layers := addfcLayers(g, sizes, withBias, acts, init, features, prefix)

	network := &mlp{
		g:          g,
		prefix:     prefix,
		layers:     layers,
		input:      input,
		numOutputs: outputs,
		numInputs:  features,
		batchSize:  batch,
	}
	if _, err := network.fwd(input); err != nil {
		msg := "newMLPFromInput: could not compute forward pass: %v"
		return nil, fmt.Errorf(msg, err)
	}

	return network, nil
}

// concatInputs concatenates multiple matrix inputs along axis
func concatInputs(axis int, inputs []*G.Node, g *G.ExprGraph) (*G.Node,
	error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no input nodes given")
	}

	// Ensure inputs share the same graph
	for _, input := range inputs {
		if input.Graph() != g {
			return nil, fmt.Errorf("not all inputs have the same graph")
		}
	}

	var input *G.Node
	if len(inputs) > 1 {
		input = G.Must(G.Concat(axis, inputs...))
	} else {
		input = inputs[0]
	}

	if !input.IsMatrix() {
		return nil, fmt.Errorf("input must be a matrix node")
	}
	return input, nil
}

// Graph returns the computational graph of the MLP.
func (e *mlp) Graph() *G.ExprGraph {
	return e.g
}

// Clone clones an MLP to a new graph
func (e *mlp) Clone() (NeuralNet, error) {
	return e.CloneWithBatch(e.batchSize)
}

// CloneWithInputTo clones an MLP to a specific computational graph
// with a specified input node. If multiple input nodes are given, then
// they are first concatenated along the specified axis. The weights of
// the clone are copies of the weights of the original.
func (e *mlp) CloneWithInputTo(axis int, inputs []*G.Node,
	graph *G.ExprGraph) (NeuralNet, error) {
	input, err := concatInputs(axis, inputs, graph)
	if err != nil {
		return nil, fmt.Errorf("cloneWithInputTo: %v", err)
	}
	if features := input.Shape()[1]; features != e.numInputs {
		return nil, fmt.Errorf("cloneWithInputTo: invalid number of "+
			"features \n\twant(%v) \n\thave(%v)", e.numInputs, features)
	}

	// Copy fully connected layers
	l := make([]*fcLayer, len(e.layers))
	for i := range e.layers {
		l[i] = e.layers[i].cloneTo(graph)
	}

	network := &mlp{
		g:          graph,
		prefix:     e.prefix,
		layers:     l,
		input:      input,
		numOutputs: e.numOutputs,
		numInputs:  e.numInputs,
		batchSize:  input.Shape()[0],
	}
	if _, err := network.fwd(input); err != nil {
		return nil, fmt.Errorf("cloneWithInputTo: could not clone: %v", err)
	}

	return network, nil
}

// CloneWithBatch clones an MLP to a new graph with a new input batch
// size.
func (e *mlp) CloneWithBatch(batchSize int) (NeuralNet, error) {
	graph := G.NewGraph()

	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, e.numInputs),
		G.WithName(e.prefix+"Input"),
		G.WithInit(G.Zeroes()),
	)

	return e.CloneWithInputTo(1, []*G.Node{input}, graph)
}

// BatchSize returns the batch size of inputs to the network
func (e *mlp) BatchSize() int {
	return e.batchSize
}

// Features returns the number of features in a single input vector
func (e *mlp) Features() int {
	return e.numInputs
}

// Outputs returns the number of outputs from the network
func (e *mlp) Outputs() int {
	return e.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass. The input must be given in row major order. SetInput panics if
// the network was built on a computed input node, such as a
// concatenation.
func (e *mlp) SetInput(input []float64) error {
	if !e.input.IsVar() {
		panic("setInput: network input is not an input node")
	}
	if len(input) != e.numInputs*e.batchSize {
		msg := fmt.Sprintf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", e.numInputs*e.batchSize, len(input))
		panic(msg)
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(e.input.Shape()...),
	)
	return G.Let(e.input, inputTensor)
}

// Set sets the weights of an MLP to be equal to the weights of another
// MLP. The networks may live in different graphs.
func (dest *mlp) Set(source NeuralNet) error {
	return dest.Polyak(source, 1.0)
}

// Polyak sets the weights of an MLP to be a polyak average between its
// existing weights and the weights of another MLP:
//
//		dest <- (1 - tau) * dest + tau * source
func (dest *mlp) Polyak(source NeuralNet, tau float64) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("polyak: incompatible networks \n\twant(%v) "+
			"learnables \n\thave(%v)", len(nodes), len(sourceNodes))
	}

	for i := range nodes {
		weights, err := float64Data(nodes[i])
		if err != nil {
			return fmt.Errorf("polyak: %v", err)
		}
		sourceWeights, err := float64Data(sourceNodes[i])
		if err != nil {
			return fmt.Errorf("polyak: %v", err)
		}
		if len(weights) != len(sourceWeights) {
			return fmt.Errorf("polyak: incompatible shapes for %v: %v != %v",
				nodes[i].Name(), nodes[i].Shape(), sourceNodes[i].Shape())
		}

		if tau == 1.0 {
			copy(weights, sourceWeights)
			continue
		}
		for j := range weights {
			weights[j] = (1-tau)*weights[j] + tau*sourceWeights[j]
		}
	}
	return nil
}

// float64Data returns the backing data of the value of a node
func float64Data(n *G.Node) ([]float64, error) {
	if n.Value() == nil {
		return nil, fmt.Errorf("node %v has no value", n.Name())
	}
	data, ok := n.Value().Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("node %v does not hold float64 data", n.Name())
	}
	return data, nil
}

// Learnables returns the learnable nodes in an MLP
func (e *mlp) Learnables() G.Nodes {
	// Lazy instantiation
	if e.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(e.layers))
		for _, layer := range e.layers {
			learnables = append(learnables, layer.weights)
			if layer.bias != nil {
				learnables = append(learnables, layer.bias)
			}
		}
		e.learnables = G.Nodes(learnables)
	}
	return e.learnables
}

// Model returns the learnables nodes with their gradients.
func (e *mlp) Model() []G.ValueGrad {
	// Lazy instantiation
	if e.model == nil {
		model := make([]G.ValueGrad, 0, 2*len(e.layers))
		for _, node := range e.Learnables() {
			model = append(model, node)
		}
		e.model = model
	}
	return e.model
}

// fwd performs the forward pass of the MLP on the input node
func (e *mlp) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range e.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	e.prediction = pred
	G.Read(e.prediction, &e.predVal)

	return pred, nil
}

// Output returns the output of the MLP after its graph has been run
func (e *mlp) Output() G.Value {
	return e.predVal
}

// Prediction returns the node of the computational graph the stores
// the output of the MLP
func (e *mlp) Prediction() *G.Node {
	return e.prediction
}
