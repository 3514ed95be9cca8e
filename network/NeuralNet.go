// Package network implements neural networks using Gorgonia
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network living in a Gorgonia computational
// graph. A NeuralNet does not own a VM. The graph must be run externally
// after setting the input with SetInput, after which Output holds the
// prediction.
type NeuralNet interface {
	Graph() *G.ExprGraph
	Clone() (NeuralNet, error)
	CloneWithBatch(int) (NeuralNet, error)
	CloneWithInputTo(axis int, inputs []*G.Node,
		g *G.ExprGraph) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int
	SetInput([]float64) error
	Set(NeuralNet) error
	Polyak(NeuralNet, float64) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node
}
