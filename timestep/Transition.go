package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition is a single observed (S, A, R, S', done) tuple along with
// the discount to apply to the value of S'. Transitions are what the
// training loop hands to an experience replay buffer.
type Transition struct {
	State     *mat.VecDense
	Action    *mat.VecDense
	Reward    float64
	Discount  float64
	NextState *mat.VecDense
	Done      bool
}

// NewTransition creates a Transition out of the TimeStep an action was
// taken in and the TimeStep that action lead to.
func NewTransition(step TimeStep, action *mat.VecDense, next TimeStep,
	discount float64) Transition {
	return Transition{
		State:     step.Observation,
		Action:    action,
		Reward:    next.Reward,
		Discount:  discount,
		NextState: next.Observation,
		Done:      next.Last(),
	}
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | R: %.2f | γ: %.2f | Done: %v", t.Reward,
		t.Discount, t.Done)
}
