package trackers

import (
	"fmt"

	"github.com/gammazero/deque"
	"gonum.org/v1/gonum/stat"
)

// Window holds the returns of the most recent episodes. Once full,
// adding a return evicts the oldest one.
type Window struct {
	returns *deque.Deque[float64]
	size    int
}

// NewWindow returns a new Window holding at most size returns
func NewWindow(size int) *Window {
	if size <= 0 {
		panic(fmt.Sprintf("newWindow: size must be positive, got %v", size))
	}
	return &Window{
		returns: deque.New[float64](size),
		size:    size,
	}
}

// Add adds an episodic return to the window
func (w *Window) Add(r float64) {
	w.returns.PushBack(r)
	for w.returns.Len() > w.size {
		w.returns.PopFront()
	}
}

// Len returns the number of returns in the window
func (w *Window) Len() int {
	return w.returns.Len()
}

// Size returns the maximum number of returns in the window
func (w *Window) Size() int {
	return w.size
}

// Average returns the mean of the returns in the window, or 0 if the
// window is empty
func (w *Window) Average() float64 {
	if w.returns.Len() == 0 {
		return 0
	}
	return stat.Mean(w.Values(), nil)
}

// Values returns the returns in the window, oldest first
func (w *Window) Values() []float64 {
	values := make([]float64, w.returns.Len())
	for i := range values {
		values[i] = w.returns.At(i)
	}
	return values
}
