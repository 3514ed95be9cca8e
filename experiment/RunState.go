package experiment

import (
	"github.com/aunum/log"

	"github.com/samuelfneumann/gymrl/experiment/trackers"
)

// RunState holds the counters of a run
type RunState struct {
	TotalSteps int // Environment steps taken while training
	Episodes   int // Training episodes finished

	window *trackers.Window
}

func newRunState(windowSize int) RunState {
	return RunState{window: trackers.NewWindow(windowSize)}
}

// Returns returns the returns in the trailing window, oldest first
func (r RunState) Returns() []float64 {
	return r.window.Values()
}

// Average returns the average return in the trailing window
func (r RunState) Average() float64 {
	return r.window.Average()
}

// Progress is the periodic summary of a training run
type Progress struct {
	Average      float64 // Average return in the trailing window
	WindowLength int
	Episodes     int
	Return       float64 // Return of the latest episode
	TotalSteps   int
}

// Reporter receives progress summaries
type Reporter func(Progress)

// LogProgress reports progress to the log
func LogProgress(p Progress) {
	log.Infof("Avg return in last %v episodes: %.3f\t Episodes: %v\t "+
		"Episode return: %.3f\t Steps: %v", p.WindowLength, p.Average,
		p.Episodes, p.Return, p.TotalSteps)
}
