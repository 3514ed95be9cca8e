package trackers

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot tracks episodic returns and saves them as a learning curve to a
// PNG file. The curve shows the return of each episode together with
// its moving average over a trailing window of episodes.
type Plot struct {
	*Return
	filename string
	window   int
	title    string
}

// NewPlot returns a new Plot Tracker saving to filename. The moving
// average is taken over window episodes.
func NewPlot(filename, title string, window int) *Plot {
	if window <= 0 {
		panic(fmt.Sprintf("newPlot: window must be positive, got %v",
			window))
	}
	return &Plot{
		Return:   NewReturn(""),
		filename: filename,
		window:   window,
		title:    title,
	}
}

// Save draws the learning curve and saves it to disk
func (p *Plot) Save() error {
	returns := p.Returns()

	plt := plot.New()
	plt.Title.Text = p.title
	plt.X.Label.Text = "Episode"
	plt.Y.Label.Text = "Return"

	raw := make(plotter.XYs, len(returns))
	avg := make(plotter.XYs, len(returns))
	w := NewWindow(p.window)
	for i := range returns {
		w.Add(returns[i])

		raw[i].X = float64(i + 1)
		raw[i].Y = returns[i]
		avg[i].X = float64(i + 1)
		avg[i].Y = w.Average()
	}

	rawLine, err := plotter.NewLine(raw)
	if err != nil {
		return fmt.Errorf("save: could not create return line: %v", err)
	}
	rawLine.Color = color.RGBA{R: 160, G: 160, B: 160, A: 255}

	avgLine, err := plotter.NewLine(avg)
	if err != nil {
		return fmt.Errorf("save: could not create average line: %v", err)
	}
	avgLine.Color = color.RGBA{B: 200, A: 255}
	avgLine.Width = vg.Points(2)

	plt.Add(rawLine, avgLine)
	plt.Legend.Add("Episode return", rawLine)
	plt.Legend.Add(fmt.Sprintf("Average over %v episodes", p.window),
		avgLine)

	if err := plt.Save(8*vg.Inch, 5*vg.Inch, p.filename); err != nil {
		return fmt.Errorf("save: could not save plot: %v", err)
	}
	return nil
}
