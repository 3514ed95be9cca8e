package experiment

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/gymrl/environment"
	"github.com/samuelfneumann/gymrl/experiment/trackers"
	ts "github.com/samuelfneumann/gymrl/timestep"
)

// fixedLength is an environment whose episodes last a fixed number of
// steps. The reward of each step is taken from rewards, cycling through
// it across episodes.
type fixedLength struct {
	length  int
	rewards []float64

	step      int
	rewardIdx int
	resetErr  error
	stepErr   error
}

func (f *fixedLength) Reset() (ts.TimeStep, error) {
	if f.resetErr != nil {
		return ts.TimeStep{}, f.resetErr
	}
	f.step = 0
	return ts.New(ts.First, 0, 0.99, mat.NewVecDense(1, nil), 0), nil
}

func (f *fixedLength) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if f.stepErr != nil {
		return ts.TimeStep{}, true, f.stepErr
	}
	f.step++

	reward := 1.0
	if len(f.rewards) > 0 {
		reward = f.rewards[f.rewardIdx%len(f.rewards)]
	}

	done := f.step >= f.length
	stepType := ts.Mid
	if done {
		stepType = ts.Last
		f.rewardIdx++
	}
	obs := mat.NewVecDense(1, []float64{float64(f.step)})

	return ts.New(stepType, reward, 0.99, obs, f.step), done, nil
}

func (f *fixedLength) ObservationSpec() env.Spec {
	return env.NewSpec(mat.NewVecDense(1, nil), env.Observation,
		mat.NewVecDense(1, nil), mat.NewVecDense(1, []float64{1000}),
		env.Continuous)
}

func (f *fixedLength) ActionSpec() env.Spec {
	return env.NewSpec(mat.NewVecDense(1, nil), env.Action,
		mat.NewVecDense(1, nil), mat.NewVecDense(1, []float64{1}),
		env.Discrete)
}

func (f *fixedLength) DiscountSpec() env.Spec {
	d := mat.NewVecDense(1, []float64{0.99})
	return env.NewSpec(mat.NewVecDense(1, nil), env.Discount, d, d,
		env.Continuous)
}

// counter is an agent that records the total number of environment
// steps seen by the loop at each of its updates
type counter struct {
	updates   int
	updatedAt []int
	replay    *recorder
	eval      bool
	stepErr   error
}

func (c *counter) SelectAction(t ts.TimeStep) (*mat.VecDense, error) {
	return mat.NewVecDense(1, nil), nil
}

func (c *counter) Step() error {
	if c.stepErr != nil {
		return c.stepErr
	}
	c.updates++
	c.updatedAt = append(c.updatedAt, len(c.replay.transitions))
	return nil
}

func (c *counter) Eval()        { c.eval = true }
func (c *counter) Train()       { c.eval = false }
func (c *counter) IsEval() bool { return c.eval }

type recorder struct {
	transitions []ts.Transition
	err         error
}

func (r *recorder) Add(t ts.Transition) error {
	if r.err != nil {
		return r.err
	}
	r.transitions = append(r.transitions, t)
	return nil
}

func newTestOnline(t *testing.T, e env.Environment, c Config) (*Online,
	*counter, *recorder) {
	t.Helper()
	replay := &recorder{}
	agent := &counter{replay: replay}

	o, err := NewOnline(e, agent, replay, c)
	if err != nil {
		t.Fatalf("newOnline: %v", err)
	}
	o.SetReporter(nil)
	return o, agent, replay
}

func defaultConfig() Config {
	return Config{
		WarmupSteps:    0,
		UpdatesPerStep: 1,
		WindowSize:     10,
		ReportInterval: 1,
		Discount:       0.99,
	}
}

func TestRunCompletesEpisodes(t *testing.T) {
	o, _, replay := newTestOnline(t, &fixedLength{length: 20},
		defaultConfig())

	if err := o.Run(50); err != nil {
		t.Fatalf("run: %v", err)
	}

	state := o.State()
	if state.Episodes != 3 {
		t.Errorf("run: episodes want(3) have(%v)", state.Episodes)
	}
	if state.TotalSteps != 60 {
		t.Errorf("run: steps want(60) have(%v)", state.TotalSteps)
	}
	if len(replay.transitions) != 60 {
		t.Errorf("run: transitions want(60) have(%v)",
			len(replay.transitions))
	}

	// The budget is already reached, no more episodes are run
	if err := o.Run(50); err != nil {
		t.Fatalf("run: %v", err)
	}
	if o.State().Episodes != 3 {
		t.Errorf("run: budget reached, episodes want(3) have(%v)",
			o.State().Episodes)
	}
}

func TestWarmup(t *testing.T) {
	c := defaultConfig()
	c.WarmupSteps = 100
	o, agent, _ := newTestOnline(t, &fixedLength{length: 1}, c)

	if err := o.Run(99); err != nil {
		t.Fatalf("run: %v", err)
	}
	if agent.updates != 0 {
		t.Errorf("run: no updates expected before warmup, got %v",
			agent.updates)
	}

	if err := o.Run(100); err != nil {
		t.Fatalf("run: %v", err)
	}
	if agent.updates != 1 {
		t.Errorf("run: want(1) update at warmup have(%v)", agent.updates)
	}
	if agent.updatedAt[0] != 100 {
		t.Errorf("run: first update want(step 100) have(step %v)",
			agent.updatedAt[0])
	}
}

func TestUpdatesPerStep(t *testing.T) {
	c := defaultConfig()
	c.WarmupSteps = 5
	c.UpdatesPerStep = 3
	o, agent, _ := newTestOnline(t, &fixedLength{length: 10}, c)

	if err := o.Run(10); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Steps 5 through 10 each cause 3 updates
	if agent.updates != 18 {
		t.Errorf("run: updates want(18) have(%v)", agent.updates)
	}
	for i, step := range agent.updatedAt {
		if step < 5 {
			t.Errorf("run: update %v happened at step %v before warmup", i,
				step)
		}
	}
}

func TestWindowAndReports(t *testing.T) {
	c := defaultConfig()
	c.WindowSize = 3
	c.ReportInterval = 2
	e := &fixedLength{length: 1, rewards: []float64{10, 20, 30, 40}}
	o, _, _ := newTestOnline(t, e, c)

	var reports []Progress
	o.SetReporter(func(p Progress) { reports = append(reports, p) })

	if err := o.Run(4); err != nil {
		t.Fatalf("run: %v", err)
	}

	returns := o.State().Returns()
	want := []float64{20, 30, 40}
	if len(returns) != len(want) {
		t.Fatalf("window: want(%v) have(%v)", want, returns)
	}
	for i := range want {
		if returns[i] != want[i] {
			t.Fatalf("window: want(%v) have(%v)", want, returns)
		}
	}

	if len(reports) != 2 {
		t.Fatalf("report: want(2) reports have(%v)", len(reports))
	}
	if reports[0].Episodes != 2 || reports[0].Average != 15 ||
		reports[0].WindowLength != 2 || reports[0].Return != 20 {
		t.Errorf("report: unexpected first report %+v", reports[0])
	}
	if reports[1].Episodes != 4 || reports[1].Average != 30 ||
		reports[1].WindowLength != 3 || reports[1].TotalSteps != 4 {
		t.Errorf("report: unexpected second report %+v", reports[1])
	}
}

func TestEvaluate(t *testing.T) {
	o, agent, replay := newTestOnline(t, &fixedLength{length: 7},
		defaultConfig())

	if err := o.Run(7); err != nil {
		t.Fatalf("run: %v", err)
	}
	updates := agent.updates
	transitions := len(replay.transitions)

	result, err := o.Evaluate()
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !agent.IsEval() {
		t.Error("evaluate: agent should be in evaluation mode")
	}
	if result.Steps != 7 || result.Reward != 7 {
		t.Errorf("evaluate: unexpected result %+v", result)
	}
	if agent.updates != updates {
		t.Errorf("evaluate: agent updated %v times",
			agent.updates-updates)
	}
	if len(replay.transitions) != transitions {
		t.Errorf("evaluate: %v transitions written",
			len(replay.transitions)-transitions)
	}
	if o.State().TotalSteps != 7 || o.State().Episodes != 1 {
		t.Errorf("evaluate: run state changed to %+v", o.State())
	}

	// Training resumes in training mode
	if err := o.Run(14); err != nil {
		t.Fatalf("run: %v", err)
	}
	if agent.IsEval() {
		t.Error("run: agent should be in training mode")
	}
	if agent.updates != updates+7 {
		t.Errorf("run: updates want(%v) have(%v)", updates+7, agent.updates)
	}
}

func TestEvalModeSkipsUpdates(t *testing.T) {
	o, agent, replay := newTestOnline(t, &fixedLength{length: 5},
		defaultConfig())

	agent.Eval()
	if _, err := o.RunEpisode(); err != nil {
		t.Fatalf("runEpisode: %v", err)
	}
	if agent.updates != 0 {
		t.Errorf("runEpisode: want(0) updates in eval mode have(%v)",
			agent.updates)
	}
	if len(replay.transitions) != 5 {
		t.Errorf("runEpisode: transitions want(5) have(%v)",
			len(replay.transitions))
	}
}

func TestErrorsPropagate(t *testing.T) {
	errEnv := errors.New("environment failure")
	errAgent := errors.New("agent failure")
	errReplay := errors.New("replay failure")

	e := &fixedLength{length: 3, resetErr: errEnv}
	o, _, _ := newTestOnline(t, e, defaultConfig())
	if err := o.Run(10); err != errEnv {
		t.Errorf("run: want(%v) have(%v)", errEnv, err)
	}

	e = &fixedLength{length: 3, stepErr: errEnv}
	o, _, _ = newTestOnline(t, e, defaultConfig())
	if _, err := o.Evaluate(); err != errEnv {
		t.Errorf("evaluate: want(%v) have(%v)", errEnv, err)
	}

	o, agent, _ := newTestOnline(t, &fixedLength{length: 3},
		defaultConfig())
	agent.stepErr = errAgent
	if err := o.Run(10); err != errAgent {
		t.Errorf("run: want(%v) have(%v)", errAgent, err)
	}

	o, _, replay := newTestOnline(t, &fixedLength{length: 3},
		defaultConfig())
	replay.err = errReplay
	if err := o.Run(10); err != errReplay {
		t.Errorf("run: want(%v) have(%v)", errReplay, err)
	}
}

func TestTransitions(t *testing.T) {
	c := defaultConfig()
	c.Discount = 0.9
	o, _, replay := newTestOnline(t, &fixedLength{length: 2}, c)

	if _, err := o.RunEpisode(); err != nil {
		t.Fatalf("runEpisode: %v", err)
	}

	if len(replay.transitions) != 2 {
		t.Fatalf("runEpisode: transitions want(2) have(%v)",
			len(replay.transitions))
	}
	first, last := replay.transitions[0], replay.transitions[1]
	if first.Done || !last.Done {
		t.Error("runEpisode: only the final transition should be done")
	}
	if first.Discount != 0.9 {
		t.Errorf("runEpisode: discount want(0.9) have(%v)", first.Discount)
	}
	if first.State.AtVec(0) != 0 || first.NextState.AtVec(0) != 1 ||
		last.State.AtVec(0) != 1 || last.NextState.AtVec(0) != 2 {
		t.Error("runEpisode: transitions do not chain states")
	}
}

func TestTrackersAndSave(t *testing.T) {
	filename := t.TempDir() + "/returns.bin"
	e := &fixedLength{length: 4}
	o, _, _ := newTestOnline(t, e, defaultConfig())

	ret := trackers.NewReturn(filename)
	o.Register(ret)

	if err := o.Run(8); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := o.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := trackers.LoadData(filename)
	if err != nil {
		t.Fatalf("loadData: %v", err)
	}
	if len(data) != 2 || data[0] != 4 || data[1] != 4 {
		t.Errorf("save: want([4 4]) have(%v)", data)
	}
}

func TestInvalidConfig(t *testing.T) {
	c := defaultConfig()
	c.WindowSize = 0
	if _, err := NewOnline(&fixedLength{length: 1}, &counter{}, &recorder{},
		c); err == nil {
		t.Error("newOnline: expected error for zero window size")
	}
}

func TestEvaluateOn(t *testing.T) {
	o, _, _ := newTestOnline(t, &fixedLength{length: 3}, defaultConfig())

	result, err := o.EvaluateOn(&fixedLength{length: 11,
		rewards: []float64{-1}})
	if err != nil {
		t.Fatalf("evaluateOn: %v", err)
	}
	if result.Steps != 11 || result.Reward != -11 {
		t.Errorf("evaluateOn: unexpected result %+v", result)
	}
}
