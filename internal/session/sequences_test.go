package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/muurk/ledbench/internal/deviceapi"
)

type fakePerformer struct {
	mu      sync.Mutex
	actions []Action
	failAt  map[int]bool
	// cancel, when set, is called after the given number of actions
	cancel  context.CancelFunc
	cancelN int
}

func (f *fakePerformer) Perform(_ context.Context, a Action) ResultLogged {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.actions = append(f.actions, a)
	n := len(f.actions)
	if f.cancel != nil && n == f.cancelN {
		f.cancel()
	}
	if f.failAt[n] {
		err := deviceapi.NewTransportError("control request failed", "", errors.New("boom"))
		return ResultLogged{Result: Failure(a.String(), err), Err: err}
	}
	return ResultLogged{Result: Success(a.String(), "")}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) post(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func fast(seq Sequence) Sequence {
	seq.Interval = time.Millisecond
	for i := range seq.Steps {
		seq.Steps[i].Hold = 0
	}
	return seq
}

func TestSequenceDefinitions(t *testing.T) {
	tests := []struct {
		seq      Sequence
		steps    int
		interval time.Duration
	}{
		{AllColors(), 8, time.Second},
		{Rainbow(), 36, 100 * time.Millisecond},
		{Gradient(), 72 + 20 + 20, 50 * time.Millisecond},
		{Random(rand.New(rand.NewPCG(1, 2))), RandomColorCount, 500 * time.Millisecond},
		{Full(), 8 + 3 + 2, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.seq.Name, func(t *testing.T) {
			if len(tt.seq.Steps) != tt.steps {
				t.Errorf("len(Steps) = %d, want %d", len(tt.seq.Steps), tt.steps)
			}
			if tt.seq.Interval != tt.interval {
				t.Errorf("Interval = %v, want %v", tt.seq.Interval, tt.interval)
			}
		})
	}
}

func TestAllColors_Order(t *testing.T) {
	want := []int{1, 2, 3, 4, 5, 6, 7, 0}
	for i, st := range AllColors().Steps {
		if got := *st.Action.Params.Color; got != want[i] {
			t.Errorf("step %d color = %d, want %d", i, got, want[i])
		}
	}
}

func TestGradient_Phases(t *testing.T) {
	steps := Gradient().Steps

	last := steps[71].Action.Params
	if *last.Hue != 355 {
		t.Errorf("last hue step = %d, want 355", *last.Hue)
	}

	sat := steps[72].Action.Params
	if *sat.Hue != 180 || *sat.Saturation != 100 || *sat.Value != 100 {
		t.Errorf("first saturation step = %s", sat.Describe())
	}
	if *steps[91].Action.Params.Saturation != 5 {
		t.Errorf("last saturation step = %d, want 5", *steps[91].Action.Params.Saturation)
	}

	val := steps[111].Action.Params
	if *val.Value != 5 || *val.Saturation != 100 {
		t.Errorf("last value step = %s", val.Describe())
	}
}

func TestRandom_Bounds(t *testing.T) {
	seq := Random(rand.New(rand.NewPCG(7, 7)))
	for i, st := range seq.Steps {
		p := st.Action.Params
		if *p.Hue < 0 || *p.Hue > 360 {
			t.Errorf("step %d hue %d out of range", i, *p.Hue)
		}
		if *p.Saturation < 50 || *p.Saturation > 100 || *p.Value < 50 || *p.Value > 100 {
			t.Errorf("step %d = %s, want s and v in 50-100", i, p.Describe())
		}
	}

	again := Random(rand.New(rand.NewPCG(7, 7)))
	if again.Steps[0].Action.String() != seq.Steps[0].Action.String() {
		t.Error("same seed should give the same sequence")
	}
}

func TestFull_Broadcast(t *testing.T) {
	steps := Full().Steps
	enable, disable := steps[len(steps)-2], steps[len(steps)-1]

	if enable.Action.Broadcast == nil || !*enable.Action.Broadcast || enable.Hold != 2*time.Second {
		t.Errorf("enable step = %+v", enable)
	}
	if disable.Action.Broadcast == nil || *disable.Action.Broadcast {
		t.Errorf("disable step = %+v", disable)
	}
}

func TestSequenceByName(t *testing.T) {
	for _, name := range SequenceNames() {
		seq, err := SequenceByName(name, nil)
		if err != nil || seq.Name != name {
			t.Errorf("SequenceByName(%q) = %v, %v", name, seq.Name, err)
		}
	}

	if _, err := SequenceByName("disco", nil); !deviceapi.IsValidationError(err) {
		t.Errorf("unknown name error = %v, want validation error", err)
	}
}

func TestRunSequence_ContinuesPastFailures(t *testing.T) {
	perf := &fakePerformer{failAt: map[int]bool{2: true, 5: true}}
	rec := &recorder{}

	finished := RunSequence(context.Background(), perf, fast(AllColors()), rec.post)

	if len(perf.actions) != 8 {
		t.Fatalf("performed %d actions, want 8", len(perf.actions))
	}
	if finished.Steps != 8 || finished.Failed != 2 || finished.Cancelled {
		t.Errorf("finished = %+v", finished)
	}

	var logged, progress int
	for _, e := range rec.events {
		switch e.(type) {
		case ResultLogged:
			logged++
		case SequenceProgress:
			progress++
		}
	}
	if logged != 8 || progress != 8 {
		t.Errorf("logged %d results and %d progress events, want 8 each", logged, progress)
	}
	if _, ok := rec.events[len(rec.events)-1].(SequenceFinished); !ok {
		t.Error("last event should be SequenceFinished")
	}
}

func TestRunSequence_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	perf := &fakePerformer{cancel: cancel, cancelN: 3}
	rec := &recorder{}

	finished := RunSequence(ctx, perf, fast(Rainbow()), rec.post)

	if !finished.Cancelled {
		t.Fatal("Cancelled = false")
	}
	if finished.Steps != 3 {
		t.Errorf("Steps = %d, want 3", finished.Steps)
	}
	if len(perf.actions) != 3 {
		t.Errorf("performed %d actions after cancel, want 3", len(perf.actions))
	}
}

func TestRunSequence_Pacing(t *testing.T) {
	seq := fast(AllColors())
	seq.Interval = 20 * time.Millisecond

	start := time.Now()
	RunSequence(context.Background(), &fakePerformer{}, seq, func(Event) {})
	if elapsed := time.Since(start); elapsed < 7*20*time.Millisecond-10*time.Millisecond {
		t.Errorf("8 steps at 20ms took %v, want about 140ms", elapsed)
	}
}

func TestSession_StartSequence(t *testing.T) {
	s := New(Options{})

	err := s.StartSequence(context.Background(), Rainbow())
	if !errors.Is(err, deviceapi.ErrNotConnected) {
		t.Fatalf("StartSequence() error = %v, want ErrNotConnected", err)
	}
	if s.Sequence() != nil {
		t.Error("sequence tracked without a connection")
	}

	srv, _ := stubDevice(t)
	connectTo(t, s, srv)

	if err := s.StartSequence(context.Background(), fast(AllColors())); err != nil {
		t.Fatalf("StartSequence() error = %v", err)
	}
	if err := s.StartSequence(context.Background(), Rainbow()); !deviceapi.IsConcurrencyWarning(err) {
		t.Errorf("second StartSequence() error = %v, want concurrency warning", err)
	}

	deadline := time.After(5 * time.Second)
	for s.Sequence() != nil {
		select {
		case e := <-s.Events():
			s.Apply(e)
		case <-deadline:
			t.Fatal("sequence did not finish")
		}
	}

	last, _ := s.Results().Last()
	if last.Label != "sequence all-colors" || !last.Succeeded() {
		t.Errorf("entry = %+v", last)
	}
}
