package session

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/muurk/ledbench/internal/color"
	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/logging"
)

// Step is one action of a sequence. Hold adds a pause after the action on
// top of the sequence interval.
type Step struct {
	Action Action
	Hold   time.Duration
}

// Sequence is a named list of steps issued at a fixed pace
type Sequence struct {
	Name     string
	Interval time.Duration
	Steps    []Step
}

// Sequence names accepted by SequenceByName
const (
	SeqAllColors = "all-colors"
	SeqRainbow   = "rainbow"
	SeqGradient  = "gradient"
	SeqRandom    = "random"
	SeqFull      = "full"
)

// RandomColorCount is how many colours the random sequence sends
const RandomColorCount = 20

// presetOrder is the order presets are exercised in: fixed colours, then
// rainbow last
var presetOrder = []int{1, 2, 3, 4, 5, 6, 7, color.RainbowPreset}

func presetSteps(format string) []Step {
	steps := make([]Step, 0, len(presetOrder))
	for _, i := range presetOrder {
		a := Preset(i)
		a.Label = fmt.Sprintf(format, i)
		steps = append(steps, Step{Action: a})
	}
	return steps
}

func hsvStep(label string, h, s, v float64) Step {
	a := HSV(color.HSV{Hue: h, Saturation: s, Value: v}, nil)
	a.Label = label
	return Step{Action: a}
}

// AllColors cycles every preset, one per second
func AllColors() Sequence {
	return Sequence{
		Name:     SeqAllColors,
		Interval: time.Second,
		Steps:    presetSteps("test color %d"),
	}
}

// Rainbow sweeps the hue circle in 10° steps at full saturation and value
func Rainbow() Sequence {
	var steps []Step
	for h := 0; h < 360; h += 10 {
		steps = append(steps, hsvStep(fmt.Sprintf("rainbow H%d°", h), float64(h), 100, 100))
	}
	return Sequence{Name: SeqRainbow, Interval: 100 * time.Millisecond, Steps: steps}
}

// Gradient sweeps hue in 5° steps, then fades saturation and then value
// from 100 down to 5 at cyan
func Gradient() Sequence {
	var steps []Step
	for h := 0; h < 360; h += 5 {
		steps = append(steps, hsvStep(fmt.Sprintf("gradient H%d°", h), float64(h), 100, 100))
	}
	for s := 100; s > 0; s -= 5 {
		steps = append(steps, hsvStep(fmt.Sprintf("gradient H180° S%d%%", s), 180, float64(s), 100))
	}
	for v := 100; v > 0; v -= 5 {
		steps = append(steps, hsvStep(fmt.Sprintf("gradient H180° V%d%%", v), 180, 100, float64(v)))
	}
	return Sequence{Name: SeqGradient, Interval: 50 * time.Millisecond, Steps: steps}
}

// Random sends RandomColorCount random colours with saturation and value
// of at least 50. A nil rng uses the global source.
func Random(rng *rand.Rand) Sequence {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}

	steps := make([]Step, 0, RandomColorCount)
	for i := 0; i < RandomColorCount; i++ {
		h := intN(361)
		s := 50 + intN(51)
		v := 50 + intN(51)
		steps = append(steps, hsvStep(fmt.Sprintf("random H%d° S%d%% V%d%%", h, s, v), float64(h), float64(s), float64(v)))
	}
	return Sequence{Name: SeqRandom, Interval: 500 * time.Millisecond, Steps: steps}
}

// Full runs the presets, the three primaries over HSV, and a broadcast
// on/off cycle with a two second hold
func Full() Sequence {
	steps := presetSteps("color %d test")
	for _, h := range []float64{0, 120, 240} {
		steps = append(steps, hsvStep(fmt.Sprintf("HSV test H%.0f° S100%% V100%%", h), h, 100, 100))
	}

	enable := Broadcast(true)
	enable.Label = "enable broadcast"
	disable := Broadcast(false)
	disable.Label = "disable broadcast"
	steps = append(steps, Step{Action: enable, Hold: 2 * time.Second}, Step{Action: disable})

	return Sequence{Name: SeqFull, Interval: 500 * time.Millisecond, Steps: steps}
}

var sequenceBuilders = map[string]func(*rand.Rand) Sequence{
	SeqAllColors: func(*rand.Rand) Sequence { return AllColors() },
	SeqRainbow:   func(*rand.Rand) Sequence { return Rainbow() },
	SeqGradient:  func(*rand.Rand) Sequence { return Gradient() },
	SeqRandom:    Random,
	SeqFull:      func(*rand.Rand) Sequence { return Full() },
}

// SequenceNames lists the built-in sequences
func SequenceNames() []string {
	names := make([]string, 0, len(sequenceBuilders))
	for name := range sequenceBuilders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SequenceByName builds a built-in sequence
func SequenceByName(name string, rng *rand.Rand) (Sequence, error) {
	build, ok := sequenceBuilders[name]
	if !ok {
		return Sequence{}, deviceapi.NewValidationError(fmt.Sprintf("unknown sequence %q (want one of %v)", name, SequenceNames()))
	}
	return build(rng), nil
}

// Duration estimates how long seq takes, ignoring request time
func (seq Sequence) Duration() time.Duration {
	var d time.Duration
	for i, st := range seq.Steps {
		if i > 0 {
			d += seq.Interval
		}
		d += st.Hold
	}
	return d
}

// RunSequence performs every step of seq against target, posting a
// ResultLogged and a SequenceProgress per step and a SequenceFinished at
// the end. Failed steps are logged and the run continues. Cancelling ctx
// stops before the next step. It is a worker: run it on its own goroutine.
func RunSequence(ctx context.Context, target Performer, seq Sequence, post func(Event)) SequenceFinished {
	logger := logging.Named("sequence")

	interval := seq.Interval
	if interval <= 0 {
		interval = time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	finished := SequenceFinished{Name: seq.Name, Total: len(seq.Steps)}

	for i, step := range seq.Steps {
		if err := limiter.Wait(ctx); err != nil {
			finished.Cancelled = true
			break
		}

		ev := target.Perform(ctx, step.Action)
		post(ev)

		finished.Steps++
		if ev.Err != nil {
			finished.Failed++
		}
		post(SequenceProgress{
			Name:  seq.Name,
			Step:  i + 1,
			Total: len(seq.Steps),
			Label: ev.Result.Label,
			OK:    ev.Err == nil,
		})

		if step.Hold > 0 && i < len(seq.Steps)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(step.Hold):
			}
		}
	}

	if !finished.Cancelled && ctx.Err() != nil && finished.Steps < finished.Total {
		finished.Cancelled = true
	}

	logger.Info("Sequence finished",
		zap.String("name", seq.Name),
		zap.Int("steps", finished.Steps),
		zap.Int("failed", finished.Failed),
		zap.Bool("cancelled", finished.Cancelled),
	)

	post(finished)
	return finished
}

// StartSequence runs seq on a worker against the connected device. Only one
// sequence runs at a time.
func (s *Session) StartSequence(ctx context.Context, seq Sequence) error {
	label := "sequence " + seq.Name

	if s.sequence != nil {
		err := deviceapi.NewConcurrencyWarning(fmt.Sprintf("sequence %s is already running", s.sequence.Name))
		s.log.Append(Warning(label, err))
		return err
	}

	target, err := s.Target()
	if err != nil {
		s.log.Append(Failure(label, err))
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.sequence = &SequenceStatus{Name: seq.Name, Total: len(seq.Steps), cancel: cancel}

	go RunSequence(ctx, target, seq, s.Post)
	return nil
}

// CancelSequence stops the running sequence before its next step
func (s *Session) CancelSequence() {
	if s.sequence != nil {
		s.sequence.cancel()
	}
}
