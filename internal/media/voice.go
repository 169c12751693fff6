package media

import (
	"context"
	"errors"
	"sync"

	"fluidez/internal/logging"
)

// Outcome reports how an utterance ended.
type Outcome int

const (
	Completed Outcome = iota
	Failed
	Cancelled
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Option adjusts a single Speak call.
type Option func(*Utterance)

func WithLang(lang string) Option {
	return func(u *Utterance) {
		if lang != "" {
			u.Lang = lang
		}
	}
}

func WithRate(rate float64) Option {
	return func(u *Utterance) {
		if rate > 0 {
			u.Rate = rate
		}
	}
}

// Voice speaks one utterance at a time. Starting a new utterance cancels the
// previous one.
type Voice struct {
	synth Synthesizer
	log   *logging.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	gen      uint64
	speaking bool
	wg       sync.WaitGroup
}

// NewVoice returns a voice backed by synth. A nil synth behaves like
// NoopSynthesizer.
func NewVoice(synth Synthesizer, log *logging.Logger) *Voice {
	if synth == nil {
		synth = NoopSynthesizer{}
	}
	return &Voice{synth: synth, log: logging.OrNop(log)}
}

// Speak cancels any in-flight utterance and starts text. The returned channel
// receives exactly one Outcome and is then closed.
func (v *Voice) Speak(text string, opts ...Option) <-chan Outcome {
	out := make(chan Outcome, 1)
	u := Utterance{Text: text, Lang: DefaultLang, Rate: DefaultRate}
	for _, opt := range opts {
		opt(&u)
	}

	v.mu.Lock()
	v.stopLocked()
	if !v.synth.Available() {
		v.mu.Unlock()
		out <- Unavailable
		close(out)
		return out
	}
	ctx, cancel := context.WithCancel(context.Background())
	v.gen++
	gen := v.gen
	v.cancel = cancel
	v.speaking = true
	v.wg.Add(1)
	v.mu.Unlock()

	go func() {
		defer v.wg.Done()
		defer close(out)
		err := v.synth.Speak(ctx, u)
		res := outcomeOf(ctx, err)
		if res == Failed {
			v.log.Warn("Speech failed", "error", err)
		}

		v.mu.Lock()
		if v.gen == gen {
			v.speaking = false
			v.cancel = nil
		}
		v.mu.Unlock()
		cancel()
		out <- res
	}()
	return out
}

func outcomeOf(ctx context.Context, err error) Outcome {
	switch {
	case err == nil:
		return Completed
	case errors.Is(err, ErrNoEngine):
		return Unavailable
	case ctx.Err() != nil:
		return Cancelled
	default:
		return Failed
	}
}

// Stop cancels the current utterance, if any.
func (v *Voice) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopLocked()
}

func (v *Voice) stopLocked() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.gen++
	v.speaking = false
}

// Speaking reports whether an utterance is in progress.
func (v *Voice) Speaking() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.speaking
}

// Close stops speech and waits for the speaking goroutine to exit.
func (v *Voice) Close() {
	v.Stop()
	v.wg.Wait()
}
