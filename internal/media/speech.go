// Package media wraps text-to-speech and sound effects behind small owned
// types. Hosts without a speech engine degrade to no-ops.
package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"

	"fluidez/internal/logging"
)

const (
	DefaultLang = "es-ES"
	DefaultRate = 0.8
)

// ErrNoEngine is returned when no speech engine is installed.
var ErrNoEngine = errors.New("media: no speech engine available")

// Utterance is one request to speak.
type Utterance struct {
	Text string
	Lang string
	Rate float64
}

// Synthesizer speaks utterances. Speak blocks until the utterance finishes,
// fails, or ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) error
	Available() bool
}

var (
	_ Synthesizer = NoopSynthesizer{}
	_ Synthesizer = (*CommandSynthesizer)(nil)
)

// NoopSynthesizer is used when speech is disabled or unsupported.
type NoopSynthesizer struct{}

func (NoopSynthesizer) Speak(context.Context, Utterance) error { return ErrNoEngine }
func (NoopSynthesizer) Available() bool                        { return false }

// baseWPM is espeak's default speaking speed; Rate scales it.
const baseWPM = 175

// CommandSynthesizer shells out to espeak-ng or espeak.
type CommandSynthesizer struct {
	bin string
	log *logging.Logger
}

// NewCommandSynthesizer looks up espeak-ng, then espeak, on PATH. The result
// reports Available() == false when neither is installed.
func NewCommandSynthesizer(log *logging.Logger) *CommandSynthesizer {
	s := &CommandSynthesizer{log: logging.OrNop(log)}
	for _, name := range []string{"espeak-ng", "espeak"} {
		if path, err := exec.LookPath(name); err == nil {
			s.bin = path
			break
		}
	}
	return s
}

func (s *CommandSynthesizer) Available() bool { return s.bin != "" }

func (s *CommandSynthesizer) Speak(ctx context.Context, u Utterance) error {
	if s.bin == "" {
		return ErrNoEngine
	}
	cmd := exec.CommandContext(ctx, s.bin, s.args(u)...)
	s.log.Debug("Speaking", "lang", u.Lang, "chars", len(u.Text))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("media: %s: %w", s.bin, err)
	}
	return nil
}

func (s *CommandSynthesizer) args(u Utterance) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	lang := u.Lang
	if lang == "" {
		lang = DefaultLang
	}
	return []string{"-v", espeakVoice(lang), "-s", strconv.Itoa(int(math.Round(baseWPM * rate))), "--", u.Text}
}

// espeakVoice maps BCP 47 tags to espeak voice names.
func espeakVoice(lang string) string {
	switch lang {
	case "es-MX", "es-419", "es-US":
		return "es-419"
	case "es-ES", "es":
		return "es"
	default:
		return lang
	}
}
