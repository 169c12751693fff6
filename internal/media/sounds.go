package media

import (
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"fluidez/internal/logging"
)

// Effect names a short UI sound.
type Effect string

const (
	EffectCorrect   Effect = "correct"
	EffectIncorrect Effect = "incorrect"
	EffectLevelUp   Effect = "levelUp"
	EffectClick     Effect = "click"
	EffectStreak    Effect = "streak"
	EffectComplete  Effect = "complete"
)

// DefaultVolume applies to every clip.
const DefaultVolume = 0.5

var soundURLs = map[Effect]string{
	EffectCorrect:   "https://assets.mixkit.co/active_storage/sfx/2000/2000-preview.mp3",
	EffectIncorrect: "https://assets.mixkit.co/active_storage/sfx/2001/2001-preview.mp3",
	EffectLevelUp:   "https://assets.mixkit.co/active_storage/sfx/1997/1997-preview.mp3",
	EffectClick:     "https://assets.mixkit.co/active_storage/sfx/2568/2568-preview.mp3",
	EffectStreak:    "https://assets.mixkit.co/active_storage/sfx/2019/2019-preview.mp3",
	EffectComplete:  "https://assets.mixkit.co/active_storage/sfx/2018/2018-preview.mp3",
}

// SoundURL returns the clip location for effect, or "" if unknown.
func SoundURL(effect Effect) string {
	return soundURLs[effect]
}

// SoundURLs returns a copy of the effect table, keyed by effect name.
func SoundURLs() map[string]string {
	m := make(map[string]string, len(soundURLs))
	for k, v := range soundURLs {
		m[string(k)] = v
	}
	return m
}

// Clip is a loaded sound. Play restarts it from the beginning.
type Clip interface {
	Play() error
}

// Player loads clips.
type Player interface {
	Load(url string, volume float64) (Clip, error)
}

// Sounds is an owned cache holding one clip per effect.
type Sounds struct {
	player Player
	volume float64
	log    *logging.Logger

	mu      sync.Mutex
	clips   map[Effect]Clip
	enabled bool
}

// NewSounds returns an enabled cache. Clips are loaded on first use.
func NewSounds(player Player, log *logging.Logger) *Sounds {
	return &Sounds{
		player:  player,
		volume:  DefaultVolume,
		log:     logging.OrNop(log),
		clips:   make(map[Effect]Clip),
		enabled: player != nil,
	}
}

func (s *Sounds) SetEnabled(on bool) {
	s.mu.Lock()
	s.enabled = on && s.player != nil
	s.mu.Unlock()
}

func (s *Sounds) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Play triggers effect. Load and playback failures are logged and dropped.
func (s *Sounds) Play(effect Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return
	}
	clip, ok := s.clips[effect]
	if !ok {
		url := SoundURL(effect)
		if url == "" {
			return
		}
		c, err := s.player.Load(url, s.volume)
		if err != nil {
			s.log.Debug("Sound load failed", "effect", string(effect), "error", err)
			return
		}
		s.clips[effect] = c
		clip = c
	}
	if err := clip.Play(); err != nil {
		s.log.Debug("Sound playback failed", "effect", string(effect), "error", err)
	}
}

// CommandPlayer plays clips through ffplay or mpv when one is installed.
type CommandPlayer struct {
	bin string
}

// NewCommandPlayer returns nil when no player binary is found, which leaves
// Sounds disabled.
func NewCommandPlayer() *CommandPlayer {
	for _, name := range []string{"ffplay", "mpv"} {
		if path, err := exec.LookPath(name); err == nil {
			return &CommandPlayer{bin: path}
		}
	}
	return nil
}

func (p *CommandPlayer) Load(url string, volume float64) (Clip, error) {
	return &commandClip{bin: p.bin, url: url, volume: volume}, nil
}

type commandClip struct {
	bin    string
	url    string
	volume float64

	mu  sync.Mutex
	cmd *exec.Cmd
}

func (c *commandClip) args() []string {
	vol := int(c.volume * 100)
	if c.isMPV() {
		return []string{"--no-video", "--really-quiet", "--volume=" + strconv.Itoa(vol), c.url}
	}
	return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-volume", strconv.Itoa(vol), c.url}
}

func (c *commandClip) isMPV() bool {
	return strings.HasSuffix(c.bin, "mpv")
}

// Play kills any running instance so the clip starts over.
func (c *commandClip) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	cmd := exec.Command(c.bin, c.args()...)
	if err := cmd.Start(); err != nil {
		return err
	}
	c.cmd = cmd
	go func() { _ = cmd.Wait() }()
	return nil
}
