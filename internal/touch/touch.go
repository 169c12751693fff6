// Package touch holds the small personal messages shown around the course:
// the time-of-day greeting, the streak line and the occasional delight.
package touch

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Rule is one entry of an ordered rule list. Unset conditions always match.
type Rule struct {
	BeforeHour *int   `yaml:"before_hour,omitempty"`
	MinStreak  *int   `yaml:"min_streak,omitempty"`
	Text       string `yaml:"text"`
}

func (r Rule) matches(hour, streak int) bool {
	if r.BeforeHour != nil && hour >= *r.BeforeHour {
		return false
	}
	if r.MinStreak != nil && streak < *r.MinStreak {
		return false
	}
	return true
}

type Delight struct {
	Emoji string `yaml:"emoji" json:"emoji"`
	Text  string `yaml:"text" json:"text"`
}

type DelightConfig struct {
	Chance float64   `yaml:"chance"`
	Items  []Delight `yaml:"items"`
}

// Catalog is the full set of rules and delights.
type Catalog struct {
	Greetings []Rule        `yaml:"greetings"`
	Messages  []Rule        `yaml:"messages"`
	Delight   DelightConfig `yaml:"delight"`
}

// Parse decodes and checks a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("touch: parse catalog: %w", err)
	}
	if len(c.Greetings) == 0 || len(c.Messages) == 0 {
		return nil, fmt.Errorf("touch: catalog needs greetings and messages")
	}
	if c.Delight.Chance < 0 || c.Delight.Chance > 1 {
		return nil, fmt.Errorf("touch: delight chance %v outside [0,1]", c.Delight.Chance)
	}
	return &c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog reads a catalog file. An empty path yields the built-in one.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("touch: %w", err)
	}
	return Parse(data)
}

// Greeting picks the salutation for a local hour (0-23).
func (c *Catalog) Greeting(hour int) string {
	return firstMatch(c.Greetings, hour, 0)
}

// Message picks the status line for the learner's streak and day.
func (c *Catalog) Message(streak, day int) string {
	text := firstMatch(c.Messages, 0, streak)
	return strings.NewReplacer(
		"{streak}", strconv.Itoa(streak),
		"{day}", strconv.Itoa(day),
	).Replace(text)
}

func firstMatch(rules []Rule, hour, streak int) string {
	for _, r := range rules {
		if r.matches(hour, streak) {
			return r.Text
		}
	}
	return ""
}

// Sampler draws delights. It is safe for concurrent use.
type Sampler struct {
	items  []Delight
	chance float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler uses chance from the catalog unless override is >= 0. A nil rng
// is seeded randomly.
func NewSampler(c *Catalog, override float64, rng *rand.Rand) *Sampler {
	chance := c.Delight.Chance
	if override >= 0 {
		chance = override
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Sampler{items: c.Delight.Items, chance: chance, rng: rng}
}

// Sample returns a delight with probability chance, chosen uniformly.
func (s *Sampler) Sample() (Delight, bool) {
	if len(s.items) == 0 {
		return Delight{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Float64() >= s.chance {
		return Delight{}, false
	}
	return s.items[s.rng.IntN(len(s.items))], true
}

func (s *Sampler) Chance() float64 { return s.chance }
