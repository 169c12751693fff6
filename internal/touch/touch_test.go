package touch

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGreeting(t *testing.T) {
	c := Default()
	tests := []struct {
		hour int
		want string
	}{
		{0, "¡Buenos días"},
		{11, "¡Buenos días"},
		{12, "¡Buenas tardes"},
		{17, "¡Buenas tardes"},
		{18, "¡Buenas noches"},
		{23, "¡Buenas noches"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Greeting(tt.hour), "hour %d", tt.hour)
	}
}

func TestMessage(t *testing.T) {
	c := Default()
	assert.Equal(t, "Ready for Day 1?", c.Message(0, 1))
	assert.Equal(t, "Ready for Day 4?", c.Message(1, 4))
	assert.Equal(t, "2 days in a row! 🔥", c.Message(2, 4))
	assert.Equal(t, "12 days in a row! 🔥", c.Message(12, 15))
}

func TestFirstMatchWins(t *testing.T) {
	c, err := Parse([]byte(`
greetings:
  - text: "always"
  - before_hour: 12
    text: "never reached"
messages:
  - min_streak: 5
    text: "big"
  - min_streak: 1
    text: "small"
`))
	require.NoError(t, err)
	assert.Equal(t, "always", c.Greeting(3))
	assert.Equal(t, "big", c.Message(7, 1))
	assert.Equal(t, "small", c.Message(3, 1))
	assert.Equal(t, "", c.Message(0, 1))
}

func TestParseRejects(t *testing.T) {
	_, err := Parse([]byte("greetings: ["))
	assert.Error(t, err)

	_, err = Parse([]byte("greetings: [{text: hi}]"))
	assert.Error(t, err)

	_, err = Parse([]byte("greetings: [{text: hi}]\nmessages: [{text: yo}]\ndelight: {chance: 2}"))
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.Delight.Items, 5)
	assert.InDelta(t, 0.1, c.Delight.Chance, 1e-9)

	path := filepath.Join(t.TempDir(), "touch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("greetings: [{text: Hola}]\nmessages: [{text: Vamos}]\n"), 0o644))
	c, err = LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "Hola", c.Greeting(9))

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSampler(t *testing.T) {
	c := Default()

	never := NewSampler(c, 0, rand.New(rand.NewPCG(1, 2)))
	for i := 0; i < 100; i++ {
		_, ok := never.Sample()
		assert.False(t, ok)
	}

	always := NewSampler(c, 1, rand.New(rand.NewPCG(1, 2)))
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		d, ok := always.Sample()
		require.True(t, ok)
		seen[d.Emoji] = true
	}
	assert.Len(t, seen, 5, "every delight should come up")

	assert.InDelta(t, 0.1, NewSampler(c, -1, nil).Chance(), 1e-9)

	empty := NewSampler(&Catalog{}, 1, nil)
	_, ok := empty.Sample()
	assert.False(t, ok)
}

func TestSamplerRate(t *testing.T) {
	s := NewSampler(Default(), 0.1, rand.New(rand.NewPCG(42, 7)))
	hits := 0
	for i := 0; i < 10000; i++ {
		if _, ok := s.Sample(); ok {
			hits++
		}
	}
	assert.InDelta(t, 1000, hits, 150)
}
