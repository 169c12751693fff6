// Package srs schedules flashcard reviews with the SuperMemo-2 algorithm.
// Each owner has a deck of per-card states kept in the kv store.
package srs

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"fluidez/internal/kv"
	"fluidez/internal/logging"
)

// StorageKey is the base key review decks are stored under.
const StorageKey = "fluidez_srs"

const (
	DefaultEase = 2.5
	MinEase     = 1.3
	// MaxInterval caps the gap between reviews, in days.
	MaxInterval = 365
	// SessionSize is the most cards one review session holds.
	SessionSize = 20
)

// Quality grades a recall from 0 (blackout) to 5 (perfect).
type Quality int

// Ratings offered on a flipped card.
const (
	Again Quality = 1
	Hard  Quality = 2
	Good  Quality = 4
	Easy  Quality = 5
)

// PassThreshold is the lowest quality counted as a correct recall.
const PassThreshold Quality = 3

// Passed reports whether q counts as remembered.
func (q Quality) Passed() bool { return q >= PassThreshold }

// Valid reports whether q is on the 0..5 scale.
func (q Quality) Valid() bool { return q >= 0 && q <= 5 }

// Item is the review state of one card.
type Item struct {
	Ease        float64   `json:"ease"`
	Interval    int       `json:"interval"`
	Repetitions int       `json:"repetitions"`
	Lapses      int       `json:"lapses"`
	Due         time.Time `json:"due"`
	LastReview  time.Time `json:"lastReview"`
}

// NewItem is the state of a card that was never reviewed. It is due at once.
func NewItem() Item {
	return Item{Ease: DefaultEase}
}

// IsDue reports whether the card should be shown at now.
func (it Item) IsDue(now time.Time) bool {
	return it.Due.IsZero() || !it.Due.After(now)
}

// Mastered reports whether the card has been recalled often enough to
// count as learned.
func (it Item) Mastered() bool {
	return it.Repetitions >= 5
}

// Schedule applies one review of quality q at now. A failed recall restarts
// the card at a one day interval; a pass steps through 1 and 3 days, then
// grows by the ease factor.
func Schedule(it Item, q Quality, now time.Time) Item {
	if it.Ease == 0 {
		it.Ease = DefaultEase
	}
	if q.Passed() {
		switch it.Repetitions {
		case 0:
			it.Interval = 1
		case 1:
			it.Interval = 3
		default:
			it.Interval = int(math.Round(float64(it.Interval) * it.Ease))
		}
		it.Interval = min(it.Interval, MaxInterval)
		it.Repetitions++
	} else {
		it.Repetitions = 0
		it.Interval = 1
		it.Lapses++
	}

	miss := float64(5 - q)
	it.Ease = max(MinEase, it.Ease+(0.1-miss*(0.08+miss*0.02)))
	it.Due = now.AddDate(0, 0, it.Interval)
	it.LastReview = now
	return it
}

// Deck maps card ids to their review state.
type Deck map[string]Item

// Item returns the state for id, or a fresh item.
func (d Deck) Item(id string) Item {
	if it, ok := d[id]; ok {
		return it
	}
	return NewItem()
}

// IsDue reports whether card id is due at now. Cards never reviewed are due.
func (d Deck) IsDue(id string, now time.Time) bool {
	return d.Item(id).IsDue(now)
}

// Stats summarises a deck.
type Stats struct {
	Total    int `json:"total"`
	Due      int `json:"due"`
	Mastered int `json:"mastered"`
}

// Stats counts reviewed cards that are due or mastered at now.
func (d Deck) Stats(now time.Time) Stats {
	var s Stats
	for _, it := range d {
		s.Total++
		if it.IsDue(now) {
			s.Due++
		}
		if it.Mastered() {
			s.Mastered++
		}
	}
	return s
}

// Tracker loads and saves decks. Storage errors are logged and swallowed.
type Tracker struct {
	backend kv.Store
	log     *logging.Logger
	mu      sync.Mutex
}

func NewTracker(backend kv.Store, log *logging.Logger) *Tracker {
	return &Tracker{backend: backend, log: logging.OrNop(log)}
}

func Key(owner string) string {
	if owner == "" {
		return StorageKey
	}
	return StorageKey + ":" + owner
}

// Load returns the owner's deck. Missing or unreadable data is an empty deck.
func (t *Tracker) Load(ctx context.Context, owner string) Deck {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(ctx, owner)
}

func (t *Tracker) load(ctx context.Context, owner string) Deck {
	deck := Deck{}
	if err := kv.GetJSON(ctx, t.backend, Key(owner), &deck); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			t.log.Warn("Review deck unreadable, starting over", "error", err)
		}
		return Deck{}
	}
	return deck
}

// Review records a rating for one card and returns its new state.
func (t *Tracker) Review(ctx context.Context, owner, id string, q Quality, now time.Time) Item {
	t.mu.Lock()
	defer t.mu.Unlock()

	deck := t.load(ctx, owner)
	it := Schedule(deck.Item(id), q, now)
	deck[id] = it
	if err := kv.SetJSON(ctx, t.backend, Key(owner), deck); err != nil {
		t.log.Warn("Failed to persist review deck", "error", err)
	}
	return it
}
