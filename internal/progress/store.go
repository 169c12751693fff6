// Package progress owns the learner's Progress Record: loading it with
// defaults, merging partial updates and advancing the course day. Every change
// is written through to a kv.Store on a best-effort basis.
package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fluidez/internal/kv"
	"fluidez/internal/logging"
)

// StorageKey is the base key progress records are stored under.
const StorageKey = "fluidez_progress"

// Key returns the storage key for an owner (usually a session id).
func Key(owner string) string {
	if owner == "" {
		return StorageKey
	}
	return StorageKey + ":" + owner
}

// Store is the single writer of one Progress Record.
type Store struct {
	backend kv.Store
	key     string
	log     *logging.Logger

	mu     sync.Mutex
	rec    Record
	loaded bool
}

// NewStore returns a store for the record under key. Nothing is read until Load
// or the first mutation.
func NewStore(backend kv.Store, key string, log *logging.Logger) *Store {
	return &Store{
		backend: backend,
		key:     key,
		log:     logging.OrNop(log).With("store_key", key),
		rec:     Default(),
	}
}

// Load reads the persisted record. Missing, corrupt or invalid data yields the
// default record; errors never reach the caller.
func (s *Store) Load(ctx context.Context) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = s.read(ctx)
	s.loaded = true
	return s.rec
}

// Current returns the in-memory record, loading it first if needed.
func (s *Store) Current(ctx context.Context) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)
	return s.rec
}

// Update merges p over the current record and persists the result. Only a
// validation failure is reported; the record is then left untouched.
func (s *Store) Update(ctx context.Context, p Partial) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	if err := p.Validate(); err != nil {
		return s.rec, err
	}
	if p.IsEmpty() {
		return s.rec, nil
	}
	s.rec = s.rec.Merge(p)
	s.write(ctx)
	return s.rec, nil
}

// AdvanceDay moves to the next day and resets the day's progress. At MaxDay it
// returns the unchanged record without writing.
func (s *Store) AdvanceDay(ctx context.Context) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	if s.rec.CurrentDay >= MaxDay {
		return s.rec
	}
	s.rec.CurrentDay++
	s.rec.DayProgress = 0
	s.write(ctx)
	return s.rec
}

// Completion is what finishing a day adds to the record.
type Completion struct {
	Words   int
	Seconds int
	// Streak replaces the stored streak when set.
	Streak *int
}

// CompleteDay records a finished day in one step. Finishing the current day
// adds its words and advances; replaying an earlier day only adds time. A day
// past the current one fails with ErrDayLocked. The second result reports
// whether the day advanced.
func (s *Store) CompleteDay(ctx context.Context, day int, c Completion) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	if day < 1 || day > s.rec.CurrentDay {
		return s.rec, false, fmt.Errorf("%w: day %d, current %d", ErrDayLocked, day, s.rec.CurrentDay)
	}
	if c.Streak != nil && *c.Streak < 0 {
		return s.rec, false, fmt.Errorf("%w: streak %d is negative", ErrOutOfRange, *c.Streak)
	}

	advanced := false
	if day == s.rec.CurrentDay {
		s.rec.WordsLearned += max(0, c.Words)
		if s.rec.CurrentDay < MaxDay {
			s.rec.CurrentDay++
			s.rec.DayProgress = 0
			advanced = true
		}
	}
	s.rec.TimeSpent += max(0, c.Seconds)
	if c.Streak != nil {
		s.rec.Streak = *c.Streak
	}
	s.write(ctx)
	return s.rec, advanced, nil
}

// SetCardsToReview overwrites the review count with n, clamped at zero.
func (s *Store) SetCardsToReview(ctx context.Context, n int) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	n = max(0, n)
	if s.rec.CardsToReview == n {
		return s.rec
	}
	s.rec.CardsToReview = n
	s.write(ctx)
	return s.rec
}

func (s *Store) ensureLoaded(ctx context.Context) {
	if !s.loaded {
		s.rec = s.read(ctx)
		s.loaded = true
	}
}

func (s *Store) read(ctx context.Context) Record {
	rec := Default()
	if err := kv.GetJSON(ctx, s.backend, s.key, &rec); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn("Progress record unreadable, using defaults", "error", err)
		}
		return Default()
	}
	if err := rec.asPartial().Validate(); err != nil {
		s.log.Warn("Stored progress record is invalid, using defaults", "error", err)
		return Default()
	}
	return rec
}

func (s *Store) write(ctx context.Context) {
	if err := kv.SetJSON(ctx, s.backend, s.key, s.rec); err != nil {
		s.log.Warn("Failed to persist progress record", "error", err)
	}
}

func (r Record) asPartial() Partial {
	return Partial{
		CurrentDay:    &r.CurrentDay,
		DayProgress:   &r.DayProgress,
		Streak:        &r.Streak,
		WordsLearned:  &r.WordsLearned,
		TimeSpent:     &r.TimeSpent,
		CardsToReview: &r.CardsToReview,
	}
}
