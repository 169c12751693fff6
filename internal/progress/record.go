package progress

import (
	"errors"
	"fmt"
)

// MaxDay is the last day of the course.
const MaxDay = 30

// ErrOutOfRange is returned by Update when a field would break the record invariants.
var ErrOutOfRange = errors.New("progress: value out of range")

// ErrDayLocked is returned by CompleteDay for a day not yet reached.
var ErrDayLocked = errors.New("progress: day not unlocked")

// Record is the learner's persisted progress.
type Record struct {
	CurrentDay    int     `json:"currentDay"`
	DayProgress   float64 `json:"dayProgress"`
	Streak        int     `json:"streak"`
	WordsLearned  int     `json:"wordsLearned"`
	TimeSpent     int     `json:"timeSpent"`
	CardsToReview int     `json:"cardsToReview"`
}

// Default is the record a new learner starts with.
func Default() Record {
	return Record{
		CurrentDay:    1,
		DayProgress:   0,
		Streak:        1,
		WordsLearned:  0,
		TimeSpent:     0,
		CardsToReview: 10,
	}
}

// Partial carries the fields an update overwrites. Nil fields are left alone.
type Partial struct {
	CurrentDay    *int     `json:"currentDay,omitempty"`
	DayProgress   *float64 `json:"dayProgress,omitempty"`
	Streak        *int     `json:"streak,omitempty"`
	WordsLearned  *int     `json:"wordsLearned,omitempty"`
	TimeSpent     *int     `json:"timeSpent,omitempty"`
	CardsToReview *int     `json:"cardsToReview,omitempty"`
}

// IsEmpty reports whether the partial sets no field.
func (p Partial) IsEmpty() bool {
	return p.CurrentDay == nil && p.DayProgress == nil && p.Streak == nil &&
		p.WordsLearned == nil && p.TimeSpent == nil && p.CardsToReview == nil
}

// Validate checks every set field against the record invariants.
func (p Partial) Validate() error {
	if p.CurrentDay != nil && (*p.CurrentDay < 1 || *p.CurrentDay > MaxDay) {
		return fmt.Errorf("%w: currentDay %d not in 1..%d", ErrOutOfRange, *p.CurrentDay, MaxDay)
	}
	if p.DayProgress != nil && (*p.DayProgress < 0 || *p.DayProgress > 100) {
		return fmt.Errorf("%w: dayProgress %v not in 0..100", ErrOutOfRange, *p.DayProgress)
	}
	counters := []struct {
		name string
		v    *int
	}{
		{"streak", p.Streak},
		{"wordsLearned", p.WordsLearned},
		{"timeSpent", p.TimeSpent},
		{"cardsToReview", p.CardsToReview},
	}
	for _, c := range counters {
		if c.v != nil && *c.v < 0 {
			return fmt.Errorf("%w: %s %d is negative", ErrOutOfRange, c.name, *c.v)
		}
	}
	return nil
}

// Merge returns r with every set field of p overwritten.
func (r Record) Merge(p Partial) Record {
	if p.CurrentDay != nil {
		r.CurrentDay = *p.CurrentDay
	}
	if p.DayProgress != nil {
		r.DayProgress = *p.DayProgress
	}
	if p.Streak != nil {
		r.Streak = *p.Streak
	}
	if p.WordsLearned != nil {
		r.WordsLearned = *p.WordsLearned
	}
	if p.TimeSpent != nil {
		r.TimeSpent = *p.TimeSpent
	}
	if p.CardsToReview != nil {
		r.CardsToReview = *p.CardsToReview
	}
	return r
}

// Int and Float build pointer values for Partial literals.
func Int(v int) *int { return &v }

func Float(v float64) *float64 { return &v }
