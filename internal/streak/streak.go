// Package streak tracks consecutive days of completed lessons.
package streak

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"fluidez/internal/kv"
	"fluidez/internal/logging"
)

// StorageKey is the base key streak data is stored under.
const StorageKey = "fluidez_streak"

const dateLayout = "2006-01-02"

// Milestones are the streak lengths worth celebrating.
var Milestones = []int{3, 7, 14, 21, 30, 60, 90, 180, 365}

type Data struct {
	CurrentStreak      int    `json:"currentStreak"`
	LongestStreak      int    `json:"longestStreak"`
	LastCompletedDate  string `json:"lastCompletedDate,omitempty"`
	TotalDaysCompleted int    `json:"totalDaysCompleted"`
	CompletedDays      []int  `json:"completedDays"`
}

// Result is returned by CompleteDay.
type Result struct {
	Data
	AlreadyCompleted bool `json:"alreadyCompleted,omitempty"`
	// Milestone is the streak length just reached, or 0.
	Milestone int `json:"milestone,omitempty"`
}

// Tracker reads and writes streak data per owner. Storage errors are logged
// and never returned.
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

// Load returns the stored data, or a zero streak.
func (t *Tracker) Load(ctx context.Context, owner string) Data {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(ctx, owner)
}

func (t *Tracker) load(ctx context.Context, owner string) Data {
	var d Data
	if err := kv.GetJSON(ctx, t.backend, Key(owner), &d); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			t.log.Warn("Streak data unreadable, starting over", "error", err)
		}
		return Data{CompletedDays: []int{}}
	}
	if d.CompletedDays == nil {
		d.CompletedDays = []int{}
	}
	return d
}

// CompleteDay records that day was finished at now. Finishing twice on the
// same calendar day changes nothing.
func (t *Tracker) CompleteDay(ctx context.Context, owner string, day int, now time.Time) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := t.load(ctx, owner)
	today := now.Format(dateLayout)
	if d.LastCompletedDate == today {
		return Result{Data: d, AlreadyCompleted: true}
	}

	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)
	if d.LastCompletedDate == "" || d.LastCompletedDate == yesterday {
		d.CurrentStreak++
	} else {
		d.CurrentStreak = 1
	}
	d.LongestStreak = max(d.LongestStreak, d.CurrentStreak)
	d.LastCompletedDate = today
	d.TotalDaysCompleted++
	if !slices.Contains(d.CompletedDays, day) {
		d.CompletedDays = append(d.CompletedDays, day)
	}

	if err := kv.SetJSON(ctx, t.backend, Key(owner), d); err != nil {
		t.log.Warn("Failed to persist streak", "error", err)
	}

	res := Result{Data: d}
	if slices.Contains(Milestones, d.CurrentStreak) {
		res.Milestone = d.CurrentStreak
	}
	return res
}

// Flame is the visual for a streak length.
type Flame struct {
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

func FlameIntensity(streak int) Flame {
	switch {
	case streak >= 30:
		return Flame{"🔥", "#FF4500"}
	case streak >= 14:
		return Flame{"🔥", "#FF6B35"}
	case streak >= 7:
		return Flame{"🔥", "#FFA500"}
	case streak >= 3:
		return Flame{"🔥", "#FFD700"}
	default:
		return Flame{"🕯️", "#888"}
	}
}

// NextMilestone returns the first milestone above streak, or 0 past the last.
func NextMilestone(streak int) int {
	for _, m := range Milestones {
		if m > streak {
			return m
		}
	}
	return 0
}

// MilestoneProgress is how far streak is toward the next milestone, 0-100.
func MilestoneProgress(streak int) int {
	next := NextMilestone(streak)
	if next == 0 {
		return 100
	}
	return int(float64(streak)/float64(next)*100 + 0.5)
}
