package main

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"fluidez/internal/content"
	"fluidez/internal/kv"
	"fluidez/internal/logging"
	"fluidez/internal/overlay"
	"fluidez/internal/progress"
	"fluidez/internal/srs"
	"fluidez/internal/streak"
	"fluidez/internal/touch"
)

type contextKey string

// App holds everything the handlers share.
type App struct {
	Config

	Log      *logging.Logger
	Store    kv.Store
	Content  *content.Index
	Touch    *touch.Catalog
	Delights *touch.Sampler
	Profiles *progress.Profiles
	Streaks  *streak.Tracker
	Reviews  *srs.Tracker

	Sessions     map[string]*Session
	SessionMutex sync.RWMutex

	LimiterMap   map[string]*rate.Limiter
	LimiterMutex sync.Mutex

	StartTime time.Time
	// Now is the clock used for greetings and streaks.
	Now func() time.Time
}

// Session is one browser's state. Progress writes through to the store;
// everything else lives only as long as the session is cached.
type Session struct {
	ID             string
	Progress       *progress.Store
	Greeting       *overlay.Overlay
	LastAccessTime time.Time

	reviewMu sync.Mutex
	Review   *reviewSession
}

// apiError is rendered as {"error": code, "message": ...}.
type apiError struct {
	Status int
	Code   string
	Err    error
}

func (e *apiError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *apiError) Unwrap() error { return e.Err }

func newAPIError(status int, code string, err error) *apiError {
	return &apiError{Status: status, Code: code, Err: err}
}

// homeView is what the home screen renders.
type homeView struct {
	Record       progress.Record
	Profile      progress.Profile
	Today        *content.Day
	Greeting     string
	Message      string
	ShowGreeting bool
	Flame        streak.Flame
	Streak       streak.Data
	NextMile     int
	MileProgress float64
	Delight      *touch.Delight
}
