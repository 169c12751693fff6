package progress

import (
	"context"
	"errors"

	"fluidez/internal/kv"
	"fluidez/internal/logging"
)

// ProfileKey is the base key learner profiles are stored under.
const ProfileKey = "fluidez_profile"

// Dialects offered on the dialect screen.
const (
	DialectLatAm = "latam"
	DialectSpain = "spain"
)

// ValidDialect reports whether d is one of the offered dialects.
func ValidDialect(d string) bool {
	return d == DialectLatAm || d == DialectSpain
}

// Profile holds onboarding choices.
type Profile struct {
	Dialect   string `json:"dialect"`
	Onboarded bool   `json:"onboarded"`
}

// SpeechLang maps the chosen dialect to a speech language tag.
func (p Profile) SpeechLang() string {
	if p.Dialect == DialectLatAm {
		return "es-MX"
	}
	return "es-ES"
}

// Profiles loads and saves profiles with the same fail-soft policy as Store.
type Profiles struct {
	backend kv.Store
	log     *logging.Logger
}

func NewProfiles(backend kv.Store, log *logging.Logger) *Profiles {
	return &Profiles{backend: backend, log: logging.OrNop(log)}
}

func (p *Profiles) Load(ctx context.Context, owner string) Profile {
	var prof Profile
	if err := kv.GetJSON(ctx, p.backend, profileKey(owner), &prof); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			p.log.Warn("Profile unreadable, using defaults", "error", err)
		}
		return Profile{}
	}
	return prof
}

func (p *Profiles) Save(ctx context.Context, owner string, prof Profile) {
	if err := kv.SetJSON(ctx, p.backend, profileKey(owner), prof); err != nil {
		p.log.Warn("Failed to persist profile", "error", err)
	}
}

func profileKey(owner string) string {
	if owner == "" {
		return ProfileKey
	}
	return ProfileKey + ":" + owner
}
