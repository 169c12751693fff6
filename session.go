package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fluidez/internal/overlay"
	"fluidez/internal/progress"
)

// getOrCreateSession retrieves the session ID from the cookie or creates a new one.
func (app *App) getOrCreateSession(c *gin.Context) string {
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil || uuid.Validate(sessionID) != nil {
		sessionID = uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		secure := app.IsProduction
		c.SetCookie(SessionCookieName, sessionID, int(app.CookieMaxAge.Seconds()), "/", "", secure, true)
		logInfo("Created new session: %s", sessionID)
	}
	return sessionID
}

// getSession returns the cached session, building it from storage on a miss.
func (app *App) getSession(ctx context.Context, sessionID string) *Session {
	now := app.Now()

	app.SessionMutex.RLock()
	sess, exists := app.Sessions[sessionID]
	app.SessionMutex.RUnlock()
	if exists {
		app.SessionMutex.Lock()
		sess.LastAccessTime = now
		app.SessionMutex.Unlock()
		return sess
	}

	store := progress.NewStore(app.Store, progress.Key(sessionID), app.Log)
	store.Load(ctx)

	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	if sess, exists = app.Sessions[sessionID]; exists {
		sess.LastAccessTime = now
		return sess
	}
	sess = &Session{ID: sessionID, Progress: store, LastAccessTime: now}
	app.Sessions[sessionID] = sess
	logInfo("Loaded progress for session: %s", sessionID)
	return sess
}

// greeting returns the session's greeting overlay, showing it on the first
// home visit of a cached session.
func (app *App) greeting(sess *Session) *overlay.Overlay {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	if sess.Greeting == nil {
		id := sess.ID
		sess.Greeting = overlay.New(app.GreetingDelay, func() {
			app.Log.Debug("Greeting dismissed", "session_id", id)
		})
	}
	return sess.Greeting
}

// evictIdleSessions drops sessions idle longer than SessionTimeout. Their
// progress is already persisted.
func (app *App) evictIdleSessions(now time.Time) int {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	evicted := 0
	for id, sess := range app.Sessions {
		if now.Sub(sess.LastAccessTime) <= app.SessionTimeout {
			continue
		}
		if sess.Greeting != nil {
			sess.Greeting.Close()
		}
		delete(app.Sessions, id)
		evicted++
	}
	if evicted > 0 {
		logInfo("Evicted %d idle session%s", evicted, plural(evicted))
	}
	return evicted
}

// closeSessions tears down every cached session on shutdown.
func (app *App) closeSessions() {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	for id, sess := range app.Sessions {
		if sess.Greeting != nil {
			sess.Greeting.Close()
		}
		delete(app.Sessions, id)
	}
}
