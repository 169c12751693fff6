package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"fluidez/internal/content"
	"fluidez/internal/media"
	"fluidez/internal/progress"
	"fluidez/internal/streak"
)

// splashHandler shows the logo, then forwards to welcome or home.
func (app *App) splashHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	prof := app.Profiles.Load(c.Request.Context(), sessionID)

	next := RouteWelcome
	if prof.Onboarded {
		next = RouteHome
	}
	c.HTML(http.StatusOK, "splash.html", gin.H{
		"title":        "Fluidez",
		"next":         next,
		"delaySeconds": max(1, int(app.SplashDelay.Round(time.Second).Seconds())),
	})
}

func (app *App) welcomeHandler(c *gin.Context) {
	app.getOrCreateSession(c)
	c.HTML(http.StatusOK, "welcome.html", gin.H{"title": "Welcome"})
}

type dialectOption struct {
	ID    string
	Title string
	Desc  string
}

var dialectOptions = []dialectOption{
	{progress.DialectLatAm, "Latin American Spanish", "Mexico, Central & South America"},
	{progress.DialectSpain, "European Spanish", "Spain (distinción, vosotros)"},
}

// dialectHandler renders the dialect picker. Continue stays disabled until a
// choice is made, either via ?dialect= or a stored profile.
func (app *App) dialectHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	selected := c.Query("dialect")
	if !progress.ValidDialect(selected) {
		selected = app.Profiles.Load(c.Request.Context(), sessionID).Dialect
	}
	app.renderDialect(c, http.StatusOK, selected, "")
}

func (app *App) renderDialect(c *gin.Context, status int, selected, errMsg string) {
	c.HTML(status, "dialect.html", gin.H{
		"title":    "Which Spanish?",
		"options":  dialectOptions,
		"selected": selected,
		"error":    errMsg,
	})
}

// chooseDialectHandler stores the dialect and finishes onboarding.
func (app *App) chooseDialectHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	dialect := c.PostForm("dialect")
	if !progress.ValidDialect(dialect) {
		app.renderDialect(c, http.StatusBadRequest, "", ErrorNoDialect)
		return
	}
	app.Profiles.Save(ctx, sessionID, progress.Profile{Dialect: dialect, Onboarded: true})
	logInfo("Session %s chose dialect %s", sessionID, dialect)
	c.Redirect(http.StatusSeeOther, RouteReady)
}

func (app *App) readyHandler(c *gin.Context) {
	app.getOrCreateSession(c)
	c.HTML(http.StatusOK, "ready.html", gin.H{"title": "You're All Set!"})
}

// homeHandler renders the dashboard with greeting, streak and today's lesson.
func (app *App) homeHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	sess := app.getSession(ctx, sessionID)
	app.syncCardsDue(ctx, sessionID, sess)
	rec := sess.Progress.Current(ctx)
	now := app.Now()

	view := homeView{
		Record:       rec,
		Profile:      app.Profiles.Load(ctx, sessionID),
		Today:        app.Content.Day(rec.CurrentDay),
		Greeting:     app.Touch.Greeting(now.Hour()),
		Message:      app.Touch.Message(rec.Streak, rec.CurrentDay),
		ShowGreeting: app.greeting(sess).Visible(),
		Flame:        streak.FlameIntensity(rec.Streak),
		Streak:       app.Streaks.Load(ctx, sessionID),
		NextMile:     streak.NextMilestone(rec.Streak),
		MileProgress: float64(streak.MilestoneProgress(rec.Streak)),
	}
	if d, ok := app.Delights.Sample(); ok {
		view.Delight = &d
	}

	c.HTML(http.StatusOK, "home.html", gin.H{
		"title":         "Fluidez",
		"view":          view,
		"coursePercent": float64(rec.CurrentDay) / float64(progress.MaxDay) * 100,
		"timeMinutes":   rec.TimeSpent / 60,
		"greetingMs":    app.GreetingDelay.Milliseconds(),
		"delightMs":     DelightShowMs,
	})
}

// dismissGreetingHandler hides the greeting overlay early.
func (app *App) dismissGreetingHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sess := app.getSession(ctx, app.getOrCreateSession(c))
	app.greeting(sess).Dismiss()
	if c.GetHeader("HX-Request") == "true" {
		c.String(http.StatusOK, "")
		return
	}
	c.Redirect(http.StatusSeeOther, RouteHome)
}

// allDaysHandler shows the course grid; days past the current one are locked.
func (app *App) allDaysHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	rec := app.getSession(ctx, sessionID).Progress.Current(ctx)
	st := app.Streaks.Load(ctx, sessionID)

	c.HTML(http.StatusOK, "days.html", gin.H{
		"title":     "All 30 Days",
		"weeks":     content.Weeks(),
		"current":   rec.CurrentDay,
		"completed": lo.SliceToMap(st.CompletedDays, func(d int) (int, bool) { return d, true }),
	})
}

func (app *App) dayHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	n, err := strconv.Atoi(c.Param("n"))
	day := app.Content.Day(n)
	if err != nil || day == nil {
		app.renderError(c, http.StatusNotFound, ErrorUnknownDay)
		return
	}
	rec := app.getSession(ctx, sessionID).Progress.Current(ctx)
	if n > rec.CurrentDay {
		c.Redirect(http.StatusSeeOther, RouteHome)
		return
	}
	c.HTML(http.StatusOK, "day.html", gin.H{
		"title":    fmt.Sprintf("Day %d", n),
		"day":      day,
		"lang":     app.Profiles.Load(ctx, sessionID).SpeechLang(),
		"isToday":  n == rec.CurrentDay,
		"progress": rec.DayProgress,
	})
}

// dayCompleteHandler records the streak, credits the day's vocabulary and
// moves the learner on when they finished the current day.
func (app *App) dayCompleteHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	sess := app.getSession(ctx, sessionID)

	n, err := strconv.Atoi(c.PostForm("day"))
	day := app.Content.Day(n)
	if err != nil || day == nil {
		app.renderError(c, http.StatusNotFound, ErrorUnknownDay)
		return
	}
	if n > sess.Progress.Current(ctx).CurrentDay {
		app.renderError(c, http.StatusBadRequest, ErrorUnknownDay)
		return
	}

	res := app.Streaks.CompleteDay(ctx, sessionID, n, app.Now())
	done := progress.Completion{Words: len(day.Vocabulary)}
	if !res.AlreadyCompleted {
		done.Streak = progress.Int(res.CurrentStreak)
	}
	if secs, err := strconv.Atoi(c.PostForm("seconds")); err == nil && secs > 0 {
		done.Seconds = secs
	}
	rec, advanced, err := sess.Progress.CompleteDay(ctx, n, done)
	if err != nil {
		logWarn("Session %s day %d completion rejected: %v", sessionID, n, err)
		app.renderError(c, http.StatusBadRequest, ErrorUnknownDay)
		return
	}
	if advanced {
		app.syncCardsDue(ctx, sessionID, sess)
	}
	logInfo("Session %s completed day %d (streak %d, now on day %d)", sessionID, n, res.CurrentStreak, rec.CurrentDay)

	target := "/complete/" + CompleteDay
	if res.Milestone > 0 {
		target += "?milestone=" + strconv.Itoa(res.Milestone)
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (app *App) assessmentHandler(c *gin.Context) {
	week, err := strconv.Atoi(c.Param("week"))
	a := app.Content.Assessment(week)
	if err != nil || a == nil {
		app.renderError(c, http.StatusNotFound, ErrorUnknownWeek)
		return
	}
	app.getOrCreateSession(c)
	c.HTML(http.StatusOK, "assessment.html", gin.H{
		"title":      a.Title,
		"assessment": a,
	})
}

// submitAssessmentHandler scores answers posted as q0..qN.
func (app *App) submitAssessmentHandler(c *gin.Context) {
	week, err := strconv.Atoi(c.Param("week"))
	a := app.Content.Assessment(week)
	if err != nil || a == nil {
		app.renderError(c, http.StatusNotFound, ErrorUnknownWeek)
		return
	}
	sessionID := app.getOrCreateSession(c)
	answers := lo.Times(len(a.Questions), func(i int) string {
		return c.PostForm("q" + strconv.Itoa(i))
	})
	pct, passed := a.Score(answers)
	logInfo("Session %s scored %d%% on week %d", sessionID, pct, week)
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/complete/%s?score=%d&total=%d&passed=%t",
		CompleteAssessment, a.Correct(answers), len(a.Questions), passed))
}

type completion struct {
	Emoji string
	Title string
	Stats string
}

// completionFor builds the completion screen. Unknown kinds fall back to module.
func completionFor(kind string, q func(string) string) completion {
	switch kind {
	case CompleteDay:
		return completion{Emoji: "🏆", Title: "Day Complete!"}
	case CompleteFlashcards:
		cmp := completion{Emoji: "🎯", Title: "Review Complete!"}
		if q("reviewed") != "" {
			cmp.Stats = q("correct") + "/" + q("reviewed") + " correct"
		}
		return cmp
	case CompleteAssessment:
		cmp := completion{Emoji: "📚", Title: "Keep Practicing!"}
		if q("passed") == "true" {
			cmp = completion{Emoji: "🏆", Title: "Assessment Passed!"}
		}
		if q("total") != "" {
			cmp.Stats = q("score") + "/" + q("total") + " correct"
		}
		return cmp
	default:
		return completion{Emoji: "✨", Title: "Module Complete!"}
	}
}

func (app *App) completeHandler(c *gin.Context) {
	app.getOrCreateSession(c)
	cmp := completionFor(c.Param("kind"), c.Query)
	milestone, _ := strconv.Atoi(c.Query("milestone"))
	c.HTML(http.StatusOK, "complete.html", gin.H{
		"title":     cmp.Title,
		"done":      cmp,
		"milestone": milestone,
		"flame":     streak.FlameIntensity(milestone),
	})
}

func (app *App) renderError(c *gin.Context, status int, msg string) {
	c.HTML(status, "error.html", gin.H{"title": "Oops", "message": msg, "status": status})
}

// healthzHandler returns a JSON health check with server stats.
func (app *App) healthzHandler(c *gin.Context) {
	app.SessionMutex.RLock()
	sessions := len(app.Sessions)
	app.SessionMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"env":         app.envName(),
		"store":       app.StoreDriver,
		"days_loaded": len(app.Content.Days()),
		"sessions":    sessions,
		"uptime":      formatUptime(time.Since(app.StartTime)),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// respondError writes err as JSON. Anything that is not an apiError is a 500.
func respondError(c *gin.Context, err error) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		apiErr = newAPIError(http.StatusInternalServerError, "internal_error", err)
	}
	c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr.Code, "message": apiErr.Error()})
}

func (app *App) getProgressAPI(c *gin.Context) {
	ctx := c.Request.Context()
	sess := app.getSession(ctx, app.getOrCreateSession(c))
	c.JSON(http.StatusOK, sess.Progress.Current(ctx))
}

// patchProgressAPI merges the posted fields; absent fields are left alone.
func (app *App) patchProgressAPI(c *gin.Context) {
	ctx := c.Request.Context()
	sess := app.getSession(ctx, app.getOrCreateSession(c))

	var p progress.Partial
	if err := c.ShouldBindJSON(&p); err != nil {
		respondError(c, newAPIError(http.StatusBadRequest, CodeInvalidRequest, err))
		return
	}
	rec, err := sess.Progress.Update(ctx, p)
	if errors.Is(err, progress.ErrOutOfRange) {
		respondError(c, newAPIError(http.StatusBadRequest, CodeOutOfRange, err))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (app *App) advanceDayAPI(c *gin.Context) {
	ctx := c.Request.Context()
	sess := app.getSession(ctx, app.getOrCreateSession(c))
	c.JSON(http.StatusOK, sess.Progress.AdvanceDay(ctx))
}

func (app *App) dayAPI(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	day := app.Content.Day(n)
	if err != nil || day == nil {
		respondError(c, newAPIError(http.StatusNotFound, CodeNotFound, errors.New(ErrorUnknownDay)))
		return
	}
	c.JSON(http.StatusOK, day)
}

// flashcardsAPI defaults to the learner's current day when ?day is absent.
func (app *App) flashcardsAPI(c *gin.Context) {
	ctx := c.Request.Context()
	var day int
	if raw := c.Query("day"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, newAPIError(http.StatusBadRequest, CodeInvalidRequest, err))
			return
		}
		day = d
	} else {
		day = app.getSession(ctx, app.getOrCreateSession(c)).Progress.Current(ctx).CurrentDay
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "cards": app.Content.FlashcardsForDay(day)})
}

func (app *App) assessmentAPI(c *gin.Context) {
	week, err := strconv.Atoi(c.Param("week"))
	a := app.Content.Assessment(week)
	if err != nil || a == nil {
		respondError(c, newAPIError(http.StatusNotFound, CodeNotFound, errors.New(ErrorUnknownWeek)))
		return
	}
	c.JSON(http.StatusOK, a)
}

// greetingAPI returns the greeting, status line and maybe a delight.
func (app *App) greetingAPI(c *gin.Context) {
	ctx := c.Request.Context()
	rec := app.getSession(ctx, app.getOrCreateSession(c)).Progress.Current(ctx)
	hour := app.Now().Hour()
	if raw := c.Query("hour"); raw != "" {
		if h, err := strconv.Atoi(raw); err == nil && h >= 0 && h < 24 {
			hour = h
		}
	}
	resp := gin.H{
		"greeting": app.Touch.Greeting(hour),
		"message":  app.Touch.Message(rec.Streak, rec.CurrentDay),
		"flame":    streak.FlameIntensity(rec.Streak),
	}
	if d, ok := app.Delights.Sample(); ok {
		resp["delight"] = d
	}
	c.JSON(http.StatusOK, resp)
}

func (app *App) streakAPI(c *gin.Context) {
	ctx := c.Request.Context()
	st := app.Streaks.Load(ctx, app.getOrCreateSession(c))
	c.JSON(http.StatusOK, gin.H{
		"streak":        st,
		"flame":         streak.FlameIntensity(st.CurrentStreak),
		"nextMilestone": streak.NextMilestone(st.CurrentStreak),
	})
}

func soundsAPI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"volume": media.DefaultVolume, "sounds": media.SoundURLs()})
}
