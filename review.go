package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"fluidez/internal/content"
	"fluidez/internal/srs"
	"fluidez/internal/ui"
)

// practiceSize is how many unlocked cards a practice run holds when nothing
// is due.
const practiceSize = 10

// reviewSession is a flashcard run in progress. The tally is kept here so
// the score never comes from the form.
type reviewSession struct {
	Cards    []content.Flashcard
	Index    int
	Reviewed int
	Correct  int
}

func (r reviewSession) current() (content.Flashcard, bool) {
	if r.Index < 0 || r.Index >= len(r.Cards) {
		return content.Flashcard{}, false
	}
	return r.Cards[r.Index], true
}

func (r reviewSession) finished() bool {
	return r.Index >= len(r.Cards)
}

type rating struct {
	Label   string
	Emoji   string
	Quality srs.Quality
	Variant string
}

var ratings = []rating{
	{"Again", "😓", srs.Again, ui.Warning},
	{"Hard", "🤔", srs.Hard, ui.Secondary},
	{"Good", "😊", srs.Good, ui.Primary},
	{"Easy", "🎯", srs.Easy, ui.Success},
}

// review returns the active run, starting one from start when there is none.
// An empty queue leaves no run behind.
func (s *Session) review(start func() []content.Flashcard) reviewSession {
	s.reviewMu.Lock()
	defer s.reviewMu.Unlock()
	if s.Review == nil {
		cards := start()
		if len(cards) == 0 {
			return reviewSession{}
		}
		s.Review = &reviewSession{Cards: cards}
	}
	return *s.Review
}

// rateCard scores the current card when id names it; a stale or repeated
// submit reports false and changes nothing. save runs under the run's lock.
func (s *Session) rateCard(id string, q srs.Quality, save func()) (reviewSession, bool) {
	s.reviewMu.Lock()
	defer s.reviewMu.Unlock()

	rv := s.Review
	if rv == nil {
		return reviewSession{}, false
	}
	card, ok := rv.current()
	if !ok || card.ID != id {
		return *rv, false
	}
	save()
	rv.Index++
	rv.Reviewed++
	if q.Passed() {
		rv.Correct++
	}
	out := *rv
	if out.finished() {
		s.Review = nil
	}
	return out, true
}

// endReview drops the active run and returns its tally.
func (s *Session) endReview() reviewSession {
	s.reviewMu.Lock()
	defer s.reviewMu.Unlock()
	var out reviewSession
	if s.Review != nil {
		out = *s.Review
	}
	s.Review = nil
	return out
}

// dueCards lists the unlocked cards due for review, in course order.
func (app *App) dueCards(ctx context.Context, sessionID string, day int) []content.Flashcard {
	deck := app.Reviews.Load(ctx, sessionID)
	now := app.Now()
	return lo.Filter(app.Content.FlashcardsForDay(day), func(f content.Flashcard, _ int) bool {
		return deck.IsDue(f.ID, now)
	})
}

// reviewQueue picks the cards for a new run: due cards up to the session
// size, or the first unlocked cards when practicing with nothing due.
func (app *App) reviewQueue(ctx context.Context, sessionID string, day int, practice bool) []content.Flashcard {
	due := app.dueCards(ctx, sessionID, day)
	if len(due) == 0 && practice {
		all := app.Content.FlashcardsForDay(day)
		return all[:min(len(all), practiceSize)]
	}
	return due[:min(len(due), srs.SessionSize)]
}

// syncCardsDue stores the current due count as cardsToReview.
func (app *App) syncCardsDue(ctx context.Context, sessionID string, sess *Session) int {
	rec := sess.Progress.Current(ctx)
	n := len(app.dueCards(ctx, sessionID, rec.CurrentDay))
	return sess.Progress.SetCardsToReview(ctx, n).CardsToReview
}

// flashcardsHandler shows the current card of the review run, flipped on
// ?flip=1. With nothing due it offers a practice run.
func (app *App) flashcardsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	sess := app.getSession(ctx, sessionID)
	day := sess.Progress.Current(ctx).CurrentDay
	practice := c.Query("practice") == "1"

	run := sess.review(func() []content.Flashcard {
		return app.reviewQueue(ctx, sessionID, day, practice)
	})
	data := gin.H{
		"title":       "Flashcards",
		"total":       len(run.Cards),
		"index":       run.Index,
		"reviewed":    run.Reviewed,
		"correct":     run.Correct,
		"flipped":     c.Query("flip") == "1",
		"lang":        app.Profiles.Load(ctx, sessionID).SpeechLang(),
		"ratings":     ratings,
		"canPractice": len(app.Content.FlashcardsForDay(day)) > 0,
	}
	if card, ok := run.current(); ok {
		data["card"] = card
	}
	c.HTML(http.StatusOK, "flashcards.html", data)
}

// rateCardHandler schedules the rated card and moves the run on. Rating the
// last card finishes the run.
func (app *App) rateCardHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	sess := app.getSession(ctx, sessionID)

	n, err := strconv.Atoi(c.PostForm("q"))
	q := srs.Quality(n)
	if err != nil || !q.Valid() {
		app.renderError(c, http.StatusBadRequest, ErrorBadRating)
		return
	}
	id := c.PostForm("card")
	now := app.Now()

	run, ok := sess.rateCard(id, q, func() {
		app.Reviews.Review(ctx, sessionID, id, q, now)
	})
	if !ok {
		app.Log.Debug("Ignoring stale rating", "session_id", sessionID, "card", id)
		c.Redirect(http.StatusSeeOther, RouteFlashcards)
		return
	}
	if run.finished() {
		app.finishReview(c, sessionID, sess, run)
		return
	}
	c.Redirect(http.StatusSeeOther, RouteFlashcards)
}

// reviewDoneHandler ends the run early with the cards rated so far.
func (app *App) reviewDoneHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	sess := app.getSession(ctx, sessionID)
	app.finishReview(c, sessionID, sess, sess.endReview())
}

func (app *App) finishReview(c *gin.Context, sessionID string, sess *Session, run reviewSession) {
	due := app.syncCardsDue(c.Request.Context(), sessionID, sess)
	logInfo("Session %s reviewed %d card%s, %d correct, %d still due",
		sessionID, run.Reviewed, plural(run.Reviewed), run.Correct, due)
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/complete/%s?correct=%d&reviewed=%d",
		CompleteFlashcards, run.Correct, run.Reviewed))
}

// reviewsAPI reports deck statistics and the due count for the current day.
func (app *App) reviewsAPI(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	sess := app.getSession(ctx, sessionID)
	day := sess.Progress.Current(ctx).CurrentDay
	c.JSON(http.StatusOK, gin.H{
		"stats": app.Reviews.Load(ctx, sessionID).Stats(app.Now()),
		"due":   len(app.dueCards(ctx, sessionID, day)),
	})
}
