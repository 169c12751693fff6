package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"fluidez/internal/content"
	"fluidez/internal/kv"
	"fluidez/internal/logging"
	"fluidez/internal/progress"
	"fluidez/internal/srs"
	"fluidez/internal/streak"
	"fluidez/internal/touch"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// newTestApp builds an App over an in-memory store with a fixed clock and
// delights switched off.
func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	idx, err := content.Default()
	if err != nil {
		t.Fatalf("content.Default: %v", err)
	}
	catalog := touch.Default()
	store := kv.NewMemory()
	log := logging.Nop()

	app := &App{
		Config: Config{
			Port:           "8080",
			SessionTimeout: time.Hour,
			CookieMaxAge:   time.Hour,
			RateLimitRPS:   100,
			RateLimitBurst: 100,
			StoreDriver:    "memory",
			GreetingDelay:  time.Hour,
			SplashDelay:    2 * time.Second,
			SweepInterval:  time.Hour,
		},
		Log:        log,
		Store:      store,
		Content:    idx,
		Touch:      catalog,
		Delights:   touch.NewSampler(catalog, 0, nil),
		Profiles:   progress.NewProfiles(store, log),
		Streaks:    streak.NewTracker(store, log),
		Reviews:    srs.NewTracker(store, log),
		Sessions:   make(map[string]*Session),
		LimiterMap: make(map[string]*rate.Limiter),
		StartTime:  testNow,
		Now:        func() time.Time { return testNow },
	}
	t.Cleanup(app.closeSessions)
	return app
}

// client replays the session cookie it was handed on every request.
type client struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

func newClient(t *testing.T, app *App) *client {
	return &client{t: t, router: app.setupRouter("templates/*.html")}
}

func (c *client) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	c.t.Helper()
	req, _ := http.NewRequest(method, path, body)
	req.RemoteAddr = "192.0.2.1:4321"
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == SessionCookieName {
			c.cookie = ck
		}
	}
	return w
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do("GET", path, nil, "")
}

func (c *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	return c.do("POST", path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (c *client) sendJSON(method, path, body string) *httptest.ResponseRecorder {
	return c.do(method, path, strings.NewReader(body), "application/json")
}

func decodeRecord(t *testing.T, w *httptest.ResponseRecorder) progress.Record {
	t.Helper()
	var rec progress.Record
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("Failed to decode progress: %v (%s)", err, w.Body.String())
	}
	return rec
}

func TestSplashHandler_NewVisitor(t *testing.T) {
	c := newClient(t, newTestApp(t))
	w := c.get("/")
	if w.Code != http.StatusOK {
		t.Fatalf("GET / returned status %d, want 200", w.Code)
	}
	if c.cookie == nil {
		t.Fatal("Expected session_id cookie on first visit")
	}
	if !strings.Contains(w.Body.String(), "welcome") {
		t.Errorf("Splash should forward a new visitor to /welcome")
	}
}

func TestOnboardingFlow(t *testing.T) {
	c := newClient(t, newTestApp(t))
	c.get("/welcome")

	w := c.postForm("/dialect", url.Values{"dialect": {"klingon"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST /dialect with unknown dialect returned %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), ErrorNoDialect) {
		t.Errorf("Expected the dialect error message in the page")
	}

	w = c.postForm("/dialect", url.Values{"dialect": {progress.DialectLatAm}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("POST /dialect returned %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != RouteReady {
		t.Errorf("Location = %q, want %q", loc, RouteReady)
	}

	w = c.get("/")
	if !strings.Contains(w.Body.String(), "home") {
		t.Errorf("Splash should forward an onboarded learner to /home")
	}

	w = c.get("/dialect")
	if !strings.Contains(w.Body.String(), "is-selected") {
		t.Errorf("Dialect screen should preselect the stored choice")
	}
}

func TestHomeHandler(t *testing.T) {
	c := newClient(t, newTestApp(t))
	w := c.get("/home")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /home returned status %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"DAY 1 of 30", "¡Buenos días", "Ready for Day 1?", "cards due", "View All Days"} {
		if !strings.Contains(body, want) {
			t.Errorf("Home page missing %q", want)
		}
	}
}

func TestDismissGreeting(t *testing.T) {
	c := newClient(t, newTestApp(t))
	c.get("/home")

	req, _ := http.NewRequest("POST", "/greeting/dismiss", nil)
	req.AddCookie(c.cookie)
	req.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Errorf("HTMX dismiss returned %d %q, want 200 and empty body", w.Code, w.Body.String())
	}

	if strings.Contains(c.get("/home").Body.String(), `id="greeting"`) {
		t.Errorf("Greeting should stay hidden once dismissed")
	}

	w = c.postForm("/greeting/dismiss", nil)
	if w.Code != http.StatusSeeOther {
		t.Errorf("Plain dismiss returned %d, want 303", w.Code)
	}
}

func TestProgressAPI(t *testing.T) {
	c := newClient(t, newTestApp(t))

	rec := decodeRecord(t, c.get("/api/progress"))
	if rec != progress.Default() {
		t.Errorf("GET /api/progress = %+v, want defaults", rec)
	}

	w := c.sendJSON("PATCH", "/api/progress", `{"streak":4,"dayProgress":50}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PATCH /api/progress returned %d: %s", w.Code, w.Body.String())
	}
	rec = decodeRecord(t, w)
	if rec.Streak != 4 || rec.DayProgress != 50 || rec.CurrentDay != 1 {
		t.Errorf("PATCH merged wrongly: %+v", rec)
	}

	w = c.do("POST", "/api/progress/advance", nil, "")
	rec = decodeRecord(t, w)
	if rec.CurrentDay != 2 || rec.DayProgress != 0 || rec.Streak != 4 {
		t.Errorf("advance = %+v, want day 2 with progress reset", rec)
	}
}

func TestProgressAPI_Errors(t *testing.T) {
	c := newClient(t, newTestApp(t))

	cases := []struct {
		body string
		code string
	}{
		{`{"currentDay":31}`, CodeOutOfRange},
		{`{"dayProgress":-5}`, CodeOutOfRange},
		{`{"streak":`, CodeInvalidRequest},
		{`{"streak":"many"}`, CodeInvalidRequest},
	}
	for _, tc := range cases {
		w := c.sendJSON("PATCH", "/api/progress", tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("PATCH %s returned %d, want 400", tc.body, w.Code)
			continue
		}
		var resp map[string]string
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp["error"] != tc.code {
			t.Errorf("PATCH %s error = %q, want %q", tc.body, resp["error"], tc.code)
		}
	}

	if rec := decodeRecord(t, c.get("/api/progress")); rec != progress.Default() {
		t.Errorf("Rejected patches must not change progress, got %+v", rec)
	}
}

func TestFlashcardsAPI(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)

	var resp struct {
		Day   int                 `json:"day"`
		Cards []content.Flashcard `json:"cards"`
	}
	w := c.get("/api/flashcards?day=0")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Day != 0 || len(resp.Cards) != 0 {
		t.Errorf("day 0 should have no cards, got %d", len(resp.Cards))
	}

	w = c.get("/api/flashcards")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Day != 1 || len(resp.Cards) != len(app.Content.FlashcardsForDay(1)) {
		t.Errorf("default deck should follow the current day, got day %d with %d cards", resp.Day, len(resp.Cards))
	}

	if w := c.get("/api/flashcards?day=soon"); w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric day returned %d, want 400", w.Code)
	}
}

func TestDayScreens(t *testing.T) {
	c := newClient(t, newTestApp(t))

	if w := c.get("/day/1"); w.Code != http.StatusOK {
		t.Errorf("GET /day/1 returned %d, want 200", w.Code)
	}
	if w := c.get("/day/99"); w.Code != http.StatusNotFound {
		t.Errorf("GET /day/99 returned %d, want 404", w.Code)
	}
	w := c.get("/day/2")
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != RouteHome {
		t.Errorf("Locked day should redirect home, got %d %q", w.Code, w.Header().Get("Location"))
	}
	if w := c.get("/api/days/1"); w.Code != http.StatusOK {
		t.Errorf("GET /api/days/1 returned %d, want 200", w.Code)
	}
	if w := c.get("/api/days/0"); w.Code != http.StatusNotFound {
		t.Errorf("GET /api/days/0 returned %d, want 404", w.Code)
	}
	if w := c.get("/days"); w.Code != http.StatusOK {
		t.Errorf("GET /days returned %d, want 200", w.Code)
	}
}

func TestDayComplete(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	c.get("/home")

	w := c.postForm("/day/complete", url.Values{"day": {"1"}, "seconds": {"120"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("POST /day/complete returned %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/complete/day" {
		t.Errorf("Location = %q, want /complete/day", loc)
	}

	rec := decodeRecord(t, c.get("/api/progress"))
	want := progress.Default()
	want.CurrentDay = 2
	want.WordsLearned = len(app.Content.Day(1).Vocabulary)
	want.TimeSpent = 120
	want.CardsToReview = len(app.Content.FlashcardsForDay(2))
	if rec != want {
		t.Errorf("after completing day 1 progress = %+v, want %+v", rec, want)
	}

	var st struct {
		Streak streak.Data `json:"streak"`
	}
	_ = json.Unmarshal(c.get("/api/streak").Body.Bytes(), &st)
	if st.Streak.CurrentStreak != 1 || st.Streak.LastCompletedDate != "2026-03-14" {
		t.Errorf("streak after first completion = %+v", st.Streak)
	}

	if w := c.get("/day/2"); w.Code != http.StatusOK {
		t.Errorf("Day 2 should unlock after completing day 1, got %d", w.Code)
	}
	if w := c.postForm("/day/complete", url.Values{"day": {"3"}}); w.Code != http.StatusBadRequest {
		t.Errorf("Completing a locked day returned %d, want 400", w.Code)
	}
}

func rateCard(c *client, id string, q srs.Quality) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.postForm("/flashcards/rate", url.Values{"card": {id}, "q": {strconv.Itoa(int(q))}})
}

func TestFlashcardReview(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	cards := app.Content.FlashcardsForDay(1)

	w := c.get("/flashcards")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /flashcards returned %d, want 200", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, cards[0].Front) || !strings.Contains(body, "1 / 3") {
		t.Errorf("First due card should be shown")
	}
	body := c.get("/flashcards?flip=1").Body.String()
	for _, want := range []string{"Again", "Hard", "Good", "Easy", `name="q" value="1"`, `name="q" value="5"`, cards[0].ID} {
		if !strings.Contains(body, want) {
			t.Errorf("Flipped card missing %q", want)
		}
	}

	if w := rateCard(c, cards[0].ID, srs.Good); w.Code != http.StatusSeeOther || w.Header().Get("Location") != RouteFlashcards {
		t.Fatalf("rating returned %d %q, want 303 to /flashcards", w.Code, w.Header().Get("Location"))
	}
	// A repeated submit for the same card is ignored.
	rateCard(c, cards[0].ID, srs.Good)
	rateCard(c, cards[1].ID, srs.Again)

	if body := c.get("/flashcards").Body.String(); !strings.Contains(body, "1/2 correct") {
		t.Errorf("Running tally should read 1/2 correct")
	}

	// Client-side counts are not trusted.
	w = c.postForm("/flashcards/done", url.Values{"reviewed": {"3"}, "correct": {"3"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("POST /flashcards/done returned %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/complete/flashcards?correct=1&reviewed=2" {
		t.Errorf("Location = %q, want the server tally", loc)
	}
	if !strings.Contains(c.get(w.Header().Get("Location")).Body.String(), "1/2 correct") {
		t.Errorf("Review completion should show the score")
	}
	if rec := decodeRecord(t, c.get("/api/progress")); rec.CardsToReview != 1 {
		t.Errorf("cardsToReview = %d, want 1 card still due", rec.CardsToReview)
	}

	deck := app.Reviews.Load(context.Background(), c.cookie.Value)
	if it := deck[cards[1].ID]; it.Lapses != 1 || it.Interval != 1 {
		t.Errorf("Again should lapse the card, got %+v", it)
	}
	if it := deck[cards[0].ID]; it.Repetitions != 1 || !it.Due.Equal(testNow.AddDate(0, 0, 1)) {
		t.Errorf("Good should schedule tomorrow, got %+v", it)
	}
}

func TestFlashcardReview_FinishesOnLastCard(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	cards := app.Content.FlashcardsForDay(1)

	c.get("/flashcards")
	rateCard(c, cards[0].ID, srs.Easy)
	rateCard(c, cards[1].ID, srs.Hard)
	w := rateCard(c, cards[2].ID, srs.Good)
	if loc := w.Header().Get("Location"); loc != "/complete/flashcards?correct=2&reviewed=3" {
		t.Errorf("Location after last card = %q", loc)
	}
	if rec := decodeRecord(t, c.get("/api/progress")); rec.CardsToReview != 0 {
		t.Errorf("cardsToReview = %d, want 0", rec.CardsToReview)
	}

	body := c.get("/flashcards").Body.String()
	if !strings.Contains(body, "All caught up!") || !strings.Contains(body, "Practice Anyway") {
		t.Errorf("Nothing due should show the caught-up screen")
	}
	if body := c.get("/flashcards?practice=1").Body.String(); !strings.Contains(body, "1 / 3") {
		t.Errorf("Practice run should hold every unlocked card")
	}
	c.postForm("/flashcards/done", nil)

	var resp struct {
		Stats srs.Stats `json:"stats"`
		Due   int       `json:"due"`
	}
	_ = json.Unmarshal(c.get("/api/reviews").Body.Bytes(), &resp)
	if resp.Due != 0 || resp.Stats.Total != 3 {
		t.Errorf("reviews API = %+v", resp)
	}

	app.Now = func() time.Time { return testNow.AddDate(0, 0, 1) }
	c.get("/home")
	if rec := decodeRecord(t, c.get("/api/progress")); rec.CardsToReview != 3 {
		t.Errorf("Every card should be due a day later, got %d", rec.CardsToReview)
	}
}

func TestFlashcardReview_BadRating(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	c.get("/flashcards")
	id := app.Content.FlashcardsForDay(1)[0].ID

	for _, q := range []string{"", "nine", "6", "-1"} {
		w := c.postForm("/flashcards/rate", url.Values{"card": {id}, "q": {q}})
		if w.Code != http.StatusBadRequest {
			t.Errorf("rating %q returned %d, want 400", q, w.Code)
		}
	}
	if w := rateCard(c, "no-such-card", srs.Good); w.Code != http.StatusSeeOther {
		t.Errorf("Unknown card returned %d, want 303", w.Code)
	}
	if deck := app.Reviews.Load(context.Background(), c.cookie.Value); len(deck) != 0 {
		t.Errorf("Rejected ratings must not be stored, got %d items", len(deck))
	}
}

func TestDayComplete_ConcurrentSubmits(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	if w := c.sendJSON("PATCH", "/api/progress", `{"currentDay":5}`); w.Code != http.StatusOK {
		t.Fatalf("PATCH returned %d", w.Code)
	}
	cookie := c.cookie

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest("POST", "/day/complete", strings.NewReader("day=5&seconds=30"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.RemoteAddr = "192.0.2.1:4321"
			req.AddCookie(cookie)
			c.router.ServeHTTP(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	rec := decodeRecord(t, c.get("/api/progress"))
	if rec.CurrentDay != 6 {
		t.Errorf("currentDay = %d after a double submit, want 6", rec.CurrentDay)
	}
	if want := len(app.Content.Day(5).Vocabulary); rec.WordsLearned != want {
		t.Errorf("wordsLearned = %d, want %d", rec.WordsLearned, want)
	}
}

func TestAssessment(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)

	if w := c.get("/assessment/1"); w.Code != http.StatusOK {
		t.Fatalf("GET /assessment/1 returned %d, want 200", w.Code)
	}
	if w := c.get("/assessment/9"); w.Code != http.StatusNotFound {
		t.Errorf("GET /assessment/9 returned %d, want 404", w.Code)
	}
	if w := c.get("/api/assessments/1"); w.Code != http.StatusOK {
		t.Errorf("GET /api/assessments/1 returned %d, want 200", w.Code)
	}

	a := app.Content.Assessment(1)
	form := url.Values{}
	for i, q := range a.Questions {
		form.Set("q"+string(rune('0'+i)), q.Answer)
	}
	w := c.postForm("/assessment/1", form)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("POST /assessment/1 returned %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.Contains(loc, "passed=true") {
		t.Errorf("All-correct answers should pass, got %q", loc)
	}

	w = c.postForm("/assessment/1", url.Values{})
	if loc := w.Header().Get("Location"); !strings.Contains(loc, "score=0") || !strings.Contains(loc, "passed=false") {
		t.Errorf("Blank answers should fail with score 0, got %q", loc)
	}
}

func TestCompletionFor(t *testing.T) {
	q := func(vals map[string]string) func(string) string {
		return func(k string) string { return vals[k] }
	}
	cases := []struct {
		kind  string
		query map[string]string
		want  completion
	}{
		{CompleteModule, nil, completion{Emoji: "✨", Title: "Module Complete!"}},
		{"mystery", nil, completion{Emoji: "✨", Title: "Module Complete!"}},
		{CompleteDay, nil, completion{Emoji: "🏆", Title: "Day Complete!"}},
		{CompleteFlashcards, map[string]string{"correct": "8", "reviewed": "10"}, completion{Emoji: "🎯", Title: "Review Complete!", Stats: "8/10 correct"}},
		{CompleteAssessment, map[string]string{"score": "3", "total": "3", "passed": "true"}, completion{Emoji: "🏆", Title: "Assessment Passed!", Stats: "3/3 correct"}},
		{CompleteAssessment, map[string]string{"score": "1", "total": "3", "passed": "false"}, completion{Emoji: "📚", Title: "Keep Practicing!", Stats: "1/3 correct"}},
	}
	for _, tc := range cases {
		if got := completionFor(tc.kind, q(tc.query)); got != tc.want {
			t.Errorf("completionFor(%q) = %+v, want %+v", tc.kind, got, tc.want)
		}
	}
}

func TestCompleteHandler_UnknownKind(t *testing.T) {
	c := newClient(t, newTestApp(t))
	w := c.get("/complete/whatever")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Module Complete!") {
		t.Errorf("Unknown kind should fall back to module completion, got %d", w.Code)
	}
	if !strings.Contains(c.get("/complete/day?milestone=7").Body.String(), "7-day streak") {
		t.Errorf("Milestone should be celebrated on the completion screen")
	}
}

func TestGreetingAPI(t *testing.T) {
	c := newClient(t, newTestApp(t))
	cases := map[string]string{
		"/api/greeting":         "¡Buenos días",
		"/api/greeting?hour=15": "¡Buenas tardes",
		"/api/greeting?hour=22": "¡Buenas noches",
		"/api/greeting?hour=99": "¡Buenos días",
	}
	for path, want := range cases {
		var resp map[string]interface{}
		_ = json.Unmarshal(c.get(path).Body.Bytes(), &resp)
		if resp["greeting"] != want {
			t.Errorf("GET %s greeting = %v, want %q", path, resp["greeting"], want)
		}
		if resp["message"] != "Ready for Day 1?" {
			t.Errorf("GET %s message = %v", path, resp["message"])
		}
		if _, ok := resp["delight"]; ok {
			t.Errorf("Delights are disabled, got one for %s", path)
		}
	}
}

func TestSoundsAPI(t *testing.T) {
	c := newClient(t, newTestApp(t))
	var resp struct {
		Volume float64           `json:"volume"`
		Sounds map[string]string `json:"sounds"`
	}
	if err := json.Unmarshal(c.get("/api/sounds").Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Volume != 0.5 || len(resp.Sounds) != 6 {
		t.Errorf("sounds = %+v", resp)
	}
}

func TestHealthHandler_Fields(t *testing.T) {
	c := newClient(t, newTestApp(t))
	w := c.get("/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /healthz returned status %d, want 200", w.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal /healthz response: %v", err)
	}
	for _, field := range []string{"status", "env", "store", "days_loaded", "sessions", "uptime", "timestamp"} {
		if _, ok := resp[field]; !ok {
			t.Errorf("Expected '%s' field in /healthz response", field)
		}
	}
	if env := resp["env"]; env != "development" {
		t.Errorf("env = %v, want development", env)
	}
}

func TestCacheHeaders(t *testing.T) {
	c := newClient(t, newTestApp(t))
	if cc := c.get("/home").Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Errorf("Pages should not be cached, got %q", cc)
	}
}

// TestRateLimitMiddleware checks rate limiting blocks excessive requests
func TestRateLimitMiddleware(t *testing.T) {
	app := newTestApp(t)
	app.RateLimitRPS = 1
	app.RateLimitBurst = 10

	router := gin.New()
	router.Use(app.rateLimitMiddleware())
	router.GET("/limited", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req, _ := http.NewRequest("GET", "/limited", nil)
	req.RemoteAddr = "127.0.0.1:12345"

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("11th request: expected 429 Too Many Requests, got %d", w.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != CodeRateLimited {
		t.Errorf("429 body error = %q, want %q", resp["error"], CodeRateLimited)
	}
}

func TestEvictIdleSessions(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	sess := app.getSession(ctx, "11111111-1111-4111-8111-111111111111")
	app.greeting(sess)
	app.getSession(ctx, "22222222-2222-4222-8222-222222222222")

	if n := app.evictIdleSessions(testNow.Add(30 * time.Minute)); n != 0 {
		t.Errorf("evicted %d fresh sessions, want 0", n)
	}
	if n := app.evictIdleSessions(testNow.Add(2 * time.Hour)); n != 2 {
		t.Errorf("evicted %d idle sessions, want 2", n)
	}
	if sess.Greeting.Visible() {
		t.Errorf("Evicted session's greeting should be closed")
	}
	if len(app.Sessions) != 0 {
		t.Errorf("Sessions left after eviction: %d", len(app.Sessions))
	}
}

func TestSessionReloadsFromStore(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	id := "33333333-3333-4333-8333-333333333333"

	app.getSession(ctx, id).Progress.AdvanceDay(ctx)
	app.evictIdleSessions(testNow.Add(2 * time.Hour))

	if got := app.getSession(ctx, id).Progress.Current(ctx).CurrentDay; got != 2 {
		t.Errorf("reloaded currentDay = %d, want 2", got)
	}
}

func setupGzipTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(
		ginGzip.Gzip(ginGzip.DefaultCompression,
			ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif", ".mp3"}),
			ginGzip.WithExcludedPaths([]string{"/static/fonts"})),
	)
	router.GET("/static/test.js", func(c *gin.Context) {
		c.Header("Content-Type", "application/javascript")
		c.String(http.StatusOK, "var x = 1;")
	})
	router.GET("/static/test.mp3", func(c *gin.Context) {
		c.Header("Content-Type", "audio/mpeg")
		c.String(http.StatusOK, "MP3DATA")
	})
	router.GET("/static/fonts/font.woff2", func(c *gin.Context) {
		c.Header("Content-Type", "font/woff2")
		c.String(http.StatusOK, "FONTDATA")
	})
	return router
}

func isGzipped(w *httptest.ResponseRecorder) bool {
	return w.Header().Get("Content-Encoding") == "gzip"
}

func decompressGzip(data []byte) (string, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	return string(out), err
}

func TestGzipMiddleware(t *testing.T) {
	router := setupGzipTestRouter()
	cases := []struct {
		path    string
		gzipped bool
		body    string
	}{
		{"/static/test.js", true, "var x = 1;"},
		{"/static/test.mp3", false, "MP3DATA"},
		{"/static/fonts/font.woff2", false, "FONTDATA"},
	}
	for _, tc := range cases {
		req, _ := http.NewRequest("GET", tc.path, nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if isGzipped(w) != tc.gzipped {
			t.Errorf("%s: gzipped = %v, want %v", tc.path, isGzipped(w), tc.gzipped)
			continue
		}
		body := w.Body.String()
		if tc.gzipped {
			var err error
			if body, err = decompressGzip(w.Body.Bytes()); err != nil {
				t.Errorf("%s: decompress: %v", tc.path, err)
			}
		}
		if body != tc.body {
			t.Errorf("%s: body = %q, want %q", tc.path, body, tc.body)
		}
	}
}
