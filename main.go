package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"fluidez/internal/content"
	"fluidez/internal/kv"
	"fluidez/internal/logging"
	"fluidez/internal/progress"
	"fluidez/internal/scheduler"
	"fluidez/internal/srs"
	"fluidez/internal/streak"
	"fluidez/internal/touch"
	"fluidez/internal/ui"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()

	log, err := logging.New(cfg.envName())
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	appLog = log

	logInfo("Starting Fluidez in %s mode", cfg.envName())

	ctx := context.Background()
	app, err := newApp(ctx, cfg, log)
	if err != nil {
		logFatal("Failed to initialise: %v", err)
	}
	defer app.Store.Close()
	logInfo("Loaded %d lesson days, store driver %q", len(app.Content.Days()), cfg.StoreDriver)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	if !dirExists("templates") {
		logFatal("templates/ directory not found; run from the repository root")
	}
	router := app.setupRouter("templates/*.html")

	jobs := scheduler.New(log)
	app.scheduleHousekeeping(jobs)
	jobs.Start()
	defer jobs.Stop()

	startServer(router, cfg.Port)
	app.closeSessions()
}

// newApp wires storage, content and the personal-touch catalog.
func newApp(ctx context.Context, cfg Config, log *logging.Logger) (*App, error) {
	idx, err := content.Default()
	if err != nil {
		return nil, err
	}
	catalog, err := touch.LoadCatalog(cfg.TouchCatalog)
	if err != nil {
		return nil, err
	}
	store, err := kv.Open(ctx, kv.Config{
		Driver:    cfg.StoreDriver,
		Path:      cfg.StorePath,
		RedisAddr: cfg.RedisAddr,
		TTL:       cfg.StoreTTL,
	})
	if err != nil {
		return nil, err
	}
	return &App{
		Config:     cfg,
		Log:        log,
		Store:      store,
		Content:    idx,
		Touch:      catalog,
		Delights:   touch.NewSampler(catalog, cfg.DelightChance, nil),
		Profiles:   progress.NewProfiles(store, log),
		Streaks:    streak.NewTracker(store, log),
		Reviews:    srs.NewTracker(store, log),
		Sessions:   make(map[string]*Session),
		LimiterMap: make(map[string]*rate.Limiter),
		StartTime:  time.Now(),
		Now:        time.Now,
	}, nil
}

// setupRouter builds the gin engine with every screen and API route.
func (app *App) setupRouter(templateGlob string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware(), app.requestLogMiddleware())

	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif", ".mp3"}),
		ginGzip.WithExcludedPaths([]string{"/static/fonts"})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logWarn("Failed to set trusted proxies: %v", err)
	}
	router.Use(app.cacheHeadersMiddleware())

	funcMap := ui.FuncMap()
	funcMap["hasPrefix"] = strings.HasPrefix
	funcMap["add"] = func(a, b int) int { return a + b }
	router.SetFuncMap(funcMap)
	router.LoadHTMLGlob(templateGlob)
	router.Static("/static", "./static")

	limited := app.rateLimitMiddleware()

	router.GET(RouteSplash, app.splashHandler)
	router.GET(RouteWelcome, app.welcomeHandler)
	router.GET(RouteDialect, app.dialectHandler)
	router.POST(RouteDialect, limited, app.chooseDialectHandler)
	router.GET(RouteReady, app.readyHandler)
	router.GET(RouteHome, app.homeHandler)
	router.POST(RouteGreeting, app.dismissGreetingHandler)
	router.GET("/days", app.allDaysHandler)
	router.POST(RouteDayDone, limited, app.dayCompleteHandler)
	router.GET(RouteDay, app.dayHandler)
	router.GET(RouteFlashcards, app.flashcardsHandler)
	router.POST(RouteReviewRate, limited, app.rateCardHandler)
	router.POST(RouteReviewDone, limited, app.reviewDoneHandler)
	router.GET(RouteAssessment, app.assessmentHandler)
	router.POST(RouteAssessment, limited, app.submitAssessmentHandler)
	router.GET(RouteComplete, app.completeHandler)
	router.GET(RouteHealth, app.healthzHandler)

	api := router.Group("/api", app.corsMiddleware())
	api.GET("/progress", app.getProgressAPI)
	api.PATCH("/progress", limited, app.patchProgressAPI)
	api.POST("/progress/advance", limited, app.advanceDayAPI)
	api.GET("/days/:n", app.dayAPI)
	api.GET("/flashcards", app.flashcardsAPI)
	api.GET("/reviews", app.reviewsAPI)
	api.GET("/assessments/:week", app.assessmentAPI)
	api.GET("/greeting", app.greetingAPI)
	api.GET("/streak", app.streakAPI)
	api.GET("/sounds", soundsAPI)

	return router
}

// scheduleHousekeeping evicts idle sessions and sweeps expired store entries.
func (app *App) scheduleHousekeeping(s *scheduler.Scheduler) {
	if err := s.Every(app.SweepInterval, "evict-sessions", func(context.Context) error {
		app.evictIdleSessions(app.Now())
		return nil
	}); err != nil {
		logWarn("Session eviction not scheduled: %v", err)
	}

	sweeper, ok := app.Store.(kv.Sweeper)
	if !ok || app.StoreTTL <= 0 {
		return
	}
	if err := s.Every(app.SweepInterval, "sweep-store", func(ctx context.Context) error {
		n, err := sweeper.Sweep(ctx, app.StoreTTL)
		if n > 0 {
			logInfo("Swept %d expired record%s", n, plural(n))
		}
		return err
	}); err != nil {
		logWarn("Store sweep not scheduled: %v", err)
	}
}

func startServer(router *gin.Engine, port string) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		logInfo("Shutdown signal received, shutting down server gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	logInfo("Server starting on http://localhost:%s", port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	logInfo("Server shutdown complete")
}
