package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fluidez/internal/logging"
)

// Config is read once from the environment at startup.
type Config struct {
	Port           string
	IsProduction   bool
	SessionTimeout time.Duration
	CookieMaxAge   time.Duration
	StaticCacheAge time.Duration
	RateLimitRPS   int
	RateLimitBurst int
	StoreDriver    string
	StorePath      string
	StoreTTL       time.Duration
	RedisAddr      string
	DelightChance  float64
	GreetingDelay  time.Duration
	SplashDelay    time.Duration
	SweepInterval  time.Duration
	CORSOrigins    []string
	TouchCatalog   string
}

// loadConfig reads every setting, falling back to defaults on bad input.
func loadConfig() Config {
	return Config{
		Port:           getEnvString("PORT", "8080"),
		IsProduction:   os.Getenv("GIN_MODE") == "release" || os.Getenv("ENV") == "production",
		SessionTimeout: getEnvDuration("SESSION_TIMEOUT", 2*time.Hour),
		CookieMaxAge:   getEnvDuration("COOKIE_MAX_AGE", 30*24*time.Hour),
		StaticCacheAge: getEnvDuration("STATIC_CACHE_AGE", 5*time.Minute),
		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		StoreDriver:    getEnvString("STORE_DRIVER", "file"),
		StorePath:      getEnvString("STORE_PATH", "data/store"),
		StoreTTL:       getEnvDuration("STORE_TTL", 30*24*time.Hour),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		DelightChance:  getEnvFloat("DELIGHT_CHANCE", 0.1),
		GreetingDelay:  getEnvDuration("GREETING_DELAY", 5*time.Second),
		SplashDelay:    getEnvDuration("SPLASH_DELAY", 2*time.Second),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", time.Hour),
		CORSOrigins:    splitList(os.Getenv("CORS_ORIGINS")),
		TouchCatalog:   os.Getenv("TOUCH_CATALOG"),
	}
}

// envName returns the human-readable mode.
func (c Config) envName() string {
	return map[bool]string{true: "production", false: "development"}[c.IsProduction]
}

// dirExists returns true if the given path exists and is a directory.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false
		}
		logWarn("Error checking directory existence: %v", err)
		return false
	}
	return info.IsDir()
}

// formatUptime returns a human-readable string for a duration.
func formatUptime(d time.Duration) string {
	seconds := int(d.Seconds()) % 60
	minutes := int(d.Minutes()) % 60
	hours := int(d.Hours())
	switch {
	case hours > 0:
		return fmt.Sprintf("%d hour%s, %d minute%s, %d second%s",
			hours, plural(hours),
			minutes, plural(minutes),
			seconds, plural(seconds))
	case minutes > 0:
		return fmt.Sprintf("%d minute%s, %d second%s",
			minutes, plural(minutes),
			seconds, plural(seconds))
	default:
		return fmt.Sprintf("%d second%s", seconds, plural(seconds))
	}
}

// plural returns "s" if n != 1, otherwise "".
func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func getEnvString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// getEnvDuration reads a time.Duration from the environment or returns a fallback.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		logWarn("Invalid duration for %s: %v, using default %v", key, err, fallback)
		return fallback
	}
	return d
}

// getEnvInt reads an int from the environment or returns a fallback.
func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		logWarn("Invalid int for %s: %v, using default %d", key, err, fallback)
		return fallback
	}
	return i
}

// getEnvFloat reads a float64 from the environment or returns a fallback.
func getEnvFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		logWarn("Invalid float for %s: %v, using default %v", key, err, fallback)
		return fallback
	}
	return f
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// appLog backs the printf-style helpers below. main replaces it once the
// mode is known.
var appLog = logging.Nop()

// logInfo logs an info-level message.
func logInfo(format string, v ...any) {
	appLog.SugaredLogger.Infof(format, v...)
}

// logWarn logs a warning-level message.
func logWarn(format string, v ...any) {
	appLog.SugaredLogger.Warnf(format, v...)
}

// logFatal logs a fatal error and exits.
func logFatal(format string, v ...any) {
	appLog.SugaredLogger.Fatalf(format, v...)
}
