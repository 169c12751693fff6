package main

// Session configuration constants
const (
	SessionCookieName = "session_id"
)

// Route constants
const (
	RouteSplash     = "/"
	RouteWelcome    = "/welcome"
	RouteDialect    = "/dialect"
	RouteReady      = "/ready"
	RouteHome       = "/home"
	RouteDay        = "/day/:n"
	RouteDayDone    = "/day/complete"
	RouteFlashcards = "/flashcards"
	RouteReviewRate = "/flashcards/rate"
	RouteReviewDone = "/flashcards/done"
	RouteAssessment = "/assessment/:week"
	RouteComplete   = "/complete/:kind"
	RouteGreeting   = "/greeting/dismiss"
	RouteHealth     = "/healthz"
)

// Completion screen kinds
const (
	CompleteModule     = "module"
	CompleteDay        = "day"
	CompleteFlashcards = "flashcards"
	CompleteAssessment = "assessment"
)

// API error codes
const (
	CodeInvalidRequest = "invalid_request"
	CodeOutOfRange     = "out_of_range"
	CodeNotFound       = "not_found"
	CodeRateLimited    = "rate_limited"
)

// Error message constants
const (
	ErrorNoDialect   = "Pick a dialect to continue."
	ErrorUnknownDay  = "That day is not available yet."
	ErrorUnknownWeek = "No assessment for that week."
	ErrorTooManyReqs = "Too many requests. Please slow down."
	ErrorBadRating   = "Pick a rating for that card."
)

// DelightShowMs is how long a delight popup stays on screen.
const DelightShowMs = 5000

// Context key constants
const (
	requestIDKey contextKey = "request_id"
)
