package config

import "time"

const (
	// Daily message caps per account class
	MaxMessagesPerDayGuest   = 20
	MaxMessagesPerDayRegular = 100

	// Trailing window for the daily cap
	RateLimitWindow = 24 * time.Hour

	// Model calls per turn
	MaxSteps = 5

	// Delay between smoothed chunks
	SmoothDelay = 10 * time.Millisecond

	// Catalog HTTP timeout
	RequestTimeout = 90 * time.Second

	// Model cache duration
	ModelCacheDuration = 1 * time.Hour

	// Auxiliary model calls
	TitleTimeout     = 10 * time.Second
	TitleMaxLength   = 80
	DefaultChatTitle = "New Chat"

	// Best-effort usage write
	UsageWriteTimeout = 5 * time.Second

	// Stream replay retention
	ReplayTTL = 24 * time.Hour

	// History pagination
	HistoryPageSize    = 10
	HistoryMaxPageSize = 100

	// Tool limits
	ToolHTTPTimeout    = 15 * time.Second
	WebPageMaxChars    = 8000
	WebPageMaxBodySize = 2 << 20

	// Guest sign-ins per client per window
	GuestSignInLimit  = 10
	GuestSignInWindow = time.Minute

	// Cookie carrying the session token
	SessionCookie = "session_token"

	// HTTP server shutdown grace
	ShutdownTimeout = 15 * time.Second
)

// Entitlements are the per-account-class limits.
type Entitlements struct {
	MaxMessagesPerDay     int
	AvailableChatModelIDs []string
}

// ActiveTools are offered to models that take tools, in this order.
var ActiveTools = []string{"getWeather", "readWebPage", "createDocument", "updateDocument", "requestSuggestions"}

// EntitlementsByUserType is keyed by domain.UserType values.
var EntitlementsByUserType = map[string]Entitlements{
	"guest": {
		MaxMessagesPerDay:     MaxMessagesPerDayGuest,
		AvailableChatModelIDs: []string{"chat-model", "chat-model-reasoning"},
	},
	"regular": {
		MaxMessagesPerDay:     MaxMessagesPerDayRegular,
		AvailableChatModelIDs: []string{"chat-model", "chat-model-reasoning"},
	},
}
