package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Outbound collaborator timeouts; no automatic retries on top of these.
const (
	CompletionTimeout = 30 * time.Second
	GatewayTimeout    = 15 * time.Second
	TranscribeTimeout = 45 * time.Second
)

// Debounce firing tolerance: a trigger whose scheduled_at is further than
// this in the future was re-armed by a later message and must not fire.
const TriggerTolerance = 500 * time.Millisecond

// How many trailing inbound messages are aggregated into one firing.
const DebounceAggregateLimit = 5

// Delivery pacing: inter-part delay is proportional to the previous part's
// length, clamped to [PacerMinDelay, PacerMaxDelay], plus random jitter.
const (
	PacerSingleMessageMax = 150
	PacerMergeBelow       = 250
	PacerSentenceSplitMin = 300
	PacerChunkTarget      = 280
	PacerMaxParts         = 5
	PacerDelayPerChar     = 25 * time.Millisecond
	PacerMinDelay         = 1 * time.Second
	PacerMaxDelay         = 4 * time.Second
	PacerMaxJitter        = 800 * time.Millisecond
)

// Reply generation loop budget
const GeneratorMaxIterations = 3

// Defaults applied when a tenant config leaves a field unset
const (
	DefaultBusinessHoursStart = "08:00"
	DefaultBusinessHoursEnd   = "18:00"
	DefaultMaxReplies         = 10
	DefaultReplyDelaySeconds  = 5
	DefaultSlotMinutes        = 30
	DefaultSlotCapacity       = 1
	DefaultReminderHours      = 2
)
