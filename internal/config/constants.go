package config

import "time"

// Postgres pool limits
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

// DBPingTimeout bounds the startup and health-check pings.
const DBPingTimeout = 5 * time.Second

// SweepJobInterval is how often expired refresh tokens and password
// reset requests are purged.
const SweepJobInterval = 5 * time.Minute

// PasswordResetCooldown rejects a repeat reset request for the same
// account inside this window.
const PasswordResetCooldown = 5 * time.Minute

// PasswordResetTTL is how long a reset code stays redeemable. Older
// codes are refused and eventually swept.
const PasswordResetTTL = time.Hour

// SeatCountFreshness caps the age of a cached active-seat count before
// it is recomputed from the store.
const SeatCountFreshness = 15 * time.Second

// Per-IP request limits per minute on credential-guessing endpoints.
const (
	LoginRateLimitPerMin = 10
	ResetRateLimitPerMin = 5
)
