package config

import "time"

// RateLimitConfig configures the Redis token bucket placed in front of the
// login and OTP endpoints.  Those routes are anonymous, so the default key
// strategy buckets by client IP and route.
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"RATE_LIMIT_ENABLED"`
	Capacity       int           `mapstructure:"RATE_LIMIT_CAPACITY"`
	RefillTokens   int           `mapstructure:"RATE_LIMIT_REFILL_TOKENS"`
	RefillInterval time.Duration `mapstructure:"RATE_LIMIT_REFILL_INTERVAL"`
	TTL            time.Duration `mapstructure:"RATE_LIMIT_TTL"`
	KeyStrategy    string        `mapstructure:"RATE_LIMIT_KEY_STRATEGY"`
	Prefix         string        `mapstructure:"RATE_LIMIT_PREFIX"`
	Debug          bool          `mapstructure:"RATE_LIMIT_DEBUG"`

	// Shorthands: BURST overrides Capacity, REFILL_EVERY means one token
	// per interval.
	Burst       int           `mapstructure:"RATE_LIMIT_BURST"`
	RefillEvery time.Duration `mapstructure:"RATE_LIMIT_REFILL_EVERY"`
}

var rateLimitDefaults = map[string]interface{}{
	"RATE_LIMIT_ENABLED":         true,
	"RATE_LIMIT_CAPACITY":        10,
	"RATE_LIMIT_REFILL_TOKENS":   1,
	"RATE_LIMIT_REFILL_INTERVAL": "6s",
	"RATE_LIMIT_TTL":             "10m",
	"RATE_LIMIT_KEY_STRATEGY":    "ip_route",
	"RATE_LIMIT_PREFIX":          "rl",
	"RATE_LIMIT_DEBUG":           false,
	"RATE_LIMIT_BURST":           0,
	"RATE_LIMIT_REFILL_EVERY":    "0s",
}

// normalize applies the shorthands and clamps values the Lua script
// cannot work with.
func (c *RateLimitConfig) normalize() {
	if c.Burst > 0 {
		c.Capacity = c.Burst
	}
	if c.RefillEvery > 0 {
		c.RefillTokens = 1
		c.RefillInterval = c.RefillEvery
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
}
