package session

import (
	"time"

	"github.com/danmuck/entmux/internal/protocol/frame"
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines transport/session defaults.
type Config struct {
	ConnectTimeout time.Duration
	// ReadTimeout bounds the wait for the next inbound frame; zero disables it.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// SendTimeout bounds how long Send waits for outbox space.
	SendTimeout     time.Duration
	OutboxDepth     int
	MaxDialAttempts int
	Limits          frame.Limits
	Backoff         BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:  5 * time.Second,
		ReadTimeout:     0,
		WriteTimeout:    10 * time.Second,
		SendTimeout:     250 * time.Millisecond,
		OutboxDepth:     256,
		MaxDialAttempts: 8,
		Limits:          frame.DefaultLimits(),
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills unset fields from DefaultConfig. ReadTimeout is left
// alone since zero is meaningful.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = def.SendTimeout
	}
	if c.OutboxDepth <= 0 {
		c.OutboxDepth = def.OutboxDepth
	}
	if c.Limits.MaxFrameBytes == 0 {
		c.Limits = def.Limits
	}
	if c.Backoff.InitialDelay <= 0 && c.Backoff.MaxDelay <= 0 {
		c.Backoff = def.Backoff
	}
	return c
}
