package session

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// NextBackoffDelay returns the delay before retry number attempt (1-based).
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := cfg.InitialDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	multiplier := cfg.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * multiplier)
		if cfg.MaxDelay > 0 && delay >= cfg.MaxDelay {
			delay = cfg.MaxDelay
			break
		}
	}
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if cfg.Jitter && rng != nil && delay > 1 {
		// keep the delay in [delay/2, delay]
		half := int64(delay / 2)
		delay = time.Duration(half + rng.Int63n(half+1))
	}
	return delay
}

// Dial connects to addr over TCP, retrying with backoff until it succeeds,
// ctx ends or MaxDialAttempts is spent (zero retries forever).
func Dial(ctx context.Context, addr string, cfg Config) (*StreamSession, error) {
	cfg = cfg.WithDefaults()
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 1; cfg.MaxDialAttempts <= 0 || attempt <= cfg.MaxDialAttempts; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			s := NewStreamSession(conn, cfg)
			log.Debug().Str("component", "session").Str("session", s.ID()).Str("addr", addr).Int("attempt", attempt).Msg("session.dialed")
			return s, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if cfg.MaxDialAttempts > 0 && attempt == cfg.MaxDialAttempts {
			break
		}
		delay := NextBackoffDelay(cfg.Backoff, attempt, rng)
		log.Debug().Str("component", "session").Str("addr", addr).Int("attempt", attempt).Dur("retry_in", delay).Err(err).Msg("session.dial_retry")
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("session: dial %s after %d attempts: %w", addr, cfg.MaxDialAttempts, lastErr)
}
