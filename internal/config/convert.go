package config

import (
	"time"

	"github.com/danmuck/entmux/internal/protocol/session"
	"github.com/danmuck/entmux/internal/protocol/wire"
)

// ClientRuntime is ClientConfig with parsed durations and wire types.
type ClientRuntime struct {
	Name       string
	Addr       string
	EntityID   wire.EntityID
	EntityType wire.EntityType
	Updates    int
	Interval   time.Duration
	Linger     time.Duration
	Session    session.Config
}

// Runtime validates c and converts it to runtime settings.
func (c ClientConfig) Runtime() (ClientRuntime, error) {
	c = c.WithDefaults()
	if err := ValidateClientConfig(c); err != nil {
		return ClientRuntime{}, err
	}
	interval, _ := ParseDuration(c.Interval)
	linger, _ := ParseDuration(c.Linger)

	sess := session.DefaultConfig()
	sess.MaxDialAttempts = c.DialAttempts
	return ClientRuntime{
		Name:       c.Name,
		Addr:       c.Addr,
		EntityID:   wire.EntityID(c.EntityID),
		EntityType: wire.EntityType(c.EntityType),
		Updates:    c.Updates,
		Interval:   interval,
		Linger:     linger,
		Session:    sess,
	}, nil
}
