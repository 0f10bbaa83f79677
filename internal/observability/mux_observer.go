package observability

import (
	"errors"
	"sync"

	"github.com/danmuck/entmux/internal/mux"
	"github.com/danmuck/entmux/internal/protocol/wire"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// WarningLimit bounds how many remote WARNING frames per session reach the log.
type WarningLimit struct {
	PerSecond float64
	Burst     int
}

func DefaultWarningLimit() WarningLimit {
	return WarningLimit{PerSecond: 1, Burst: 5}
}

// MuxObserver turns multiplexer events into structured logs and metrics.
type MuxObserver struct {
	node   string
	logger zerolog.Logger
	limit  WarningLimit

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var _ mux.Observer = (*MuxObserver)(nil)

func NewMuxObserver(node string, logger zerolog.Logger, limit WarningLimit) *MuxObserver {
	RegisterMetrics()
	if limit.PerSecond <= 0 {
		limit = DefaultWarningLimit()
	}
	return &MuxObserver{
		node:     node,
		logger:   logger.With().Str("component", "mux").Str("node", node).Logger(),
		limit:    limit,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (o *MuxObserver) Observe(ev mux.Event) {
	kind := ev.Kind.String()
	switch ev.Type {
	case mux.EventRegistered, mux.EventUpdated, mux.EventUnregistered, mux.EventReplaced:
		RecordFrameReceived(o.node, kind)
		SetDirectoryEntities(o.node, ev.DirectorySize)
		lvl := zerolog.DebugLevel
		if ev.Type == mux.EventUpdated {
			lvl = zerolog.TraceLevel
		}
		e := o.logger.WithLevel(lvl)
		if ev.Err != nil {
			e = o.logger.Warn().Err(ev.Err)
		}
		e.Str("event", string(ev.Type)).
			Uint32("entity_id", uint32(ev.EntityID)).
			Uint32("entity_type", uint32(ev.EntityType)).
			Str("session", ev.SessionID).
			Int("payload_len", ev.PayloadLen).
			Int("entities", ev.DirectorySize).
			Msg("mux.dispatch")
	case mux.EventWarning:
		RecordRemoteWarning(o.node)
		if !o.allowWarning(ev.SessionID) {
			return
		}
		o.logger.Warn().
			Str("session", ev.SessionID).
			Str("text", ev.Text).
			Msg("mux.remote_warning")
	case mux.EventRejected:
		RecordFrameRejected(o.node, kind, RejectReason(ev.Err))
		o.logger.Warn().
			Err(ev.Err).
			Str("kind", kind).
			Uint32("entity_id", uint32(ev.EntityID)).
			Str("session", ev.SessionID).
			Msg("mux.frame_rejected")
	case mux.EventSent:
		RecordFrameSent(o.node, kind, true)
	case mux.EventSendFailed:
		RecordFrameSent(o.node, kind, false)
		o.logger.Warn().
			Err(ev.Err).
			Str("kind", kind).
			Uint32("entity_id", uint32(ev.EntityID)).
			Str("session", ev.SessionID).
			Msg("mux.send_failed")
	case mux.EventSessionDropped:
		o.forgetSession(ev.SessionID)
		o.logger.Info().
			Str("session", ev.SessionID).
			Int("entities", ev.DirectorySize).
			Msg("mux.session_dropped")
	}
}

func (o *MuxObserver) allowWarning(sessionID string) bool {
	o.mu.Lock()
	lim, ok := o.limiters[sessionID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(o.limit.PerSecond), o.limit.Burst)
		o.limiters[sessionID] = lim
	}
	o.mu.Unlock()
	return lim.Allow()
}

func (o *MuxObserver) forgetSession(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.limiters, sessionID)
}

// RejectReason maps a dispatch error to a low-cardinality metric label.
func RejectReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, wire.ErrMalformedFrame):
		return "malformed"
	case errors.Is(err, wire.ErrUnknownKind):
		return "unknown_kind"
	case errors.Is(err, mux.ErrUnknownEntity):
		return "unknown_entity"
	case errors.Is(err, mux.ErrDuplicateRegistration):
		return "duplicate"
	case errors.Is(err, mux.ErrFactory):
		return "factory"
	case errors.Is(err, mux.ErrClosed):
		return "closed"
	default:
		return "other"
	}
}
