package mux

import (
	"github.com/danmuck/entmux/internal/protocol/wire"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Update sends one UPDATE frame for id to every distinct session and
// returns once each send has returned. Failed sends are combined into the
// returned error as *SendError values; they never stop delivery to the rest.
func (m *Multiplexer) Update(id wire.EntityID, sessions []Session, payload []byte) error {
	targets := distinctSessions(sessions)
	if len(targets) == 0 {
		return nil
	}
	msg := wire.NewUpdate(id, payload)
	if len(targets) == 1 {
		return m.send(targets[0], msg, id)
	}

	errs := make([]error, len(targets))
	var g errgroup.Group
	if m.cfg.BroadcastParallelism > 0 {
		g.SetLimit(m.cfg.BroadcastParallelism)
	}
	for i, s := range targets {
		i, s := i, s
		g.Go(func() error {
			errs[i] = m.send(s, msg, id)
			return nil
		})
	}
	_ = g.Wait()
	return multierr.Combine(errs...)
}

// RegisterSession sends a REGISTER frame for id to one session. This is
// the wire-visible counterpart of Handler.SilentRegister.
func (m *Multiplexer) RegisterSession(id wire.EntityID, typ wire.EntityType, s Session, payload []byte) error {
	return m.send(s, wire.NewRegister(id, typ, payload), id)
}

// UnregisterSession sends an UNREGISTER frame for id to one session.
func (m *Multiplexer) UnregisterSession(id wire.EntityID, s Session, payload []byte) error {
	return m.send(s, wire.NewUnregister(id, payload), id)
}

// Warn sends a WARNING diagnostic to one session.
func (m *Multiplexer) Warn(s Session, text string) error {
	return m.send(s, wire.NewWarning(text), 0)
}

func (m *Multiplexer) send(s Session, msg wire.Message, id wire.EntityID) error {
	ev := Event{
		Type:       EventSent,
		Kind:       msg.Kind,
		EntityID:   id,
		SessionID:  sessionID(s),
		PayloadLen: len(msg.Payload),
	}
	if s == nil {
		ev.Type = EventSendFailed
		ev.Err = &SendError{Kind: msg.Kind, EntityID: id, Err: errNilSession}
		m.cfg.Observer.Observe(ev)
		return ev.Err
	}
	if err := s.Send(msg); err != nil {
		ev.Type = EventSendFailed
		ev.Err = &SendError{SessionID: ev.SessionID, Kind: msg.Kind, EntityID: id, Err: err}
		m.cfg.Observer.Observe(ev)
		return ev.Err
	}
	m.cfg.Observer.Observe(ev)
	return nil
}

func distinctSessions(in []Session) []Session {
	out := make([]Session, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == nil {
			continue
		}
		id := s.ID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, s)
	}
	return out
}
