package session

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/danmuck/entmux/internal/mux"
	"github.com/danmuck/entmux/internal/protocol/frame"
	"github.com/danmuck/entmux/internal/protocol/wire"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StreamSession carries length-prefixed wire messages over one net.Conn.
type StreamSession struct {
	id   string
	conn net.Conn
	cfg  Config
	box  *outbox
}

var _ mux.Session = (*StreamSession)(nil)

func NewStreamSession(conn net.Conn, cfg Config) *StreamSession {
	cfg = cfg.WithDefaults()
	s := &StreamSession{
		id:   uuid.NewString(),
		conn: conn,
		cfg:  cfg,
		box:  newOutbox(cfg.OutboxDepth),
	}
	go s.box.run(s.write, s.fail)
	return s
}

func (s *StreamSession) ID() string { return s.id }

func (s *StreamSession) RemoteAddr() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Send frames msg into a session-owned buffer and queues it for the writer.
func (s *StreamSession) Send(msg wire.Message) error {
	buf, err := frame.Encode(msg, s.cfg.Limits)
	if err != nil {
		return err
	}
	return s.box.enqueue(buf, s.cfg.SendTimeout)
}

// ReadLoop hands each inbound raw wire message to fn until the peer
// disconnects, ctx ends or the stream is corrupt. A clean disconnect
// returns nil.
func (s *StreamSession) ReadLoop(ctx context.Context, fn func(raw []byte)) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		if s.cfg.ReadTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		raw, err := frame.ReadFrame(s.conn, s.cfg.Limits)
		if err != nil {
			if isDisconnect(err) || s.closed() {
				return nil
			}
			_ = s.Close()
			return err
		}
		fn(raw)
	}
}

func (s *StreamSession) Close() error {
	if s.box.shutdown(nil) {
		return s.conn.Close()
	}
	return nil
}

// Done is closed once the session stops accepting sends.
func (s *StreamSession) Done() <-chan struct{} { return s.box.done }

// Err returns the write failure that closed the session, if any.
func (s *StreamSession) Err() error { return s.box.cause() }

func (s *StreamSession) closed() bool {
	select {
	case <-s.box.done:
		return true
	default:
		return false
	}
}

func (s *StreamSession) write(buf []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	_, err := s.conn.Write(buf)
	return err
}

func (s *StreamSession) fail(err error) {
	log.Warn().Str("component", "session").Str("session", s.id).Err(err).Msg("session.write_failed")
	if s.box.shutdown(err) {
		_ = s.conn.Close()
	}
}

func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
