package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/entmux/internal/mux"
	"github.com/danmuck/entmux/internal/protocol/frame"
	"github.com/danmuck/entmux/internal/protocol/wire"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketSession carries one wire message per binary websocket message.
type WebSocketSession struct {
	id   string
	conn *websocket.Conn
	cfg  Config
	box  *outbox
}

var _ mux.Session = (*WebSocketSession)(nil)

// NewUpgrader returns the upgrader used for /ws endpoints.
func NewUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

func NewWebSocketSession(conn *websocket.Conn, cfg Config) *WebSocketSession {
	cfg = cfg.WithDefaults()
	conn.SetReadLimit(int64(cfg.Limits.MaxFrameBytes))
	s := &WebSocketSession{
		id:   uuid.NewString(),
		conn: conn,
		cfg:  cfg,
		box:  newOutbox(cfg.OutboxDepth),
	}
	go s.box.run(s.write, s.fail)
	return s
}

// DialWebSocket opens a client websocket session at url (ws:// or wss://).
func DialWebSocket(ctx context.Context, url string, cfg Config) (*WebSocketSession, error) {
	cfg = cfg.WithDefaults()
	dialer := websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("session: websocket dial %s: %w", url, err)
	}
	return NewWebSocketSession(conn, cfg), nil
}

func (s *WebSocketSession) ID() string { return s.id }

func (s *WebSocketSession) RemoteAddr() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (s *WebSocketSession) Send(msg wire.Message) error {
	if uint32(msg.Len()) > s.cfg.Limits.MaxFrameBytes {
		return fmt.Errorf("%w: %d > %d", frame.ErrFrameTooLarge, msg.Len(), s.cfg.Limits.MaxFrameBytes)
	}
	buf, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	return s.box.enqueue(buf, s.cfg.SendTimeout)
}

// ReadLoop hands each binary message to fn. Text messages are dropped.
// A close from either side returns nil.
func (s *WebSocketSession) ReadLoop(ctx context.Context, fn func(raw []byte)) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		if s.cfg.ReadTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		typ, raw, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed() || isWebSocketDisconnect(err) {
				_ = s.Close()
				return nil
			}
			_ = s.Close()
			return err
		}
		if typ != websocket.BinaryMessage {
			log.Debug().Str("component", "session").Str("session", s.id).Int("type", typ).Msg("session.ws_non_binary_dropped")
			continue
		}
		fn(raw)
	}
}

func (s *WebSocketSession) Close() error {
	if !s.box.shutdown(nil) {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return s.conn.Close()
}

func (s *WebSocketSession) Done() <-chan struct{} { return s.box.done }

func (s *WebSocketSession) Err() error { return s.box.cause() }

func (s *WebSocketSession) closed() bool {
	select {
	case <-s.box.done:
		return true
	default:
		return false
	}
}

func (s *WebSocketSession) write(buf []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return s.conn.WriteMessage(websocket.BinaryMessage, buf)
}

func (s *WebSocketSession) fail(err error) {
	log.Warn().Str("component", "session").Str("session", s.id).Err(err).Msg("session.ws_write_failed")
	if s.box.shutdown(err) {
		_ = s.conn.Close()
	}
}

func isWebSocketDisconnect(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return true
	}
	return isDisconnect(err) || errors.Is(err, net.ErrClosed)
}
