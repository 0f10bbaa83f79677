package mux

import (
	"errors"
	"sync"

	"github.com/danmuck/entmux/internal/protocol/wire"
)

type fakeSession struct {
	id string

	mu   sync.Mutex
	sent []wire.Message
	err  error
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id}
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Send(msg wire.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg.Clone())
	return nil
}

func (s *fakeSession) Sent() []wire.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.Message, len(s.sent))
	copy(out, s.sent)
	return out
}

type recordingHandler struct {
	id  wire.EntityID
	typ wire.EntityType

	mu     sync.Mutex
	calls  []string
	update []string
	unreg  []string
	closed bool
}

func (h *recordingHandler) record(call string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
}

func (h *recordingHandler) OnUpdate(payload []byte) {
	h.record("update")
	h.mu.Lock()
	h.update = append(h.update, string(payload))
	h.mu.Unlock()
}

func (h *recordingHandler) OnUnregister(s Session, payload []byte) {
	h.record("unregister:" + sessionID(s))
	h.mu.Lock()
	h.unreg = append(h.unreg, string(payload))
	h.mu.Unlock()
}

func (h *recordingHandler) SilentRegister(s Session) {
	h.record("silent_register:" + sessionID(s))
}

func (h *recordingHandler) SilentUnregister(s Session) {
	h.record("silent_unregister:" + sessionID(s))
}

func (h *recordingHandler) Close() error {
	h.record("close")
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *recordingHandler) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (h *recordingHandler) Updates() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.update...)
}

// recordingFactory remembers every handler it built, in order.
type recordingFactory struct {
	mu       sync.Mutex
	built    []*recordingHandler
	payloads []string
	err      error
}

func (f *recordingFactory) Create(id wire.EntityID, typ wire.EntityType, _ Session, payload []byte) (Handler, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	h := &recordingHandler{id: id, typ: typ}
	f.built = append(f.built, h)
	f.payloads = append(f.payloads, string(payload))
	return h, nil
}

func (f *recordingFactory) Last() *recordingHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.built) == 0 {
		return nil
	}
	return f.built[len(f.built)-1]
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Observe(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) OfType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

var errBoom = errors.New("boom")

func rawFrame(msg wire.Message) []byte {
	raw, _ := msg.MarshalBinary()
	return raw
}
