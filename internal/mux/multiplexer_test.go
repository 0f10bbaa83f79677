package mux

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/danmuck/entmux/internal/protocol/wire"
	"github.com/danmuck/entmux/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux(t *testing.T, cfg Config) (*Multiplexer, *recordingFactory, *eventLog) {
	t.Helper()
	testlog.Start(t)
	factory := &recordingFactory{}
	events := &eventLog{}
	cfg.Observer = events
	return NewWithConfig(factory, cfg), factory, events
}

func TestRegisterUpdateUnregisterLifecycle(t *testing.T) {
	m, factory, events := newTestMux(t, DefaultConfig())
	a := newFakeSession("A")

	require.NoError(t, m.OnMessage(a, wire.NewRegister(7, 2, []byte("hi"))))
	h := factory.Last()
	require.NotNil(t, h)
	assert.Equal(t, wire.EntityID(7), h.id)
	assert.Equal(t, wire.EntityType(2), h.typ)
	assert.Equal(t, []string{"hi"}, factory.payloads)
	_, ok := m.Directory().Lookup(7)
	assert.True(t, ok)

	require.NoError(t, m.OnMessage(a, wire.NewUpdate(7, []byte("go"))))
	assert.Equal(t, []string{"go"}, h.Updates())

	require.NoError(t, m.OnMessage(a, wire.NewUnregister(7, []byte("bye"))))
	_, ok = m.Directory().Lookup(7)
	assert.False(t, ok)
	assert.Equal(t, []string{
		"silent_register:A",
		"update",
		"unregister:A",
		"silent_unregister:A",
		"close",
	}, h.Calls())

	err := m.OnMessage(a, wire.NewUpdate(7, []byte("again")))
	require.ErrorIs(t, err, ErrUnknownEntity)
	assert.Len(t, events.OfType(EventRegistered), 1)
	assert.Len(t, events.OfType(EventUnregistered), 1)
	assert.Len(t, events.OfType(EventRejected), 1)
}

func TestUpdateAndUnregisterBeforeRegisterFail(t *testing.T) {
	m, _, events := newTestMux(t, DefaultConfig())
	a := newFakeSession("A")

	err := m.OnMessage(a, wire.NewUpdate(3, nil))
	require.ErrorIs(t, err, ErrUnknownEntity)
	var ferr *FrameError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, "update", ferr.Op)
	assert.Equal(t, wire.EntityID(3), ferr.EntityID)
	assert.Equal(t, "A", ferr.SessionID)

	require.ErrorIs(t, m.OnMessage(a, wire.NewUnregister(3, nil)), ErrUnknownEntity)
	assert.Equal(t, 0, m.Directory().Len())

	rejected := events.OfType(EventRejected)
	require.Len(t, rejected, 2)
	assert.Equal(t, wire.KindUnregister, rejected[1].Kind)
}

func TestDuplicateRegisterRejectedByDefault(t *testing.T) {
	m, factory, _ := newTestMux(t, DefaultConfig())
	a := newFakeSession("A")

	require.NoError(t, m.OnMessage(a, wire.NewRegister(1, 1, nil)))
	first := factory.Last()
	err := m.OnMessage(a, wire.NewRegister(1, 5, nil))
	require.ErrorIs(t, err, ErrDuplicateRegistration)

	h, ok := m.Directory().Lookup(1)
	require.True(t, ok)
	assert.Same(t, first, h)
	assert.Len(t, factory.built, 1)
	assert.Equal(t, wire.EntityType(1), m.Directory().Snapshot()[0].Type)
}

func TestDuplicateRegisterReplaceTearsDownOldHandler(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DuplicatePolicy = DuplicateReplace
	m, factory, events := newTestMux(t, cfg)
	a := newFakeSession("A")

	require.NoError(t, m.OnMessage(a, wire.NewRegister(1, 1, nil)))
	first := factory.Last()
	require.NoError(t, m.OnMessage(a, wire.NewRegister(1, 5, nil)))
	second := factory.Last()
	require.NotSame(t, first, second)

	h, ok := m.Directory().Lookup(1)
	require.True(t, ok)
	assert.Same(t, second, h)
	assert.Equal(t, []string{"silent_register:A", "silent_unregister:A", "close"}, first.Calls())
	assert.Equal(t, []string{"silent_register:A"}, second.Calls())
	assert.Equal(t, wire.EntityType(5), m.Directory().Snapshot()[0].Type)
	assert.Len(t, events.OfType(EventReplaced), 1)
}

func TestReplaceKeepsOldHandlerWhenFactoryFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DuplicatePolicy = DuplicateReplace
	m, factory, _ := newTestMux(t, cfg)
	a := newFakeSession("A")

	require.NoError(t, m.OnMessage(a, wire.NewRegister(1, 1, nil)))
	first := factory.Last()
	factory.err = errBoom
	err := m.OnMessage(a, wire.NewRegister(1, 2, nil))
	require.ErrorIs(t, err, ErrFactory)
	require.ErrorIs(t, err, errBoom)

	h, ok := m.Directory().Lookup(1)
	require.True(t, ok)
	assert.Same(t, first, h)
	assert.Equal(t, []string{"silent_register:A"}, first.Calls())
}

func TestFactoryFailureLeavesDirectoryUnchanged(t *testing.T) {
	m, factory, _ := newTestMux(t, DefaultConfig())
	factory.err = errBoom
	err := m.OnMessage(newFakeSession("A"), wire.NewRegister(4, 4, nil))
	require.ErrorIs(t, err, ErrFactory)
	assert.Equal(t, 0, m.Directory().Len())
}

func TestNilHandlerFromFactoryIsRejected(t *testing.T) {
	testlog.Start(t)
	m := New(FactoryFunc(func(wire.EntityID, wire.EntityType, Session, []byte) (Handler, error) {
		return nil, nil
	}))
	err := m.OnMessage(newFakeSession("A"), wire.NewRegister(4, 4, nil))
	require.ErrorIs(t, err, ErrFactory)
	assert.Equal(t, 0, m.Directory().Len())
}

func TestMalformedUpdateLeavesDirectoryUnchanged(t *testing.T) {
	m, _, events := newTestMux(t, DefaultConfig())
	a := newFakeSession("A")
	require.NoError(t, m.OnMessage(a, wire.NewRegister(9, 1, nil)))
	before := m.Directory().Snapshot()

	err := m.OnMessage(a, wire.Message{Kind: wire.KindUpdate, Payload: []byte{0, 0, 9}})
	require.ErrorIs(t, err, ErrMalformedFrame)
	assert.Equal(t, before, m.Directory().Snapshot())

	err = m.OnMessage(a, wire.Message{Kind: wire.KindRegister, Payload: []byte{0, 0, 0, 10}})
	require.ErrorIs(t, err, ErrMalformedFrame)
	assert.Equal(t, before, m.Directory().Snapshot())
	assert.Len(t, events.OfType(EventRejected), 2)
}

func TestUnknownKindIsRejected(t *testing.T) {
	m, _, events := newTestMux(t, DefaultConfig())
	err := m.OnMessage(newFakeSession("A"), wire.Message{Kind: 17, Payload: []byte{0, 0, 0, 1}})
	require.ErrorIs(t, err, ErrUnknownKind)
	rejected := events.OfType(EventRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, wire.Kind(17), rejected[0].Kind)
}

func TestWarningIsObservedNotFatal(t *testing.T) {
	m, _, events := newTestMux(t, DefaultConfig())
	require.NoError(t, m.OnMessage(newFakeSession("B"), wire.NewWarning("remote desync")))
	warnings := events.OfType(EventWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, "remote desync", warnings[0].Text)
	assert.Equal(t, "B", warnings[0].SessionID)
}

func TestOnFrameParsesRawBytes(t *testing.T) {
	m, factory, _ := newTestMux(t, DefaultConfig())
	a := newFakeSession("A")
	require.NoError(t, m.OnFrame(a, rawFrame(wire.NewRegister(7, 2, []byte("hi")))))
	require.NoError(t, m.OnFrame(a, rawFrame(wire.NewUpdate(7, []byte("go")))))
	assert.Equal(t, []string{"go"}, factory.Last().Updates())

	require.ErrorIs(t, m.OnFrame(a, []byte{0, 0}), ErrMalformedFrame)
	require.ErrorIs(t, m.OnFrame(a, []byte{0, 0, 0, 0, 0, 7}), ErrMalformedFrame)
	assert.Equal(t, 1, m.Directory().Len())
}

func TestDropSessionSilentlyUnregistersEverywhere(t *testing.T) {
	m, factory, events := newTestMux(t, DefaultConfig())
	a, b := newFakeSession("A"), newFakeSession("B")
	require.NoError(t, m.OnMessage(a, wire.NewRegister(1, 1, nil)))
	require.NoError(t, m.OnMessage(a, wire.NewRegister(2, 1, nil)))

	m.DropSession(b)
	for _, h := range factory.built {
		assert.Equal(t, []string{"silent_register:A", "silent_unregister:B"}, h.Calls())
	}
	assert.Equal(t, 2, m.Directory().Len())
	assert.Len(t, events.OfType(EventSessionDropped), 1)
	assert.Empty(t, a.Sent())
}

func TestCloseReleasesHandlersAndRejectsFrames(t *testing.T) {
	m, factory, _ := newTestMux(t, DefaultConfig())
	a := newFakeSession("A")
	require.NoError(t, m.OnMessage(a, wire.NewRegister(1, 1, nil)))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.True(t, factory.Last().closed)
	assert.Equal(t, 0, m.Directory().Len())
	require.ErrorIs(t, m.OnMessage(a, wire.NewRegister(2, 1, nil)), ErrClosed)
}

func TestConcurrentDispatchDistinctIDs(t *testing.T) {
	m, _, _ := newTestMux(t, DefaultConfig())
	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := newFakeSession(fmt.Sprintf("S%d", i))
			id := wire.EntityID(i)
			assert.NoError(t, m.OnMessage(s, wire.NewRegister(id, 1, nil)))
			assert.NoError(t, m.OnMessage(s, wire.NewUpdate(id, []byte("tick"))))
			if i%2 == 0 {
				assert.NoError(t, m.OnMessage(s, wire.NewUnregister(id, nil)))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, n/2, m.Directory().Len())
}

func TestUpdateRacingRegisterSeesFullHandlerOrUnknown(t *testing.T) {
	m, _, _ := newTestMux(t, DefaultConfig())
	s := newFakeSession("A")
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, m.OnMessage(s, wire.NewRegister(5, 1, nil)))
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			err := m.OnMessage(s, wire.NewUpdate(5, []byte("x")))
			if err != nil {
				assert.ErrorIs(t, err, ErrUnknownEntity)
			}
		}
	}()
	wg.Wait()
	h, ok := m.Directory().Lookup(5)
	require.True(t, ok)
	calls := h.(*recordingHandler).Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "silent_register:A", calls[0])
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := ParseDuplicatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DuplicateReject, p)
	p, err = ParseDuplicatePolicy(" Replace ")
	require.NoError(t, err)
	assert.Equal(t, DuplicateReplace, p)
	_, err = ParseDuplicatePolicy("merge")
	require.Error(t, err)
}
