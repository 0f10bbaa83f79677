package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/entmux/internal/config"
	"github.com/danmuck/entmux/internal/entity"
	"github.com/danmuck/entmux/internal/mux"
	"github.com/danmuck/entmux/internal/observability"
	"github.com/danmuck/entmux/internal/protocol/session"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "path to client config.toml (defaults when empty)")
	addr := flag.String("addr", "", "node address, overrides config")
	updates := flag.Int("updates", -1, "number of updates to send, overrides config")
	flag.Parse()

	logger := observability.InitLogger("entmuxctl")

	cfg := config.DefaultClientConfig()
	if *configPath != "" {
		loaded, err := config.LoadClientConfig(*configPath)
		if err != nil {
			fail(err)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *updates >= 0 {
		cfg.Updates = *updates
	}
	rt, err := cfg.Runtime()
	if err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, rt, logger); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "entmuxctl: %v\n", err)
	os.Exit(1)
}

// run registers one entity with the node, moves it, unregisters it and
// logs every frame the node sends back.
func run(ctx context.Context, rt config.ClientRuntime, logger zerolog.Logger) error {
	frames := observability.Component("entmuxctl")
	metrics := observability.NewMuxObserver(rt.Name, logger, observability.DefaultWarningLimit())
	registry := entity.NewRegistry()
	if err := registry.Register(entity.TypeServerEnemyController, entity.MirrorConstructor); err != nil {
		return err
	}
	m := mux.NewWithConfig(registry, mux.Config{
		Observer: mux.ObserverFunc(func(ev mux.Event) {
			frames.Info().
				Str("event", string(ev.Type)).
				Str("kind", ev.Kind.String()).
				Uint32("entity_id", uint32(ev.EntityID)).
				Int("payload_len", ev.PayloadLen).
				Str("text", ev.Text).
				AnErr("err", ev.Err).
				Msg("entmuxctl.frame")
			metrics.Observe(ev)
		}),
	})
	registry.Bind(m)
	defer m.Close()

	sess, err := session.Dial(ctx, rt.Addr, rt.Session)
	if err != nil {
		return err
	}
	defer sess.Close()
	frames.Info().Str("addr", rt.Addr).Str("session", sess.ID()).Msg("entmuxctl.connected")

	readDone := make(chan error, 1)
	go func() {
		readDone <- sess.ReadLoop(ctx, func(raw []byte) { _ = m.OnFrame(sess, raw) })
	}()

	self := entity.NewNetworkEntity(rt.EntityID, rt.EntityType, m)
	if err := self.RegisterSession(sess, entity.EncodeState(entity.State{Name: rt.Name})); err != nil {
		return err
	}
	if err := m.Warn(sess, rt.Name+" joined"); err != nil {
		return err
	}

	ticker := time.NewTicker(rt.Interval)
	defer ticker.Stop()
	for i := 1; i <= rt.Updates; i++ {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readDone:
			return fmt.Errorf("node closed the session: %w", err)
		case <-ticker.C:
		}
		if err := self.Update(entity.EncodeState(entity.State{X: uint32(i)})); err != nil {
			return err
		}
	}

	if err := self.UnregisterSession(sess, []byte("bye")); err != nil {
		return err
	}

	// give the node a moment to flush enemy updates before hanging up
	select {
	case <-ctx.Done():
	case <-readDone:
	case <-time.After(rt.Linger):
	}
	for _, info := range m.Directory().Snapshot() {
		frames.Info().Uint32("entity_id", uint32(info.ID)).Uint32("entity_type", uint32(info.Type)).Msg("entmuxctl.known_entity")
	}
	return nil
}
