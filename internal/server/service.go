package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/entmux/internal/entity"
	"github.com/danmuck/entmux/internal/mux"
	"github.com/danmuck/entmux/internal/observability"
	"github.com/danmuck/entmux/internal/protocol/session"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// peer is a transport session the service can read from.
type peer interface {
	mux.Session
	ReadLoop(ctx context.Context, fn func(raw []byte)) error
	RemoteAddr() string
	Close() error
}

// Service runs one node: stream listener, admin HTTP and simulation.
type Service struct {
	cfg    ServiceConfig
	logger zerolog.Logger

	registry *entity.Registry
	mux      *mux.Multiplexer
	sim      *Simulation
	router   *gin.Engine
	started  time.Time

	ready        atomic.Bool
	activePeers  atomic.Int64
	peersMu      sync.Mutex
	peers        map[string]peer
	peerCtx      context.Context
	cancelPeers  context.CancelFunc
	shutdownOnce sync.Once
}

func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) *Service {
	cfg = cfg.WithDefaults()
	logger := log.Logger.With().Str("node", cfg.NodeID).Logger()

	registry := entity.NewRegistry()
	_ = registry.Register(entity.TypePlayer, entity.MirrorConstructor)
	m := mux.NewWithConfig(registry, mux.Config{
		DuplicatePolicy:      cfg.DuplicatePolicy,
		BroadcastParallelism: cfg.BroadcastParallelism,
		Observer:             observability.NewMuxObserver(cfg.NodeID, logger, cfg.WarningLimit),
	})
	registry.Bind(m)

	peerCtx, cancel := context.WithCancel(context.Background())
	svc := &Service{
		cfg:         cfg,
		logger:      logger.With().Str("component", "server").Logger(),
		registry:    registry,
		mux:         m,
		sim:         NewSimulation(cfg.NodeID, cfg.Simulation, m, logger),
		started:     time.Now(),
		peers:       make(map[string]peer),
		peerCtx:     peerCtx,
		cancelPeers: cancel,
	}
	svc.router = svc.newRouter()
	return svc
}

func (s *Service) Mux() *mux.Multiplexer      { return s.mux }
func (s *Service) Registry() *entity.Registry { return s.registry }
func (s *Service) Simulation() *Simulation    { return s.sim }
func (s *Service) Router() *gin.Engine        { return s.router }

// ActivePeers returns the number of connected peers over every transport.
func (s *Service) ActivePeers() int {
	return int(s.activePeers.Load())
}

// Run blocks until SIGINT/SIGTERM or a listener fails.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("server.listening")

	go s.sim.Run(ctx)

	adminErr := make(chan error, 1)
	if addr := strings.TrimSpace(s.cfg.AdminListenAddr); addr != "" {
		go func() {
			adminErr <- s.ServeAdmin(ctx, addr)
		}()
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Serve(ctx, ln)
	}()

	var runErr error
	select {
	case runErr = <-serveErr:
	case runErr = <-adminErr:
		if runErr == nil {
			runErr = <-serveErr
		}
	}
	return errors.Join(runErr, s.Shutdown())
}

// Serve accepts stream peers on ln until ctx ends.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.ready.Store(true)
	defer s.ready.Store(false)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.servePeer(ctx, session.NewStreamSession(conn, s.cfg.Session), "tcp")
	}
}

// ServeAdmin serves the admin router on addr until ctx ends.
func (s *Service) ServeAdmin(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info().Str("addr", addr).Msg("server.admin_listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: admin %s: %w", addr, err)
	}
	return nil
}

// Shutdown disconnects every peer and releases every handler and enemy.
func (s *Service) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cancelPeers()
		s.peersMu.Lock()
		peers := make([]peer, 0, len(s.peers))
		for _, p := range s.peers {
			peers = append(peers, p)
		}
		s.peersMu.Unlock()
		for _, p := range peers {
			_ = p.Close()
		}
		err = errors.Join(s.mux.Close(), s.sim.Close())
	})
	return err
}

// servePeer runs one peer from connect to disconnect.
func (s *Service) servePeer(ctx context.Context, p peer, transport string) {
	logger := s.logger.With().Str("session", p.ID()).Str("remote", p.RemoteAddr()).Str("transport", transport).Logger()

	if !s.trackPeer(p) {
		_ = p.Close()
		return
	}
	active := s.activePeers.Add(1)
	observability.AddActiveSessions(s.cfg.NodeID, transport, 1)
	logger.Info().Int64("active", active).Msg("server.peer_connected")

	defer func() {
		s.sim.Detach(p)
		s.mux.DropSession(p)
		_ = p.Close()
		s.untrackPeer(p)
		remaining := s.activePeers.Add(-1)
		observability.AddActiveSessions(s.cfg.NodeID, transport, -1)
		logger.Info().Int64("active", remaining).Msg("server.peer_disconnected")
	}()

	if err := s.sim.Attach(p); err != nil {
		logger.Warn().Err(err).Msg("server.attach_failed")
	}

	readCtx, cancel := mergeDone(ctx, s.peerCtx)
	defer cancel()
	err := p.ReadLoop(readCtx, func(raw []byte) {
		// frame errors never end the session; the observer counts them
		if err := s.mux.OnFrame(p, raw); err != nil {
			logger.Debug().Err(err).Msg("server.frame_rejected")
		}
	})
	if err != nil {
		logger.Warn().Err(err).Msg("server.read_failed")
	}
}

func (s *Service) trackPeer(p peer) bool {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	if s.peerCtx.Err() != nil {
		return false
	}
	s.peers[p.ID()] = p
	return true
}

func (s *Service) untrackPeer(p peer) {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	delete(s.peers, p.ID())
}

// mergeDone returns a context that ends when either parent ends.
func mergeDone(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
