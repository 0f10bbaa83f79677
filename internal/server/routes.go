package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/entmux/internal/auth"
	"github.com/danmuck/entmux/internal/observability"
	"github.com/danmuck/entmux/internal/protocol/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

func (s *Service) newRouter() *gin.Engine {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestObserver(s.cfg.NodeID, s.logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(s.cfg.CORSOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	upgrader := session.NewUpgrader()
	var admin auth.Validator
	if token := strings.TrimSpace(s.cfg.AdminToken); token != "" {
		admin = auth.StaticToken{Token: token}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"node":    s.cfg.NodeID,
			"version": version,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		status := http.StatusOK
		if !s.ready.Load() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   s.ready.Load(),
			"node":    s.cfg.NodeID,
			"peers":   s.ActivePeers(),
			"version": version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/entities", auth.Require(admin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"count":    s.mux.Directory().Len(),
			"entities": s.mux.Directory().Snapshot(),
		})
	})

	r.GET("/enemies", auth.Require(admin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ticks":   s.sim.Ticks(),
			"enemies": s.sim.Enemies(),
		})
	})

	r.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.logger.Warn().Err(err).Msg("server.ws_upgrade_failed")
			return
		}
		p := session.NewWebSocketSession(conn, s.cfg.Session)
		s.servePeer(s.peerCtx, p, "ws")
	})

	return r
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:5173"}
	}
	return out
}
