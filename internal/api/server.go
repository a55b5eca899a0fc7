// Package api serves a local HTTP interface for a running circuit: status,
// catalog lookups, transcript history, outbound chat and IM, logout and
// Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/simlink-project/simlink/internal/catalog"
	"github.com/simlink-project/simlink/internal/circuit"
	"github.com/simlink-project/simlink/internal/config"
	"github.com/simlink-project/simlink/internal/db"
)

// Circuit is the part of the engine the API drives.
type Circuit interface {
	Status() circuit.Status
	Submit(in circuit.Intent) error
	Catalog() *catalog.Catalog
}

// History reads the transcript.
type History interface {
	Recent(ctx context.Context, limit int) ([]db.Entry, error)
}

// Server is the local REST API.
type Server struct {
	cfg      config.APIConfig
	circuit  Circuit
	history  History
	gatherer prometheus.Gatherer
	version  string

	httpServer *http.Server
	router     *gin.Engine
}

// NewServer creates an API server. history may be nil when the transcript
// is disabled.
func NewServer(cfg config.APIConfig, c Circuit, history History, gatherer prometheus.Gatherer, version string) *Server {
	s := &Server{
		cfg:      cfg,
		circuit:  c,
		history:  history,
		gatherer: gatherer,
		version:  version,
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("API server error: %w", err)
	}

	log.Info().Str("addr", ln.Addr().String()).Msg("REST API server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(SecurityHeaders())

	allowedOrigins := s.cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(NewRateLimiter(s.cfg.RateLimitRPS).Middleware())

	if s.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	{
		api.GET("/ping", s.handlePing)
		api.GET("/status", s.handleStatus)
		api.GET("/catalog", s.handleCatalog)
		api.GET("/catalog/:name", s.handleCatalogEntry)
		api.GET("/history", s.handleHistory)

		api.POST("/chat", s.handleChat)
		api.POST("/im", s.handleInstantMessage)
		api.POST("/logout", s.handleLogout)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
