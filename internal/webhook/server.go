package webhook

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/cedcast/dispatch/internal/config"
	"github.com/cedcast/dispatch/internal/database"
)

// Pinger reports database liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server hosts the delivery receipt callbacks plus the small read-only
// surface (health, per-message delivery stats).
type Server struct {
	config     config.WebhookConfig
	dbQueries  database.Querier
	pinger     Pinger
	handler    *Handler
	httpServer *http.Server
	stopOnce   sync.Once
}

func NewServer(cfg config.WebhookConfig, q database.Querier, pinger Pinger) *Server {
	return &Server{
		config:    cfg,
		dbQueries: q,
		pinger:    pinger,
		handler:   NewHandler(q, cfg.ProviderSecrets()),
	}
}

// Router builds the gin engine. Exposed for tests.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/webhooks/:provider", s.handler.HandleDeliveryReceipt)
	router.GET("/health", s.handleHealth)
	router.GET("/messages/:id/delivery", s.handleDeliveryStats)
	return router
}

// ListenAndServe starts the HTTP server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	if s.httpServer != nil {
		return errors.New("webhook server already started")
	}

	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}

	slog.Info("Starting webhook server", slog.String("address", s.config.Addr))
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Webhook server ListenAndServe error", slog.Any("error", err))
		return err
	}
	slog.Info("Webhook server stopped.")
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if s.httpServer != nil {
			err = s.httpServer.Shutdown(ctx)
		}
	})
	return err
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := s.pinger.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleDeliveryStats(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return
	}

	stats, err := s.dbQueries.GetMessageDeliveryStats(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		slog.ErrorContext(c.Request.Context(), "Failed to load delivery stats", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	if stats.Total == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message_id": messageID,
		"total":      stats.Total,
		"sent":       stats.Sent,
		"failed":     stats.Failed,
		"pending":    stats.Pending,
	})
}
