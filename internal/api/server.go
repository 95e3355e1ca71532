// Package api serves the HTTP side of the server: a read-only admin API
// over the hub's state and a WebSocket endpoint speaking the same line
// protocol as the TCP listener.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/michroucka/UPS-SP/internal/api/response"
	"github.com/michroucka/UPS-SP/internal/hub"
	"github.com/michroucka/UPS-SP/internal/transport"
)

var tracer = otel.Tracer("api")

const statsTimeout = 2 * time.Second

// Server is the admin HTTP server.
type Server struct {
	hub      *hub.Hub
	engine   *gin.Engine
	httpSrv  *http.Server
	upgrader websocket.Upgrader
}

// NewServer builds the server and its routes.
func NewServer(h *hub.Hub, addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		hub:    h,
		engine: engine,
		httpSrv: &http.Server{
			Addr:    addr,
			Handler: engine,
		},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/api/rooms", s.handleRooms)
	engine.GET("/api/stats", s.handleStats)
	engine.GET("/ws", s.handleWebSocket)
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("admin API listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	response.SuccessResponse(c, gin.H{"status": "ok"})
}

func (s *Server) handleRooms(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	snap, err := s.hub.Stats(ctx)
	if err != nil {
		response.ErrorResponse(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	response.SuccessResponse(c, gin.H{"rooms": snap.Rooms})
}

func (s *Server) handleStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	snap, err := s.hub.Stats(ctx)
	if err != nil {
		response.ErrorResponse(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	response.SuccessResponse(c, snap)
}

// handleWebSocket upgrades the connection and registers it with the hub;
// from there on it is treated exactly like a TCP client.
func (s *Server) handleWebSocket(c *gin.Context) {
	_, span := tracer.Start(c.Request.Context(), "api.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.String()),
	))
	defer span.End()

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "upgrade failed")
		return
	}
	s.hub.Register(transport.NewWSConn(conn))
}
