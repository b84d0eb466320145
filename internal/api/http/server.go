// Package apihttp is the HTTP surface of the audio delivery service.
package apihttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"audiocast/internal/domain"
	"audiocast/internal/usecase"
)

type StreamTrackUseCase interface {
	Execute(ctx context.Context, input usecase.StreamInput) (usecase.StreamOutput, error)
}

type DownloadTrackUseCase interface {
	Execute(ctx context.Context, input usecase.DownloadInput) (usecase.DownloadOutput, error)
}

type BatchDownloadUseCase interface {
	Execute(ctx context.Context, input usecase.BatchInput) (usecase.BatchOutput, error)
}

type PlayHistoryStore interface {
	ListRecent(ctx context.Context, limit int) ([]domain.PlayEvent, error)
}

// StreamProxy relays a direct upstream URL to the client with range support.
// An error means nothing was written yet and the caller may fall back.
type StreamProxy interface {
	Do(w http.ResponseWriter, r *http.Request, upstreamURL string) error
}

type Server struct {
	stream         StreamTrackUseCase
	download       DownloadTrackUseCase
	batch          BatchDownloadUseCase
	history        PlayHistoryStore
	proxy          StreamProxy
	allowedOrigins []string
	logger         *slog.Logger
	handler        http.Handler
	wsHub          *wsHub
}

type ServerOption func(*Server)

func WithDownload(uc DownloadTrackUseCase) ServerOption {
	return func(s *Server) {
		s.download = uc
	}
}

func WithBatchDownload(uc BatchDownloadUseCase) ServerOption {
	return func(s *Server) {
		s.batch = uc
	}
}

func WithPlayHistory(store PlayHistoryStore) ServerOption {
	return func(s *Server) {
		s.history = store
	}
}

func WithProxy(p StreamProxy) ServerOption {
	return func(s *Server) {
		s.proxy = p
	}
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted (development mode).
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(stream StreamTrackUseCase, opts ...ServerOption) *Server {
	s := &Server{stream: stream}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/stream/", s.handleStream)
	mux.HandleFunc("/download/batch", s.handleBatchDownload)
	mux.HandleFunc("/download/", s.handleDownload)
	mux.HandleFunc("/history", s.handleHistory)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "audiocast",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/healthz"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

// BroadcastStats sends a pipeline stats snapshot to all WebSocket clients.
func (s *Server) BroadcastStats(stats interface{}) {
	if s.wsHub != nil {
		s.wsHub.Broadcast("stats", stats)
	}
}

// Close shuts down the WebSocket hub, disconnecting all clients.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}
