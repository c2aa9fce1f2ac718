package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/kiryu-dev/tictactoe-web/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const readHeaderTimeout = 5 * time.Second

type server struct {
	srv      *http.Server
	hub      domain.HubUseCase
	upgrader websocket.Upgrader
	tpl      *templates
	logger   *zap.Logger
}

func New(addr string, hub domain.HubUseCase, logger *zap.Logger) *server {
	s := &server{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		tpl:    loadTemplates(),
		logger: logger,
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler wires the routes; it is exposed separately for httptest.
func (s *server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/", s.index)
	r.Get("/game", s.serveWs)
	r.Get("/health", s.healthCheck)
	return r
}

// ListenAndServe blocks until the server stops. A server closed by Shutdown
// returns nil.
func (s *server) ListenAndServe(_ context.Context) error {
	s.logger.Info("starting listening address: " + s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.WithMessage(err, "listen and serve")
	}
	return nil
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request id", middleware.GetReqID(r.Context())))
	})
}
