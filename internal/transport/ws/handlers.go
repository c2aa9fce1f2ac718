package ws

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kiryu-dev/tictactoe-web/internal/domain"
	"github.com/kiryu-dev/tictactoe-web/pkg/utils"
	"go.uber.org/zap"
)

func (s *server) index(w http.ResponseWriter, r *http.Request) {
	clientUuid := ensureClientCookie(w, r)
	page, err := s.tpl.renderIndex(indexData{ClientID: clientUuid})
	if err != nil {
		s.logger.Error("render index page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (s *server) serveWs(w http.ResponseWriter, r *http.Request) {
	clientUuid := clientKey(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error(err.Error())
		return
	}
	s.logger.Info("new connection", zap.String("client", clientUuid))
	client := newClient(conn, clientUuid)
	defer client.Close()
	if err := s.hub.Handle(r.Context(), client); err != nil {
		s.logger.Error(err.Error(), zap.String("client", clientUuid))
		return
	}
	s.logger.Info("connection closed", zap.String("client", clientUuid))
}

func (s *server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	resp := domain.HealthCheckResponse{
		Status:   "ok",
		Sessions: s.hub.SessionCount(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := utils.WriteJson(w, resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		s.logger.Warn(err.Error())
	}
}

// clientKey picks the key a connection's session is stored under: the
// explicit header first, then the page cookie, then a fresh one.
func clientKey(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(domain.ClientUuidHeader)); v != "" {
		return v
	}
	if c, err := r.Cookie(domain.ClientUuidCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return uuid.NewString()
}

func ensureClientCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(domain.ClientUuidCookie); err == nil && c.Value != "" {
		return c.Value
	}
	v := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     domain.ClientUuidCookie,
		Value:    v,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return v
}
