package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"financas/internal/core"
)

type homeData struct {
	Username string
	Quote    core.Quote
}

type settingsData struct {
	SessionDays int
	SyncEnabled bool
}

// handleHome greets the user, or "Visitante", with a random quote.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r)
	name := "Visitante"
	if p.LoggedIn {
		name = p.User.Username
	}
	p.Data = homeData{Username: name, Quote: core.PickQuote(s.choose)}
	s.render(w, r, http.StatusOK, "home", p)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "perfil", s.newPage(r))
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r)
	p.Data = settingsData{
		SessionDays: int(s.sessionTTL / (24 * time.Hour)),
		SyncEnabled: s.publisher != nil,
	}
	s.render(w, r, http.StatusOK, "configuracoes", p)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports 503 until the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	code := http.StatusOK
	checks := map[string]string{"templates": "ok"}

	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			checks["database"] = "failed: " + err.Error()
			status = "not_ready"
			code = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}
	if s.publisher != nil {
		checks["export"] = "enabled"
	} else {
		checks["export"] = "disabled"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}
