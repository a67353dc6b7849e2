package http

import (
	"context"
	"errors"
	"net/http"

	"financas/internal/core"
	"financas/internal/log"
)

type errorData struct {
	Title   string
	Message string
}

// statusForError maps domain errors to HTTP statuses.
func statusForError(err error) int {
	if _, ok := core.AsValidation(err); ok {
		return http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorPage(status int) errorData {
	switch status {
	case http.StatusNotFound:
		return errorData{"Página não encontrada", "O endereço acessado não existe ou foi removido."}
	case http.StatusForbidden:
		return errorData{"Acesso negado", "Você não tem permissão para acessar este recurso."}
	case http.StatusConflict:
		return errorData{"Conflito", "O registro foi alterado por outra operação. Recarregue a página e tente de novo."}
	case http.StatusUnauthorized:
		return errorData{"Não autenticado", "Faça login para continuar."}
	case http.StatusTooManyRequests:
		return errorData{"Muitas requisições", "Aguarde um instante e tente novamente."}
	case http.StatusServiceUnavailable:
		return errorData{"Serviço indisponível", "Tente novamente em instantes."}
	default:
		return errorData{"Erro interno", "Algo deu errado. Tente novamente mais tarde."}
	}
}

// renderError renders the error page for err. Unexpected errors are logged;
// the user only sees a generic message.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err, log.FieldPath, r.URL.Path)
	}
	s.renderStatus(w, r, status)
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int) {
	p := s.newPage(r)
	p.Data = errorPage(status)
	s.render(w, r, status, "erro", p)
}

// renderForm re-renders a form with its field errors when err is a
// validation error, and the error page otherwise.
func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, name string, p page, err error) {
	if verr, ok := core.AsValidation(err); ok {
		for field, msg := range verr.Fields {
			p.Errors[field] = msg
		}
		s.render(w, r, http.StatusUnprocessableEntity, name, p)
		return
	}
	s.renderError(w, r, err)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderStatus(w, r, http.StatusNotFound)
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited.Inc()
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r), log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	s.renderStatus(w, r, http.StatusTooManyRequests)
}
