package http

import (
	"errors"
	"net/http"

	"financas/internal/auth"
	"financas/internal/core"
)

const msgBadLogin = "Usuário ou senha inválidos."

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "cadastro", s.newPage(r))
}

// handleRegister creates the account, logs it in and goes home.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.renderStatus(w, r, http.StatusBadRequest)
		return
	}
	in := core.RegistrationInput{
		Username: field(r, core.FieldUsername),
		Email:    field(r, core.FieldEmail),
		Password: r.PostFormValue(core.FieldPassword),
		Confirm:  r.PostFormValue(core.FieldConfirm),
	}

	p := s.newPage(r)
	p.Form[core.FieldUsername] = in.Username
	p.Form[core.FieldEmail] = in.Email

	user, err := s.auth.Register(r.Context(), in)
	if err != nil {
		s.renderForm(w, r, "cadastro", p, err)
		return
	}
	if err := s.auth.Login(w, r, user); err != nil {
		s.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r)
	p.Form["next"] = auth.SafeNext(r.URL.Query().Get("next"))
	s.render(w, r, http.StatusOK, "login", p)
}

// handleLogin starts a session and follows next when it is a local path.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.renderStatus(w, r, http.StatusBadRequest)
		return
	}
	username := field(r, core.FieldUsername)
	next := auth.SafeNext(r.PostFormValue("next"))

	user, err := s.auth.Authenticate(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, core.ErrAuthentication) {
			s.renderError(w, r, err)
			return
		}
		p := s.newPage(r)
		p.Form[core.FieldUsername] = username
		p.Form["next"] = next
		p.Errors["login"] = msgBadLogin
		s.render(w, r, http.StatusUnauthorized, "login", p)
		return
	}
	if err := s.auth.Login(w, r, user); err != nil {
		s.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// handleLogout ends the session and shows the login page.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(w, r)
	p := page{
		Form:   map[string]string{"next": "/"},
		Errors: map[string]string{},
		Flash:  "Você saiu da sua conta.",
	}
	s.render(w, r, http.StatusOK, "login", p)
}
