// Package auth registers users, checks credentials and keeps server-side
// sessions referenced by an HttpOnly cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/storage"
)

const (
	SessionCookieName = "financas_session"
	DefaultSessionTTL = 30 * 24 * time.Hour
	LoginPath         = "/login"
)

// Authenticator is what the web layer needs from authentication.
type Authenticator interface {
	Register(ctx context.Context, in core.RegistrationInput) (core.User, error)
	Authenticate(ctx context.Context, username, password string) (core.User, error)
	Login(w http.ResponseWriter, r *http.Request, user core.User) error
	Logout(w http.ResponseWriter, r *http.Request)
	CurrentUser(r *http.Request) (core.User, bool)
	RequireLogin(next http.Handler) http.Handler
}

// Store is the persistence SessionAuth works on; *storage.SQLiteRepository
// implements it.
type Store interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (core.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	GetCredentials(ctx context.Context, username string) (core.User, string, error)
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	GetSession(ctx context.Context, token string) (storage.Session, error)
	RenewSession(ctx context.Context, token string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
}

type Options struct {
	TTL          time.Duration
	SecureCookie bool
	BcryptCost   int
	Now          func() time.Time
}

// SessionAuth implements Authenticator with bcrypt and SQLite sessions.
type SessionAuth struct {
	store  Store
	ttl    time.Duration
	secure bool
	cost   int
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

var _ Authenticator = (*SessionAuth)(nil)

func NewSessionAuth(store Store, opts Options) *SessionAuth {
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionAuth{
		store:  store,
		ttl:    opts.TTL,
		secure: opts.SecureCookie,
		cost:   opts.BcryptCost,
		now:    opts.Now,
	}
}

type userKey struct{}

// ContextWithUser stores the authenticated user in ctx.
func ContextWithUser(ctx context.Context, u core.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func UserFromContext(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(userKey{}).(core.User)
	return u, ok
}

// Register validates the form, rejects taken usernames and stores the new
// account. Errors about the input are *core.ValidationError.
func (a *SessionAuth) Register(ctx context.Context, in core.RegistrationInput) (core.User, error) {
	if err := in.Validate(); err != nil {
		return core.User{}, err
	}
	username := strings.TrimSpace(in.Username)

	exists, err := a.store.UsernameExists(ctx, username)
	if err != nil {
		return core.User{}, err
	}
	if exists {
		return core.User{}, usernameTaken()
	}

	hash, err := HashPassword(in.Password, a.cost)
	if err != nil {
		return core.User{}, err
	}
	user, err := a.store.CreateUser(ctx, username, in.Email, hash)
	if errors.Is(err, storage.ErrDuplicate) {
		return core.User{}, usernameTaken()
	}
	if err != nil {
		return core.User{}, err
	}

	log.FromContext(ctx).InfoContext(ctx, "User registered",
		log.FieldUserID, user.ID, log.FieldUsername, user.Username, log.FieldOperation, log.OpRegister)
	return user, nil
}

func usernameTaken() error {
	verr := core.NewValidationError()
	verr.Add(core.FieldUsername, "Este nome de usuário já está em uso.")
	return verr
}

// Authenticate returns core.ErrAuthentication for an unknown user and for a
// wrong password alike.
func (a *SessionAuth) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	user, hash, err := a.store.GetCredentials(ctx, strings.TrimSpace(username))
	if errors.Is(err, core.ErrNotFound) {
		// Keep the response time of unknown users close to known ones.
		CheckPassword(password, a.fakeHash())
		return core.User{}, core.ErrAuthentication
	}
	if err != nil {
		return core.User{}, err
	}
	if !CheckPassword(password, hash) {
		return core.User{}, core.ErrAuthentication
	}
	return user, nil
}

func (a *SessionAuth) fakeHash() string {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = HashPassword("financas-placeholder", a.cost)
	})
	return a.dummyHash
}

// Login creates a session for user and sets the cookie.
func (a *SessionAuth) Login(w http.ResponseWriter, r *http.Request, user core.User) error {
	token, err := GenerateSessionToken()
	if err != nil {
		return err
	}
	expiresAt := a.now().Add(a.ttl)
	if err := a.store.CreateSession(r.Context(), token, user.ID, expiresAt); err != nil {
		return fmt.Errorf("login %q: %w", user.Username, err)
	}
	a.setCookie(w, token)

	log.FromContext(r.Context()).InfoContext(r.Context(), "User logged in",
		log.FieldUserID, user.ID, log.FieldOperation, log.OpLogin)
	return nil
}

// Logout drops the server-side session, if any, and clears the cookie.
func (a *SessionAuth) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := a.store.DeleteSession(r.Context(), cookie.Value); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to delete session",
				log.FieldError, err, log.FieldOperation, log.OpLogout)
		}
	}
	a.clearCookie(w)
}

// CurrentUser returns the user Middleware resolved for r, or resolves the
// cookie itself when Middleware did not run.
func (a *SessionAuth) CurrentUser(r *http.Request) (core.User, bool) {
	if u, ok := UserFromContext(r.Context()); ok {
		return u, true
	}
	sess, ok := a.session(r)
	if !ok {
		return core.User{}, false
	}
	return sess.User, true
}

func (a *SessionAuth) session(r *http.Request) (storage.Session, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return storage.Session{}, false
	}
	sess, err := a.store.GetSession(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Session lookup failed", log.FieldError, err)
		}
		return storage.Session{}, false
	}
	return sess, true
}

// Middleware resolves the session cookie on every request and puts the user,
// if any, into the request context. Sessions in the second half of their
// lifetime are renewed. Stale cookies are cleared.
func (a *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		sess, ok := a.session(r)
		if !ok {
			a.clearCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		now := a.now()
		if sess.ExpiresAt.Sub(now) < a.ttl/2 {
			if err := a.store.RenewSession(r.Context(), sess.Token, now.Add(a.ttl)); err == nil {
				a.setCookie(w, sess.Token)
			}
		}

		ctx := ContextWithUser(r.Context(), sess.User)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, sess.User.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLogin redirects anonymous requests to the login page, carrying the
// original path in next.
func (a *SessionAuth) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.CurrentUser(r)
		if !ok {
			target := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

func (a *SessionAuth) setCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.ttl.Seconds()),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *SessionAuth) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SafeNext returns next if it is a local absolute path, "/" otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
