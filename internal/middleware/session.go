package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "rehab_session"
	tokenKey    = "token"
)

// SessionCookies carries the login session token in a signed cookie.
type SessionCookies struct {
	store sessions.Store
}

// NewSessionCookies creates a cookie store signed with secret.
func NewSessionCookies(secret string, maxAgeSeconds int, secure bool) *SessionCookies {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAgeSeconds,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionCookies{store: store}
}

// Save stores the session token in the cookie.
func (c *SessionCookies) Save(w http.ResponseWriter, r *http.Request, token string) error {
	return c.Set(w, r, tokenKey, token)
}

// Set stores a value in the cookie under key.
func (c *SessionCookies) Set(w http.ResponseWriter, r *http.Request, key, value string) error {
	session, _ := c.store.Get(r, sessionName)
	session.Values[key] = value
	return session.Save(r, w)
}

// Pop returns the value stored under key and removes it from the cookie.
func (c *SessionCookies) Pop(w http.ResponseWriter, r *http.Request, key string) string {
	session, err := c.store.Get(r, sessionName)
	if err != nil {
		return ""
	}
	value, _ := session.Values[key].(string)
	if value != "" {
		delete(session.Values, key)
		_ = session.Save(r, w)
	}
	return value
}

// Clear expires the cookie.
func (c *SessionCookies) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := c.store.Get(r, sessionName)
	delete(session.Values, tokenKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// Token returns the session token from the Authorization header or the cookie.
func (c *SessionCookies) Token(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	session, err := c.store.Get(r, sessionName)
	if err != nil {
		return ""
	}
	token, _ := session.Values[tokenKey].(string)
	return token
}
