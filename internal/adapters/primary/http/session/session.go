package session

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	cookieName = "site_deploy_session"
	userIDKey  = "user_id"
)

// Manager keeps the logged-in user id in a signed cookie.
type Manager struct {
	store *sessions.CookieStore
}

type Options struct {
	MaxAge int
	Secure bool
}

func NewManager(secret []byte, opts Options) *Manager {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store}
}

// Login records userID in the session and writes the cookie.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	sess, _ := m.store.Get(r, cookieName)
	sess.Values[userIDKey] = userID.String()
	return sess.Save(r, w)
}

// Logout expires the session cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, cookieName)
	delete(sess.Values, userIDKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// UserID returns the user id stored in the request's session. A missing,
// tampered or expired cookie reports false.
func (m *Manager) UserID(r *http.Request) (uuid.UUID, bool) {
	sess, err := m.store.Get(r, cookieName)
	if err != nil {
		return uuid.Nil, false
	}
	raw, ok := sess.Values[userIDKey].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
