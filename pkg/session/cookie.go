package session

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/different-technology/entra-be-auth/pkg/authpipe"
)

// CookieSession adapts a gorilla session to the pipeline's Session
// interface, scoped to one request/response pair. The host constructs one
// per request; writes are flushed to the response cookie on every Set and
// Destroy.
type CookieSession struct {
	store sessions.Store
	name  string
	w     http.ResponseWriter
	r     *http.Request
}

var _ authpipe.Session = (*CookieSession)(nil)

// NewCookieSession wraps the named session from store for this request.
func NewCookieSession(store sessions.Store, name string, w http.ResponseWriter, r *http.Request) *CookieSession {
	return &CookieSession{store: store, name: name, w: w, r: r}
}

// Get returns the string value stored under key.
func (s *CookieSession) Get(key string) (string, bool) {
	// Get returns a fresh session on decode errors, which reads as "absent"
	sess, _ := s.store.Get(s.r, s.name)
	v, ok := sess.Values[key].(string)
	return v, ok
}

// Set stores value under key and saves the session.
func (s *CookieSession) Set(key, value string) error {
	sess, _ := s.store.Get(s.r, s.name)
	sess.Values[key] = value
	return sess.Save(s.r, s.w)
}

// Destroy drops all values and expires the session cookie.
func (s *CookieSession) Destroy() error {
	sess, _ := s.store.Get(s.r, s.name)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	return sess.Save(s.r, s.w)
}
