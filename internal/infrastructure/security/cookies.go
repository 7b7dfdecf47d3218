package security

import (
	"net/http"
	"time"
)

const SessionCookieName = "session"

func cookieName(secure bool) string {
	if secure {
		return "__Host-" + SessionCookieName
	}
	return SessionCookieName
}

// SetSessionCookie writes the session handle. Persistent sessions get a
// MaxAge so browsers keep them across restarts; non-persistent ones become
// browser-session cookies regardless of the server-side TTL.
func SetSessionCookie(w http.ResponseWriter, handle string, ttl time.Duration, persistent, secure bool) {
	c := &http.Cookie{
		Name:     cookieName(secure),
		Value:    handle,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure, // prod=true, dev=false
		SameSite: http.SameSiteLaxMode,
	}
	if persistent {
		c.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c)
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(secure),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func ReadSessionCookie(r *http.Request) (string, error) {
	// Prefer the secure-prefixed cookie, fall back for local development.
	if c, err := r.Cookie("__Host-" + SessionCookieName); err == nil {
		return c.Value, nil
	}
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}
