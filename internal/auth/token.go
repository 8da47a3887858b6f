package auth

import (
	"net/http"
	"strings"
)

// SessionCookie is set by the admin dashboard after sign-in.
const SessionCookie = "admin_session"

// ExtractAccessToken reads the dashboard session cookie, falling back to a
// bearer Authorization header for API clients.
func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
