package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"formgate.org/internal/auth"
)

const csrfHeader = "X-CSRF-Token"

func (a *API) handleCSRF(w http.ResponseWriter, r *http.Request) {
	if !a.csrf.Enabled() {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	tok, err := a.csrf.Issue()
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CSRFCookieName,
		Value:    tok.Nonce,
		Path:     "/api",
		MaxAge:   int(tok.ExpiresAt.Sub(a.now()).Seconds()),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
	})
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":   true,
		"csrfToken": tok.Token,
		"expiresAt": tok.ExpiresAt,
	})
}

// checkCSRF verifies the submitted token against the nonce cookie. It passes
// everything when no secret is configured.
func (a *API) checkCSRF(r *http.Request, bodyToken string) error {
	if !a.csrf.Enabled() {
		return nil
	}
	token := strings.TrimSpace(r.Header.Get(csrfHeader))
	if token == "" {
		token = strings.TrimSpace(bodyToken)
	}
	cookie, err := r.Cookie(auth.CSRFCookieName)
	if err != nil {
		return errors.Join(auth.ErrInvalidCSRF, err)
	}
	return a.csrf.Verify(token, cookie.Value)
}
