package httpapi

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"formgate.org/internal/auth"
	"formgate.org/internal/obs"
	"formgate.org/internal/submission"
)

type loginRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type sessionResponse struct {
	Username  string     `json:"username"`
	Method    string     `json:"method"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

const loginScope = "login"

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.allow(w, r, loginScope, a.limits.Login) {
		return
	}

	var req loginRequest
	if e := decodeJSON(r, &req); e != nil {
		writeError(w, r, e)
		return
	}
	if missing := missingFields(
		field{"username", req.Username},
		field{"password", req.Password},
	); len(missing) > 0 {
		writeError(w, r, errMissingFields(missing))
		return
	}

	username := strings.TrimSpace(*req.Username)
	if !a.credentials.Verify(username, *req.Password) {
		obs.AdminAuthTotal.WithLabelValues("login", "denied").Inc()
		a.audit(r, "admin.login.failed", map[string]any{"remote_ip": clientIP(r)})
		writeError(w, r, errInvalidCredentials())
		return
	}

	sess, err := a.sessions.Create(username)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	obs.AdminAuthTotal.WithLabelValues("login", "ok").Inc()
	obs.ActiveSessions.Set(float64(a.sessions.Len()))

	http.SetCookie(w, a.sessionCookie(sess.ID, int(a.sessions.TTL().Seconds())))
	ctx := auth.ContextWithPrincipal(r.Context(), auth.Principal{
		Username:  sess.Username,
		Method:    auth.MethodSession,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
	})
	a.audit(r.WithContext(ctx), "admin.login", map[string]any{"expires_at": sess.ExpiresAt.Format(time.RFC3339)})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Login successful",
		"expiresAt": sess.ExpiresAt,
	})
}

// handleLogout is idempotent: it always clears the cookie.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.SessionCookieName); err == nil && c.Value != "" {
		if sess, err := a.sessions.Lookup(c.Value); err == nil {
			ctx := auth.ContextWithPrincipal(r.Context(), auth.Principal{
				Username:  sess.Username,
				Method:    auth.MethodSession,
				SessionID: sess.ID,
			})
			a.audit(r.WithContext(ctx), "admin.logout", nil)
		}
		a.sessions.Invalidate(c.Value)
		obs.ActiveSessions.Set(float64(a.sessions.Len()))
	}
	http.SetCookie(w, a.sessionCookie("", -1))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out",
	})
}

func (a *API) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (a *API) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, errUnauthorized())
		return
	}
	resp := sessionResponse{Username: p.Username, Method: p.Method}
	if !p.ExpiresAt.IsZero() {
		resp.ExpiresAt = &p.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

var waitlistCSVHeader = []string{
	"id", "createdAt", "email", "company", "role", "phone", "countryCode",
	"organizationSize", "gdprConsent", "securityConsent", "source",
}

// handleWaitlistExport streams the waitlist as CSV with the same redactions
// as the JSON listing.
func (a *API) handleWaitlistExport(w http.ResponseWriter, r *http.Request) {
	list := a.waitlist.List(r.Context())
	a.audit(r, "admin.waitlist.export", map[string]any{"total": len(list)})

	name := "waitlist-" + a.now().UTC().Format("20060102") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(waitlistCSVHeader)
	for _, s := range list {
		_ = cw.Write(waitlistRow(s))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		obs.Logger().Sugar().Warnw("csv export interrupted", "request_id", RequestIDFromContext(r.Context()), "error", err)
	}
}

func waitlistRow(s submission.Waitlist) []string {
	return []string{
		s.ID,
		s.CreatedAt.UTC().Format(time.RFC3339),
		s.Email,
		csvCell(s.Company),
		csvCell(s.Role),
		s.Phone,
		s.CountryCode,
		s.OrganizationSize,
		strconv.FormatBool(s.GDPRConsent),
		strconv.FormatBool(s.SecurityConsent),
		csvCell(s.Source),
	}
}

// csvCell neutralises values a spreadsheet would evaluate as a formula.
func csvCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}
