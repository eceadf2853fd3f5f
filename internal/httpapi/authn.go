package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"formgate.org/internal/audit"
	"formgate.org/internal/auth"
	"formgate.org/internal/obs"
)

const authHeader = "Authorization"

// requireAdmin lets the request through when the admin chain resolves a
// principal. The Basic challenge is only advertised when no Authorization
// header was sent.
func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.admin.Authenticate(r)
		if err != nil {
			outcome := "denied"
			if errors.Is(err, auth.ErrNoCredentials) {
				outcome = "missing"
			}
			obs.AdminAuthTotal.WithLabelValues("gate", outcome).Inc()
			if r.Header.Get(authHeader) == "" {
				for _, c := range a.admin.Challenges() {
					w.Header().Add("WWW-Authenticate", c)
				}
			}
			writeError(w, r, errUnauthorized())
			return
		}
		obs.AdminAuthTotal.WithLabelValues(p.Method, "ok").Inc()
		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), p)))
	})
}

// audit records an admin action; failures to log never fail the request.
func (a *API) audit(r *http.Request, event string, fields map[string]any) {
	if err := audit.LogEvent(r.Context(), event, fields); err != nil {
		obs.Logger().Warn("audit log failed", zap.String("event", event), zap.Error(err))
	}
}
