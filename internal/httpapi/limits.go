package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"formgate.org/internal/obs"
	"formgate.org/internal/ratelimit"
)

// allow charges one request against scope's fixed window for the caller and
// sets the X-RateLimit-* headers. On rejection it writes the 429 and returns
// false.
func (a *API) allow(w http.ResponseWriter, r *http.Request, scope string, lim Limit) bool {
	res := a.limiter.Check(ratelimit.Key(scope, clientIP(r)), lim.Max, lim.Window)

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	if res.Allowed {
		return true
	}

	secs := int(res.RetryAfter(a.limiter.Now()).Seconds())
	h.Set("Retry-After", strconv.Itoa(secs))
	obs.RateLimitedTotal.WithLabelValues(scope).Inc()
	writeError(w, r, newAPIError(kindRateLimited, http.StatusTooManyRequests,
		fmt.Sprintf("Too many requests. Please try again in %d seconds.", secs)).
		with("remaining", 0).
		with("retryAfter", secs))
	return false
}
