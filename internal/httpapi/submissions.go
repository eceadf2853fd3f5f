package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"formgate.org/internal/obs"
	"formgate.org/internal/submission"
	"formgate.org/internal/validate"
)

const (
	maxUserAgentLen = 500
	maxIPLen        = 45
	maxSourceLen    = 100
	maxTimestampLen = 64
	defaultSource   = "website"
)

type field struct {
	name  string
	value *string
}

// missingFields lists required fields that are absent or blank, in order.
func missingFields(fields ...field) []string {
	var missing []string
	for _, f := range fields {
		if f.value == nil || strings.TrimSpace(*f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func errMissingFields(names []string) *apiError {
	return newAPIError(kindMissingFields, http.StatusBadRequest,
		"Missing required fields: "+strings.Join(names, ", ")).
		with("fields", names)
}

// checkRules runs each rule against its value and returns the first failure.
// Optional values that are empty are skipped.
func checkRules(checks ...ruleCheck) *apiError {
	for _, c := range checks {
		if c.optional && strings.TrimSpace(c.value) == "" {
			continue
		}
		if err := c.rule.Check(c.value); err != nil {
			var fe *validate.FieldError
			if errors.As(err, &fe) {
				return newAPIError(kindInvalidField, http.StatusBadRequest, fe.Error()).with("field", fe.Field)
			}
			return newAPIError(kindInvalidField, http.StatusBadRequest, err.Error())
		}
	}
	return nil
}

type ruleCheck struct {
	rule     validate.Rule
	value    string
	optional bool
}

func errInvalidChoice(field, msg string) *apiError {
	return newAPIError(kindInvalidChoice, http.StatusBadRequest, msg).with("field", field)
}

func errConsentRequired(msg string) *apiError {
	return newAPIError(kindConsentRequired, http.StatusBadRequest, msg)
}

// requestMeta captures the caller's address and agent, sanitized and
// truncated for storage.
func requestMeta(r *http.Request) submission.Meta {
	return submission.Meta{
		IP:        validate.Truncate(strings.TrimSpace(clientIP(r)), maxIPLen),
		UserAgent: validate.Truncate(validate.Sanitize(r.UserAgent()), maxUserAgentLen),
	}
}

func cleanSource(s string) string {
	s = validate.Truncate(validate.Sanitize(s), maxSourceLen)
	if s == "" {
		return defaultSource
	}
	return s
}

func optional(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func truthy(p *bool) bool {
	return p != nil && *p
}

// reject counts the failed submission and writes the error.
func reject(w http.ResponseWriter, r *http.Request, form string, e *apiError) {
	obs.SubmissionsTotal.WithLabelValues(form, string(e.Kind)).Inc()
	obs.Logger().Debug("submission rejected",
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.String("form", form),
		zap.String("code", string(e.Kind)),
		zap.String("reason", e.Message),
	)
	writeError(w, r, e)
}

func accepted(w http.ResponseWriter, form, id, msg string) {
	obs.SubmissionsTotal.WithLabelValues(form, "accepted").Inc()
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": msg,
		"id":      id,
	})
}
