package httpapi

import (
	"net/http"

	"formgate.org/internal/submission"
	"formgate.org/internal/validate"
)

// Pointer fields tell "absent" apart from the zero value.
type waitlistRequest struct {
	Email            *string `json:"email"`
	Company          *string `json:"company"`
	Role             *string `json:"role"`
	Phone            *string `json:"phone"`
	CountryCode      *string `json:"countryCode"`
	OrganizationSize *string `json:"organizationSize"`
	GDPRConsent      *bool   `json:"gdprConsent"`
	SecurityConsent  *bool   `json:"securityConsent"`
	Timestamp        string  `json:"timestamp"`
	Source           string  `json:"source"`
	CSRFToken        string  `json:"csrfToken"`
}

type waitlistListResponse struct {
	Submissions []submission.Waitlist `json:"submissions"`
	Total       int                   `json:"total"`
}

// handleWaitlistSubmit runs the submission pipeline; the first failing step
// ends the request.
func (a *API) handleWaitlistSubmit(w http.ResponseWriter, r *http.Request) {
	const form = submission.FormWaitlist

	if !a.allow(w, r, form, a.limits.Waitlist) {
		return
	}

	var req waitlistRequest
	if e := decodeJSON(r, &req); e != nil {
		reject(w, r, form, e)
		return
	}
	if err := a.checkCSRF(r, req.CSRFToken); err != nil {
		reject(w, r, form, errInvalidCSRF())
		return
	}

	if missing := missingFields(
		field{"email", req.Email},
		field{"company", req.Company},
		field{"role", req.Role},
		field{"organizationSize", req.OrganizationSize},
	); len(missing) > 0 {
		reject(w, r, form, errMissingFields(missing))
		return
	}

	if e := checkRules(
		ruleCheck{rule: validate.Email, value: *req.Email},
		ruleCheck{rule: validate.Company, value: *req.Company},
		ruleCheck{rule: validate.Role, value: *req.Role},
		ruleCheck{rule: validate.Phone, value: optional(req.Phone), optional: true},
	); e != nil {
		reject(w, r, form, e)
		return
	}

	size := *req.OrganizationSize
	if !validate.OneOf(size, validate.OrganizationSizes) {
		reject(w, r, form, errInvalidChoice("organizationSize", "Invalid organization size"))
		return
	}
	country := optional(req.CountryCode)
	if country != "" && !validate.OneOf(country, validate.CountryCodes) {
		reject(w, r, form, errInvalidChoice("countryCode", "Invalid country code"))
		return
	}

	if !truthy(req.GDPRConsent) || !truthy(req.SecurityConsent) {
		reject(w, r, form, errConsentRequired("Both privacy and security consents are required"))
		return
	}

	rec, err := a.waitlist.Append(r.Context(), submission.Waitlist{
		Email:            validate.NormalizeEmail(*req.Email),
		Company:          validate.Sanitize(*req.Company),
		Role:             validate.Sanitize(*req.Role),
		Phone:            validate.Sanitize(optional(req.Phone)),
		CountryCode:      country,
		OrganizationSize: size,
		GDPRConsent:      true,
		SecurityConsent:  true,
		Source:           cleanSource(req.Source),
		ClientTimestamp:  validate.Truncate(validate.Sanitize(req.Timestamp), maxTimestampLen),
		Meta:             requestMeta(r),
	})
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	accepted(w, form, rec.ID, "Successfully joined the waitlist")
}

func (a *API) handleWaitlistList(w http.ResponseWriter, r *http.Request) {
	list := a.waitlist.List(r.Context())
	a.audit(r, "admin.waitlist.list", map[string]any{"total": len(list)})
	writeJSON(w, http.StatusOK, waitlistListResponse{Submissions: list, Total: len(list)})
}
