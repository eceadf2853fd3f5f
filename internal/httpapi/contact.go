package httpapi

import (
	"net/http"

	"formgate.org/internal/submission"
	"formgate.org/internal/validate"
)

type contactRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Company     *string `json:"company"`
	Phone       *string `json:"phone"`
	CountryCode *string `json:"countryCode"`
	Message     *string `json:"message"`
	GDPRConsent *bool   `json:"gdprConsent"`
	Timestamp   string  `json:"timestamp"`
	Source      string  `json:"source"`
	CSRFToken   string  `json:"csrfToken"`
}

type contactListResponse struct {
	Messages []submission.Contact `json:"messages"`
	Total    int                  `json:"total"`
}

func (a *API) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	const form = submission.FormContact

	if !a.allow(w, r, form, a.limits.Contact) {
		return
	}

	var req contactRequest
	if e := decodeJSON(r, &req); e != nil {
		reject(w, r, form, e)
		return
	}
	if err := a.checkCSRF(r, req.CSRFToken); err != nil {
		reject(w, r, form, errInvalidCSRF())
		return
	}

	if missing := missingFields(
		field{"name", req.Name},
		field{"email", req.Email},
		field{"message", req.Message},
	); len(missing) > 0 {
		reject(w, r, form, errMissingFields(missing))
		return
	}

	if e := checkRules(
		ruleCheck{rule: validate.Name, value: *req.Name},
		ruleCheck{rule: validate.Email, value: *req.Email},
		ruleCheck{rule: validate.Company, value: optional(req.Company), optional: true},
		ruleCheck{rule: validate.Phone, value: optional(req.Phone), optional: true},
		ruleCheck{rule: validate.Message, value: *req.Message},
	); e != nil {
		reject(w, r, form, e)
		return
	}

	country := optional(req.CountryCode)
	if country != "" && !validate.OneOf(country, validate.CountryCodes) {
		reject(w, r, form, errInvalidChoice("countryCode", "Invalid country code"))
		return
	}

	if !truthy(req.GDPRConsent) {
		reject(w, r, form, errConsentRequired("Privacy consent is required"))
		return
	}

	rec, err := a.contacts.Append(r.Context(), submission.Contact{
		Name:            validate.Sanitize(*req.Name),
		Email:           validate.NormalizeEmail(*req.Email),
		Company:         validate.Sanitize(optional(req.Company)),
		Phone:           validate.Sanitize(optional(req.Phone)),
		CountryCode:     country,
		Message:         validate.Sanitize(*req.Message),
		GDPRConsent:     true,
		Source:          cleanSource(req.Source),
		ClientTimestamp: validate.Truncate(validate.Sanitize(req.Timestamp), maxTimestampLen),
		Meta:            requestMeta(r),
	})
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	accepted(w, form, rec.ID, "Thank you for your message")
}

func (a *API) handleContactList(w http.ResponseWriter, r *http.Request) {
	list := a.contacts.List(r.Context())
	a.audit(r, "admin.contact.list", map[string]any{"total": len(list)})
	writeJSON(w, http.StatusOK, contactListResponse{Messages: list, Total: len(list)})
}
