package submission

import (
	"errors"
	"time"
)

// DefaultRetention is how long submissions are kept before the lazy sweep
// drops them.
const DefaultRetention = 7 * 365 * 24 * time.Hour

// Form names, also used as metric labels and rate-limit scopes.
const (
	FormWaitlist = "waitlist"
	FormContact  = "contact"
)

var ErrMissingConsent = errors.New("consent is required")

// Record is implemented by everything a Store can hold. Stamp returns a copy
// carrying the identifier and creation time assigned on insert.
type Record[R any] interface {
	Created() time.Time
	Stamp(id string, at time.Time) R
	Consented() bool
}

// Meta is request metadata captured with a submission. It is never exposed
// through admin listings.
type Meta struct {
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// Waitlist is a stored waitlist sign-up. Records are never mutated after
// insert.
type Waitlist struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Company          string    `json:"company"`
	Role             string    `json:"role"`
	Phone            string    `json:"phone,omitempty"`
	CountryCode      string    `json:"countryCode,omitempty"`
	OrganizationSize string    `json:"organizationSize"`
	GDPRConsent      bool      `json:"gdprConsent"`
	SecurityConsent  bool      `json:"securityConsent"`
	Source           string    `json:"source,omitempty"`
	ClientTimestamp  string    `json:"clientTimestamp,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	Meta
}

func (w Waitlist) Created() time.Time { return w.CreatedAt }

func (w Waitlist) Consented() bool { return w.GDPRConsent && w.SecurityConsent }

func (w Waitlist) Stamp(id string, at time.Time) Waitlist {
	w.ID = id
	w.CreatedAt = at
	return w
}

// Contact is a stored contact-form message.
type Contact struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Company         string    `json:"company,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	CountryCode     string    `json:"countryCode,omitempty"`
	Message         string    `json:"message"`
	GDPRConsent     bool      `json:"gdprConsent"`
	Source          string    `json:"source,omitempty"`
	ClientTimestamp string    `json:"clientTimestamp,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	Meta
}

func (c Contact) Created() time.Time { return c.CreatedAt }

func (c Contact) Consented() bool { return c.GDPRConsent }

func (c Contact) Stamp(id string, at time.Time) Contact {
	c.ID = id
	c.CreatedAt = at
	return c
}
