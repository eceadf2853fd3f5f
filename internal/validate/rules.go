package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrRequired        = errors.New("is required")
	ErrTooShort        = errors.New("is too short")
	ErrPatternMismatch = errors.New("has an invalid format")
)

// MinLength is the shortest sanitized value any rule accepts.
const MinLength = 2

// FieldError reports which field failed and why. Err is one of the package
// sentinels so callers can match with errors.Is.
type FieldError struct {
	Field string
	Label string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Label, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Rule pairs a field with the pattern its sanitized value must satisfy.
// Strict rules also reject values that sanitization had to alter: an email
// address carrying markup is refused rather than silently repaired.
type Rule struct {
	Field   string
	Label   string
	Pattern *regexp.Regexp
	Strict  bool
}

var (
	Email = Rule{
		Field:   "email",
		Label:   "Email",
		Pattern: regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`),
		Strict:  true,
	}
	Name = Rule{
		Field:   "name",
		Label:   "Name",
		Pattern: regexp.MustCompile(`^[a-zA-ZÀ-ÖØ-öø-ÿ\s'.\-]{2,100}$`),
	}
	Company = Rule{
		Field:   "company",
		Label:   "Company",
		Pattern: regexp.MustCompile(`^[\p{L}\p{N}\s&.,'()\-]{2,200}$`),
	}
	Role = Rule{
		Field:   "role",
		Label:   "Role",
		Pattern: regexp.MustCompile(`^[\p{L}\p{N}\s&.,'()/\-]{2,100}$`),
	}
	Phone = Rule{
		Field:   "phone",
		Label:   "Phone",
		Pattern: regexp.MustCompile(`^\+?[0-9\s().\-]{6,20}$`),
		Strict:  true,
	}
	Message = Rule{
		Field:   "message",
		Label:   "Message",
		Pattern: regexp.MustCompile(`(?s)^.{10,1000}$`),
	}
)

// Check validates value against the rule. The pattern and length checks run on
// the sanitized value, the same value that ends up stored.
func (r Rule) Check(value string) error {
	return check(value, r.Pattern, r.Field, r.Label, r.Strict)
}

// Check validates an arbitrary value against pattern, labelling failures with
// label.
func Check(value string, pattern *regexp.Regexp, label string) error {
	return check(value, pattern, strings.ToLower(label), label, false)
}

func check(value string, pattern *regexp.Regexp, field, label string, strict bool) error {
	if strings.TrimSpace(value) == "" {
		return &FieldError{Field: field, Label: label, Err: ErrRequired}
	}
	clean := Sanitize(value)
	if utf8.RuneCountInString(clean) < MinLength {
		return &FieldError{Field: field, Label: label, Err: ErrTooShort}
	}
	if strict && clean != strings.TrimSpace(value) {
		return &FieldError{Field: field, Label: label, Err: ErrPatternMismatch}
	}
	if pattern != nil && !pattern.MatchString(clean) {
		return &FieldError{Field: field, Label: label, Err: ErrPatternMismatch}
	}
	return nil
}
