package validate

import "slices"

// OrganizationSizes lists the accepted organization-size buckets.
var OrganizationSizes = []string{
	"1-10",
	"11-49",
	"50-100",
	"101-500",
	"501-1000",
	"1000+",
}

// CountryCodes lists the accepted international dialling prefixes.
var CountryCodes = []string{
	"+1", "+7", "+31", "+32", "+33", "+34", "+39", "+41", "+43", "+44",
	"+45", "+46", "+47", "+48", "+49", "+52", "+55", "+61", "+65", "+81",
	"+82", "+91", "+351", "+353", "+358", "+420", "+971",
}

// OneOf reports whether value is an exact member of allowed.
func OneOf(value string, allowed []string) bool {
	return slices.Contains(allowed, value)
}
