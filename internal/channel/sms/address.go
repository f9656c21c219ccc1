package sms

import (
	"regexp"

	"transmit/internal/types"
)

// phonePattern accepts an optional leading '+' followed by ASCII digits only.
// Separators of any kind are rejected. Length is deliberately unbounded:
// service numbers such as "+64010" are valid.
var phonePattern = regexp.MustCompile(`^\+?[0-9]+$`)

// IsValidPhoneNumber reports whether addr is syntactically a phone number
// this channel can address. No normalization is applied.
func IsValidPhoneNumber(addr types.IdentityAddress) bool {
	return phonePattern.MatchString(addr.Value)
}
