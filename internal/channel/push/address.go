package push

import (
	"regexp"

	"transmit/internal/types"
)

const (
	minTokenLength = 32
	maxTokenLength = 4096
)

// tokenPattern covers APNs hex tokens, FCM registration tokens and
// web-push style ids drawn from a URL-safe alphabet. RE2 caps repeat counts
// at 1000, so the length bounds are checked separately.
var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_:.\-]+$`)

// IsValidDeviceToken reports whether addr looks like a push device token:
// 32 to 4096 characters from the token alphabet.
func IsValidDeviceToken(addr types.IdentityAddress) bool {
	n := len(addr.Value)
	if n < minTokenLength || n > maxTokenLength {
		return false
	}
	return tokenPattern.MatchString(addr.Value)
}
