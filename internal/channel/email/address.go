package email

import (
	"github.com/go-playground/validator/v10"

	"transmit/internal/types"
)

// validate is safe for concurrent use and caches struct metadata, so a
// single instance is shared.
var validate = validator.New()

// IsValidEmailAddress reports whether addr is a syntactically valid email
// address. No trimming or case folding is applied.
func IsValidEmailAddress(addr types.IdentityAddress) bool {
	return validate.Var(addr.Value, "required,email") == nil
}
