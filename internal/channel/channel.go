// Package channel defines the contract every communication channel (SMS,
// email, push) implements and the pieces of the generation pipeline they
// share: static-or-resolver configuration values, message templates,
// resource-to-attachment mapping, the provider allow-list and the ordered
// precondition guards.
//
// A channel is a configuration object built once and reused. Generation
// never mutates it, so concurrent GenerateCommunication calls are safe once
// configuration is complete.
package channel

import (
	"context"

	"transmit/internal/types"
)

// Channel validates destination addresses for one medium and turns a
// dispatch context into a communication a provider adapter can carry.
type Channel interface {
	// Type returns the medium this channel produces communications for.
	Type() types.ChannelType

	// SupportsIdentityAddress reports whether addr is well-formed for this
	// channel. It never fails; malformed input yields false.
	SupportsIdentityAddress(addr types.IdentityAddress) bool

	// GenerateCommunication resolves the channel configuration against dc
	// and assembles the communication. It returns either a fully populated
	// communication or an error, never both.
	GenerateCommunication(ctx context.Context, dc *types.DispatchContext) (Communication, error)

	// AllowedChannelProviderIDs returns the provider ids this channel's
	// communications may be routed to. Empty means any provider. Generation
	// never consults it; the dispatch layer enforces it.
	AllowedChannelProviderIDs() []string
}

// Communication is the immutable output of generation. Concrete types (sms.Sms,
// email.Email, push.Push) carry the channel-specific fields.
type Communication interface {
	ChannelType() types.ChannelType
	Recipients() []types.IdentityAddress
	Priority() types.TransportPriority
	CallbackURL() string
}
