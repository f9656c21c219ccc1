package sms

import (
	"slices"

	"transmit/internal/channel"
	"transmit/internal/types"
)

var _ channel.Communication = (*Sms)(nil)

// Sms is a fully resolved SMS communication. It shares no storage with the
// channel or the dispatch context that produced it; accessors return copies.
type Sms struct {
	from        *types.IdentityAddress
	to          []types.IdentityAddress
	message     string
	attachments []channel.Attachment
	priority    types.TransportPriority
	callbackURL string
}

// From returns the sender, or nil when the provider's default applies.
func (s *Sms) From() *types.IdentityAddress {
	if s.from == nil {
		return nil
	}
	from := *s.from
	return &from
}

// To returns the recipients in identity-then-address order.
func (s *Sms) To() []types.IdentityAddress { return slices.Clone(s.to) }

// Message returns the rendered body.
func (s *Sms) Message() string { return s.message }

// Attachments returns the MMS attachments, in resource order.
func (s *Sms) Attachments() []channel.Attachment { return slices.Clone(s.attachments) }

// TransportPriority returns the priority copied from the dispatch context.
func (s *Sms) TransportPriority() types.TransportPriority { return s.priority }

// DeliveryReportCallbackURL returns the resolved status callback, or "".
func (s *Sms) DeliveryReportCallbackURL() string { return s.callbackURL }

func (s *Sms) ChannelType() types.ChannelType { return types.ChannelSMS }
func (s *Sms) Recipients() []types.IdentityAddress { return s.To() }
func (s *Sms) Priority() types.TransportPriority { return s.priority }
func (s *Sms) CallbackURL() string { return s.callbackURL }
