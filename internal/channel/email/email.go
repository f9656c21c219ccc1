package email

import (
	"slices"

	"transmit/internal/channel"
	"transmit/internal/types"
)

var _ channel.Communication = (*Email)(nil)

// Email is a fully resolved email communication.
type Email struct {
	from        *types.IdentityAddress
	replyTo     *types.IdentityAddress
	to          []types.IdentityAddress
	subject     string
	htmlBody    string
	textBody    string
	attachments []channel.Attachment
	priority    types.TransportPriority
	callbackURL string
}

// From returns the sender, or nil when the provider's default applies.
func (e *Email) From() *types.IdentityAddress { return copyAddr(e.from) }

// ReplyTo returns the reply-to address, or nil.
func (e *Email) ReplyTo() *types.IdentityAddress { return copyAddr(e.replyTo) }

// To returns a copy of the recipient list.
func (e *Email) To() []types.IdentityAddress { return slices.Clone(e.to) }

// Subject returns the rendered subject line.
func (e *Email) Subject() string { return e.subject }

// HTMLBody returns the rendered HTML body, or "" when none is configured.
func (e *Email) HTMLBody() string { return e.htmlBody }

// TextBody returns the rendered plain-text body, or "" when none is configured.
func (e *Email) TextBody() string { return e.textBody }

// Attachments returns a copy of the attachment list.
func (e *Email) Attachments() []channel.Attachment { return slices.Clone(e.attachments) }

// TransportPriority returns the priority copied from the dispatch context.
func (e *Email) TransportPriority() types.TransportPriority { return e.priority }

// DeliveryReportCallbackURL returns the resolved status callback URL.
func (e *Email) DeliveryReportCallbackURL() string { return e.callbackURL }

// ChannelType returns types.ChannelEmail.
func (e *Email) ChannelType() types.ChannelType { return types.ChannelEmail }

// Recipients is To, for the Communication interface.
func (e *Email) Recipients() []types.IdentityAddress { return e.To() }

// Priority is TransportPriority, for the Communication interface.
func (e *Email) Priority() types.TransportPriority { return e.priority }

// CallbackURL is DeliveryReportCallbackURL, for the Communication interface.
func (e *Email) CallbackURL() string { return e.callbackURL }

func copyAddr(a *types.IdentityAddress) *types.IdentityAddress {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
