// Package sms implements the SMS channel: phone number syntax checks and
// assembly of Sms communications.
package sms

import (
	"context"

	"transmit/internal/channel"
	"transmit/internal/types"
)

var _ channel.Channel = (*Channel)(nil)

// Channel is the SMS channel configuration. Message may be configured after
// construction but must be set before the first generation, and the channel
// must not be reconfigured while generations are in flight.
type Channel struct {
	// Message is the body template.
	Message *channel.ContentTemplate

	from        channel.Value[types.IdentityAddress]
	callbackURL channel.Value[string]
	providers   channel.ProviderSet
	logger      types.Logger
}

// Option configures a Channel.
type Option func(*Channel)

// WithFrom sets a fixed sender address.
func WithFrom(addr types.IdentityAddress) Option {
	return func(c *Channel) { c.from = channel.Static(addr) }
}

// WithFromResolver computes the sender per dispatch.
func WithFromResolver(fn channel.ResolverFunc[types.IdentityAddress]) Option {
	return func(c *Channel) { c.from = channel.Resolve(fn) }
}

// WithProviderIDs restricts which provider adapters may carry this
// channel's communications.
func WithProviderIDs(ids ...string) Option {
	return func(c *Channel) { c.providers = channel.NewProviderSet(ids...) }
}

// WithDeliveryReportCallbackURL sets a fixed status callback URL.
func WithDeliveryReportCallbackURL(url string) Option {
	return func(c *Channel) { c.callbackURL = channel.Static(url) }
}

// WithDeliveryReportCallbackURLResolver computes the status callback URL
// per dispatch.
func WithDeliveryReportCallbackURLResolver(fn channel.ResolverFunc[string]) Option {
	return func(c *Channel) { c.callbackURL = channel.Resolve(fn) }
}

// WithTemplateEngine renders the message template against the content model.
func WithTemplateEngine(e channel.TemplateEngine) Option {
	return func(c *Channel) { c.Message.SetEngine(e) }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l types.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds an SMS channel. With no options it has no sender, no provider
// restriction and no message.
func New(opts ...Option) *Channel {
	c := &Channel{
		Message:   channel.NewContentTemplate(),
		providers: channel.NewProviderSet(),
		logger:    types.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns types.ChannelSMS.
func (c *Channel) Type() types.ChannelType {
	return types.ChannelSMS
}

// From returns the fixed sender address, if one is configured.
func (c *Channel) From() (types.IdentityAddress, bool) {
	return c.from.StaticValue()
}

// SetFrom replaces the sender with a fixed address.
func (c *Channel) SetFrom(addr types.IdentityAddress) {
	c.from = channel.Static(addr)
}

// SetFromResolver replaces the sender with a resolver.
func (c *Channel) SetFromResolver(fn channel.ResolverFunc[types.IdentityAddress]) {
	c.from = channel.Resolve(fn)
}

// DeliveryReportCallbackURL returns the configured callback value.
func (c *Channel) DeliveryReportCallbackURL() channel.Value[string] {
	return c.callbackURL
}

// SupportsIdentityAddress reports whether addr is a syntactically valid
// phone number.
func (c *Channel) SupportsIdentityAddress(addr types.IdentityAddress) bool {
	return IsValidPhoneNumber(addr)
}

// AllowedChannelProviderIDs returns the provider allow-list.
func (c *Channel) AllowedChannelProviderIDs() []string {
	return c.providers.IDs()
}

// GenerateCommunication builds an Sms from dc.
func (c *Channel) GenerateCommunication(ctx context.Context, dc *types.DispatchContext) (channel.Communication, error) {
	if err := channel.CheckPreconditions(dc, c.Message); err != nil {
		return nil, err
	}

	from, err := channel.ResolveFrom(ctx, dc, c.from)
	if err != nil {
		return nil, err
	}

	body, err := c.Message.Render(ctx, dc)
	if err != nil {
		return nil, err
	}

	env, err := channel.BuildEnvelope(ctx, dc, c.callbackURL, true)
	if err != nil {
		return nil, err
	}

	c.logger.Info("sms communication generated",
		"recipient_count", len(env.To),
		"attachment_count", len(env.Attachments),
		"priority", string(env.TransportPriority),
	)

	return &Sms{
		from:        from,
		to:          env.To,
		message:     body,
		attachments: env.Attachments,
		priority:    env.TransportPriority,
		callbackURL: env.DeliveryReportCallbackURL,
	}, nil
}
