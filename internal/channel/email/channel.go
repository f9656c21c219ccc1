// Package email implements the email channel. Subject and bodies are
// content templates; at least one of the HTML or text body must be set.
// Resources become MIME attachments.
package email

import (
	"context"

	"transmit/internal/channel"
	"transmit/internal/types"
)

var _ channel.Channel = (*Channel)(nil)

// Channel is the email channel configuration.
type Channel struct {
	Subject  *channel.ContentTemplate
	HTMLBody *channel.ContentTemplate
	TextBody *channel.ContentTemplate

	from        channel.Value[types.IdentityAddress]
	replyTo     channel.Value[types.IdentityAddress]
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

// WithReplyTo sets a fixed reply-to address.
func WithReplyTo(addr types.IdentityAddress) Option {
	return func(c *Channel) { c.replyTo = channel.Static(addr) }
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

// WithTemplateEngine sets the engine for subject and both bodies.
func WithTemplateEngine(e channel.TemplateEngine) Option {
	return func(c *Channel) {
		c.Subject.SetEngine(e)
		c.HTMLBody.SetEngine(e)
		c.TextBody.SetEngine(e)
	}
}

// WithLogger sets the logger used at generation. A nil logger is ignored.
func WithLogger(l types.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds an email channel.
func New(opts ...Option) *Channel {
	c := &Channel{
		Subject:   channel.NewContentTemplate(),
		HTMLBody:  channel.NewContentTemplate(),
		TextBody:  channel.NewContentTemplate(),
		providers: channel.NewProviderSet(),
		logger:    types.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns types.ChannelEmail.
func (c *Channel) Type() types.ChannelType {
	return types.ChannelEmail
}

// From returns the fixed sender address, if one is configured.
func (c *Channel) From() (types.IdentityAddress, bool) {
	return c.from.StaticValue()
}

// SupportsIdentityAddress reports whether addr is a syntactically valid
// email address.
func (c *Channel) SupportsIdentityAddress(addr types.IdentityAddress) bool {
	return IsValidEmailAddress(addr)
}

// AllowedChannelProviderIDs returns the allow-list as a sorted copy.
func (c *Channel) AllowedChannelProviderIDs() []string {
	return c.providers.IDs()
}

// GenerateCommunication builds an Email from dc.
func (c *Channel) GenerateCommunication(ctx context.Context, dc *types.DispatchContext) (channel.Communication, error) {
	if err := channel.CheckPreconditions(dc, c.HTMLBody, c.TextBody); err != nil {
		return nil, err
	}

	from, err := channel.ResolveFrom(ctx, dc, c.from)
	if err != nil {
		return nil, err
	}
	replyTo, err := channel.ResolveFrom(ctx, dc, c.replyTo)
	if err != nil {
		return nil, err
	}

	subject, err := c.Subject.Render(ctx, dc)
	if err != nil {
		return nil, err
	}
	htmlBody, err := c.HTMLBody.Render(ctx, dc)
	if err != nil {
		return nil, err
	}
	textBody, err := c.TextBody.Render(ctx, dc)
	if err != nil {
		return nil, err
	}

	env, err := channel.BuildEnvelope(ctx, dc, c.callbackURL, true)
	if err != nil {
		return nil, err
	}

	c.logger.Info("email communication generated",
		"recipient_count", len(env.To),
		"attachment_count", len(env.Attachments),
		"has_html", htmlBody != "",
	)

	return &Email{
		from:        from,
		replyTo:     replyTo,
		to:          env.To,
		subject:     subject,
		htmlBody:    htmlBody,
		textBody:    textBody,
		attachments: env.Attachments,
		priority:    env.TransportPriority,
		callbackURL: env.DeliveryReportCallbackURL,
	}, nil
}
