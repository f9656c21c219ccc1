// Package push implements the push notification channel.
package push

import (
	"context"

	"transmit/internal/channel"
	"transmit/internal/types"
)

var _ channel.Channel = (*Channel)(nil)

// Channel is the push channel configuration. Body is required; Title and
// ImageURL are optional.
type Channel struct {
	Title    *channel.ContentTemplate
	Body     *channel.ContentTemplate
	ImageURL channel.Value[string]

	callbackURL channel.Value[string]
	providers   channel.ProviderSet
	logger      types.Logger
}

// Option configures a Channel.
type Option func(*Channel)

func WithProviderIDs(ids ...string) Option {
	return func(c *Channel) { c.providers = channel.NewProviderSet(ids...) }
}

func WithImageURL(url string) Option {
	return func(c *Channel) { c.ImageURL = channel.Static(url) }
}

func WithDeliveryReportCallbackURL(url string) Option {
	return func(c *Channel) { c.callbackURL = channel.Static(url) }
}

func WithTemplateEngine(e channel.TemplateEngine) Option {
	return func(c *Channel) {
		c.Title.SetEngine(e)
		c.Body.SetEngine(e)
	}
}

func WithLogger(l types.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a push channel.
func New(opts ...Option) *Channel {
	c := &Channel{
		Title:     channel.NewContentTemplate(),
		Body:      channel.NewContentTemplate(),
		providers: channel.NewProviderSet(),
		logger:    types.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Channel) Type() types.ChannelType {
	return types.ChannelPush
}

func (c *Channel) SupportsIdentityAddress(addr types.IdentityAddress) bool {
	return IsValidDeviceToken(addr)
}

func (c *Channel) AllowedChannelProviderIDs() []string {
	return c.providers.IDs()
}

// GenerateCommunication builds a Push from dc. Resources in the content
// model are ignored and their streams left untouched.
func (c *Channel) GenerateCommunication(ctx context.Context, dc *types.DispatchContext) (channel.Communication, error) {
	if err := channel.CheckPreconditions(dc, c.Body); err != nil {
		return nil, err
	}

	title, err := c.Title.Render(ctx, dc)
	if err != nil {
		return nil, err
	}
	body, err := c.Body.Render(ctx, dc)
	if err != nil {
		return nil, err
	}
	imageURL, err := c.ImageURL.Get(ctx, dc)
	if err != nil {
		return nil, err
	}

	env, err := channel.BuildEnvelope(ctx, dc, c.callbackURL, false)
	if err != nil {
		return nil, err
	}

	c.logger.Info("push communication generated", "recipient_count", len(env.To))

	return &Push{
		to:          env.To,
		title:       title,
		body:        body,
		imageURL:    imageURL,
		priority:    env.TransportPriority,
		callbackURL: env.DeliveryReportCallbackURL,
	}, nil
}
