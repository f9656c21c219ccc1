package push

import (
	"slices"

	"transmit/internal/channel"
	"transmit/internal/types"
)

var _ channel.Communication = (*Push)(nil)

// Push is a fully resolved push notification. Push carries no attachments.
type Push struct {
	to          []types.IdentityAddress
	title       string
	body        string
	imageURL    string
	priority    types.TransportPriority
	callbackURL string
}

// To returns the device tokens in identity-then-address order.
func (p *Push) To() []types.IdentityAddress { return slices.Clone(p.to) }
func (p *Push) Title() string { return p.title }
func (p *Push) Body() string { return p.body }
func (p *Push) ImageURL() string { return p.imageURL }

func (p *Push) ChannelType() types.ChannelType { return types.ChannelPush }
func (p *Push) Recipients() []types.IdentityAddress { return p.To() }
func (p *Push) Priority() types.TransportPriority { return p.priority }
func (p *Push) CallbackURL() string { return p.callbackURL }
