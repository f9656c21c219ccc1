package types

import (
	"io"
	"strings"
)

// IdentityAddress is an addressable endpoint: a phone number, an email
// address or a device token. Whether it is valid depends on the channel
// that receives it, so construction never fails.
type IdentityAddress struct {
	Value   string `json:"value"`
	Display string `json:"display,omitempty"`
}

// AsIdentityAddress wraps a raw string without any normalization.
func AsIdentityAddress(value string) IdentityAddress {
	return IdentityAddress{Value: value}
}

// String returns the raw address value.
func (a IdentityAddress) String() string {
	return a.Value
}

// IsZero reports whether the address carries no value.
func (a IdentityAddress) IsZero() bool {
	return a.Value == ""
}

// Resource is a named binary payload that channels may turn into an
// attachment. Content is consumed during generation: seekable content is
// rewound before each read, closable content is closed after it.
type Resource struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// NewResource builds a Resource. The name is required.
func NewResource(name, contentType string, content io.Reader) (*Resource, error) {
	if strings.TrimSpace(name) == "" {
		return nil, NewAppError(ErrCodeValidationMissingField, "resource name is required", nil)
	}
	return &Resource{
		Name:        name,
		ContentType: contentType,
		Content:     content,
	}, nil
}

// ContentModel is the content half of a dispatch: the data the channel's
// message template binds to, and the resources to attach.
type ContentModel struct {
	Model     any
	Resources []*Resource
}

// PlatformIdentity is one recipient (a user, a device group) holding one or
// more addresses.
type PlatformIdentity struct {
	ID        string            `json:"id,omitempty"`
	Type      string            `json:"type,omitempty"`
	Addresses []IdentityAddress `json:"addresses"`
}

// DispatchContext bundles everything a channel needs for one dispatch
// attempt. Channels treat it as read-only.
type DispatchContext struct {
	ContentModel       *ContentModel
	PlatformIdentities []PlatformIdentity
	TransportPriority  TransportPriority

	// ChannelID and CultureInfo are informational; resolvers may use them
	// to pick a sender or a localized template.
	ChannelID   string
	CultureInfo string
}

// Recipients flattens every address of every identity, in identity order
// then address order. Duplicates are kept.
func (dc *DispatchContext) Recipients() []IdentityAddress {
	out := make([]IdentityAddress, 0, dc.addressCount())
	for _, pi := range dc.PlatformIdentities {
		out = append(out, pi.Addresses...)
	}
	return out
}

// Resources returns the content model's resources, or nil when there is no
// content model.
func (dc *DispatchContext) Resources() []*Resource {
	if dc.ContentModel == nil {
		return nil
	}
	return dc.ContentModel.Resources
}

// Model returns the content model's template data, or nil.
func (dc *DispatchContext) Model() any {
	if dc.ContentModel == nil {
		return nil
	}
	return dc.ContentModel.Model
}

// WithIdentities returns a shallow copy of dc targeting only the given
// identities. The content model is shared.
func (dc *DispatchContext) WithIdentities(identities []PlatformIdentity) *DispatchContext {
	cp := *dc
	cp.PlatformIdentities = identities
	return &cp
}

// WithResources returns a shallow copy of dc whose content model carries
// the given resources. The original content model is untouched.
func (dc *DispatchContext) WithResources(resources []*Resource) *DispatchContext {
	cp := *dc
	cm := ContentModel{}
	if dc.ContentModel != nil {
		cm = *dc.ContentModel
	}
	cm.Resources = resources
	cp.ContentModel = &cm
	return &cp
}

func (dc *DispatchContext) addressCount() int {
	n := 0
	for _, pi := range dc.PlatformIdentities {
		n += len(pi.Addresses)
	}
	return n
}
