package channel

import (
	"context"

	"transmit/internal/types"
)

// CheckPreconditions runs the generation guards in a fixed order so the
// reported cause is deterministic: a nil context first, then a missing
// message template. At least one of messages must be configured; channels
// with alternative bodies (email HTML or text) pass each of them. It
// touches no other state.
func CheckPreconditions(dc *types.DispatchContext, messages ...*ContentTemplate) error {
	if dc == nil {
		return types.NewAppError(types.ErrCodeInvalidArgument, "dispatch context is nil", nil)
	}
	for _, m := range messages {
		if m.IsConfigured() {
			return nil
		}
	}
	return types.NewAppError(types.ErrCodeCommunications, "message template is not configured", nil)
}

// Envelope holds the channel-agnostic parts of a communication.
type Envelope struct {
	To                        []types.IdentityAddress
	Attachments               []Attachment
	TransportPriority         types.TransportPriority
	DeliveryReportCallbackURL string
}

// BuildEnvelope flattens the recipients of dc, maps its resources when
// withAttachments is set, copies the priority and resolves the delivery
// report callback URL. It returns ctx.Err() if the context is done by the
// time everything is resolved.
func BuildEnvelope(ctx context.Context, dc *types.DispatchContext, callbackURL Value[string], withAttachments bool) (Envelope, error) {
	env := Envelope{
		To:                dc.Recipients(),
		TransportPriority: dc.TransportPriority,
		Attachments:       []Attachment{},
	}

	if withAttachments {
		atts, err := MapAttachments(ctx, dc.Resources())
		if err != nil {
			return Envelope{}, err
		}
		env.Attachments = atts
	}

	url, err := callbackURL.Get(ctx, dc)
	if err != nil {
		return Envelope{}, err
	}
	env.DeliveryReportCallbackURL = url

	if err := ctx.Err(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// ResolveFrom evaluates a sender address. An unset value, or one that
// resolves to the zero address, yields nil.
func ResolveFrom(ctx context.Context, dc *types.DispatchContext, from Value[types.IdentityAddress]) (*types.IdentityAddress, error) {
	if !from.IsSet() {
		return nil, nil
	}
	addr, err := from.Get(ctx, dc)
	if err != nil {
		return nil, err
	}
	if addr.IsZero() {
		return nil, nil
	}
	return &addr, nil
}
