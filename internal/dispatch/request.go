package dispatch

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"transmit/internal/types"
)

// Request is the queued wire form of a dispatch. Resource data is base64 in
// JSON.
type Request struct {
	ChannelID  string                   `json:"channel_id,omitempty"`
	Culture    string                   `json:"culture,omitempty"`
	Priority   string                   `json:"priority,omitempty"`
	Model      map[string]any           `json:"model,omitempty"`
	Identities []types.PlatformIdentity `json:"identities" validate:"required,min=1,dive"`
	Resources  []RequestResource        `json:"resources,omitempty" validate:"dive"`
}

// RequestResource is an inline resource.
type RequestResource struct {
	Name        string `json:"name" validate:"required"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data"`
}

var requestValidator = validator.New()

// DispatchContext validates r and builds the context it describes. Each
// resource is backed by a seekable reader so every channel reads it whole.
func (r *Request) DispatchContext() (*types.DispatchContext, error) {
	if err := requestValidator.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeInvalidArgument,
				fmt.Sprintf("invalid dispatch request: %s failed %s", verrs[0].Namespace(), verrs[0].Tag()), err,
				map[string]any{"field": verrs[0].Namespace()})
		}
		return nil, types.NewAppError(types.ErrCodeInvalidArgument, "invalid dispatch request", err)
	}

	priority, err := types.ParseTransportPriority(r.Priority)
	if err != nil {
		return nil, err
	}

	resources := make([]*types.Resource, 0, len(r.Resources))
	for _, rr := range r.Resources {
		res, err := types.NewResource(rr.Name, rr.ContentType, bytes.NewReader(rr.Data))
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}

	return &types.DispatchContext{
		ContentModel: &types.ContentModel{
			Model:     r.Model,
			Resources: resources,
		},
		PlatformIdentities: r.Identities,
		TransportPriority:  priority,
		ChannelID:          r.ChannelID,
		CultureInfo:        r.Culture,
	}, nil
}
