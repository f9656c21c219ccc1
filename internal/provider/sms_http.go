package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"transmit/internal/channel"
	"transmit/internal/channel/sms"
	"transmit/internal/dispatch"
	"transmit/internal/types"
)

var _ dispatch.Provider = (*HTTPSMSProvider)(nil)

// HTTPSMSConfig configures an HTTPSMSProvider.
type HTTPSMSConfig struct {
	ID       string
	Endpoint string
	Token    types.SecretString
	// DefaultFrom is used when the communication carries no sender.
	DefaultFrom string
	Logger      types.Logger
}

// HTTPSMSProvider posts one JSON message per recipient to an SMS gateway.
type HTTPSMSProvider struct {
	base        *BaseClient
	id          string
	endpoint    string
	token       types.SecretString
	defaultFrom string
	clock       types.Clock
	logger      types.Logger
}

// NewHTTPSMSProvider builds an adapter around base.
func NewHTTPSMSProvider(base *BaseClient, cfg HTTPSMSConfig) *HTTPSMSProvider {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &HTTPSMSProvider{
		base:        base,
		id:          cfg.ID,
		endpoint:    strings.TrimSuffix(cfg.Endpoint, "/"),
		token:       cfg.Token,
		defaultFrom: cfg.DefaultFrom,
		clock:       types.RealClock{},
		logger:      logger,
	}
}

func (p *HTTPSMSProvider) ID() string { return p.id }

func (p *HTTPSMSProvider) Supports(ct types.ChannelType) bool {
	return ct == types.ChannelSMS
}

type smsGatewayRequest struct {
	From           string            `json:"from,omitempty"`
	To             string            `json:"to"`
	Body           string            `json:"body"`
	Priority       string            `json:"priority"`
	StatusCallback string            `json:"status_callback,omitempty"`
	Reference      string            `json:"reference"`
	Media          []smsGatewayMedia `json:"media,omitempty"`
}

type smsGatewayMedia struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data"`
}

type smsGatewayResponse struct {
	ID string `json:"id"`
}

// Send posts the message to each recipient in order and stops at the first
// failure. The error details carry how many recipients were accepted.
func (p *HTTPSMSProvider) Send(ctx context.Context, dispatchID string, comm channel.Communication) (*dispatch.Receipt, error) {
	msg, ok := comm.(*sms.Sms)
	if !ok {
		return nil, types.NewAppError(types.ErrCodeInvalidArgument,
			fmt.Sprintf("provider %s cannot send %s communications", p.id, comm.ChannelType()), nil)
	}

	from := p.defaultFrom
	if f := msg.From(); f != nil {
		from = f.Value
	}

	media := make([]smsGatewayMedia, 0, len(msg.Attachments()))
	for _, a := range msg.Attachments() {
		media = append(media, smsGatewayMedia{Name: a.Name, ContentType: a.ContentType, Data: a.Content})
	}

	ids := make([]string, 0, len(msg.To()))
	for _, to := range msg.To() {
		id, err := p.post(ctx, dispatchID, smsGatewayRequest{
			From:           from,
			To:             to.Value,
			Body:           msg.Message(),
			Priority:       string(msg.TransportPriority()),
			StatusCallback: msg.DeliveryReportCallbackURL(),
			Reference:      dispatchID,
			Media:          media,
		})
		if err != nil {
			var appErr *types.AppError
			if errors.As(err, &appErr) {
				return nil, appErr.WithDetails(map[string]any{"accepted": len(ids)})
			}
			return nil, err
		}
		ids = append(ids, id)
	}

	p.logger.Info("sms accepted by gateway",
		"provider", p.id,
		"dispatch_id", dispatchID,
		"message_count", len(ids),
	)

	return &dispatch.Receipt{
		ProviderID: p.id,
		DispatchID: dispatchID,
		MessageIDs: ids,
		AcceptedAt: p.clock.Now(),
	}, nil
}

func (p *HTTPSMSProvider) post(ctx context.Context, dispatchID string, payload smsGatewayRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal sms gateway payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create sms gateway request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(DispatchIDHeader, dispatchID)
	if !p.token.IsEmpty() {
		req.Header.Set("Authorization", "Bearer "+p.token.Unmask())
	}

	resp, err := p.base.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", types.NewAppErrorWithDetails(types.ErrCodeUpstreamRejected,
			fmt.Sprintf("sms gateway rejected message with status %d", resp.StatusCode), nil,
			map[string]any{"status": resp.StatusCode, "body": string(snippet)})
	}

	var out smsGatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamProvider, "failed to decode sms gateway response", err)
	}
	return out.ID, nil
}
