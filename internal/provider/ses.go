package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"transmit/internal/channel"
	"transmit/internal/channel/email"
	"transmit/internal/dispatch"
	"transmit/internal/types"
)

var _ dispatch.Provider = (*SESProvider)(nil)

// SESAPI defines the subset of the SES v2 client used by SESProvider.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig configures an SESProvider.
type SESConfig struct {
	ID string
	// DefaultFrom is used when the communication carries no sender. SES
	// rejects messages without one.
	DefaultFrom string
	// ConfigSetName is optional; it routes SES events for delivery reports.
	ConfigSetName string
	Logger        types.Logger
}

// SESProvider sends each recipient its own raw MIME message through SES v2.
// Authentication comes from the AWS config (IAM role).
type SESProvider struct {
	api           SESAPI
	id            string
	defaultFrom   string
	configSetName string
	clock         types.Clock
	logger        types.Logger
}

// NewSESProvider creates an SESProvider from an AWS config.
func NewSESProvider(awsCfg aws.Config, cfg SESConfig) *SESProvider {
	return NewSESProviderWithAPI(sesv2.NewFromConfig(awsCfg), cfg)
}

// NewSESProviderWithAPI creates an SESProvider with a pre-configured SESAPI.
func NewSESProviderWithAPI(api SESAPI, cfg SESConfig) *SESProvider {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &SESProvider{
		api:           api,
		id:            cfg.ID,
		defaultFrom:   cfg.DefaultFrom,
		configSetName: cfg.ConfigSetName,
		clock:         types.RealClock{},
		logger:        logger,
	}
}

func (s *SESProvider) ID() string { return s.id }

func (s *SESProvider) Supports(ct types.ChannelType) bool {
	return ct == types.ChannelEmail
}

// Send transmits the email.
//
// Error mapping:
//   - MessageRejected -> ErrCodeUpstreamRejected
//   - TooManyRequestsException -> ErrCodeUpstreamRateLimited
//   - SendingPausedException -> ErrCodeUpstreamUnavailable
//   - Other -> ErrCodeUpstreamProvider
func (s *SESProvider) Send(ctx context.Context, dispatchID string, comm channel.Communication) (*dispatch.Receipt, error) {
	msg, ok := comm.(*email.Email)
	if !ok {
		return nil, types.NewAppError(types.ErrCodeInvalidArgument,
			fmt.Sprintf("provider %s cannot send %s communications", s.id, comm.ChannelType()), nil)
	}

	from := s.defaultFrom
	if f := msg.From(); f != nil {
		from = formatAddress(*f)
	}
	if from == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "email sender is required by SES", nil)
	}

	ids := make([]string, 0, len(msg.To()))
	for _, to := range msg.To() {
		raw, err := buildMIMEMessage(from, to, msg)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build MIME message", err)
		}

		input := &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(from),
			Destination:      &sestypes.Destination{ToAddresses: []string{formatAddress(to)}},
			Content:          &sestypes.EmailContent{Raw: &sestypes.RawMessage{Data: raw}},
			EmailTags: []sestypes.MessageTag{
				{Name: aws.String("DispatchID"), Value: aws.String(dispatchID)},
			},
		}
		if s.configSetName != "" {
			input.ConfigurationSetName = aws.String(s.configSetName)
		}

		out, err := s.api.SendEmail(ctx, input)
		if err != nil {
			return nil, mapSESError(err).WithDetails(map[string]any{"accepted": len(ids)})
		}
		ids = append(ids, aws.ToString(out.MessageId))
	}

	s.logger.Info("email accepted by SES",
		"provider", s.id,
		"dispatch_id", dispatchID,
		"message_count", len(ids),
	)

	return &dispatch.Receipt{
		ProviderID: s.id,
		DispatchID: dispatchID,
		MessageIDs: ids,
		AcceptedAt: s.clock.Now(),
	}, nil
}

func formatAddress(a types.IdentityAddress) string {
	if a.Display == "" {
		return a.Value
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", a.Display), a.Value)
}

// buildMIMEMessage renders a multipart/mixed message: a multipart/alternative
// body (text then HTML, whichever are present) followed by one base64 part
// per attachment.
func buildMIMEMessage(from string, to types.IdentityAddress, msg *email.Email) ([]byte, error) {
	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", formatAddress(to))
	if r := msg.ReplyTo(); r != nil {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", formatAddress(*r))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject()))
	if msg.TransportPriority() == types.PriorityHigh {
		buf.WriteString("X-Priority: 1\r\n")
	}
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	var alt bytes.Buffer
	altWriter := multipart.NewWriter(&alt)
	if msg.TextBody() != "" {
		if err := writeBase64Part(altWriter, "text/plain; charset=UTF-8", "", []byte(msg.TextBody())); err != nil {
			return nil, err
		}
	}
	if msg.HTMLBody() != "" {
		if err := writeBase64Part(altWriter, "text/html; charset=UTF-8", "", []byte(msg.HTMLBody())); err != nil {
			return nil, err
		}
	}
	if err := altWriter.Close(); err != nil {
		return nil, err
	}

	body, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=%q", altWriter.Boundary())},
	})
	if err != nil {
		return nil, err
	}
	if _, err := body.Write(alt.Bytes()); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments() {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		if err := writeBase64Part(mixed, ct, a.Name, a.Content); err != nil {
			return nil, err
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBase64Part(w *multipart.Writer, contentType, filename string, data []byte) error {
	h := textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"base64"},
	}
	if filename != "" {
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := fmt.Fprintf(part, "%s\r\n", encoded[:76]); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err = fmt.Fprintf(part, "%s\r\n", encoded)
	return err
}

func mapSESError(err error) *types.AppError {
	var msgRejected *sestypes.MessageRejected
	if errors.As(err, &msgRejected) {
		return types.NewAppError(types.ErrCodeUpstreamRejected, fmt.Sprintf("SES rejected message: %v", err), err)
	}

	var tooManyReqs *sestypes.TooManyRequestsException
	if errors.As(err, &tooManyReqs) {
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, fmt.Sprintf("SES rate limit exceeded: %v", err), err)
	}

	var sendingPaused *sestypes.SendingPausedException
	if errors.As(err, &sendingPaused) {
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, fmt.Sprintf("SES account sending paused: %v", err), err)
	}

	return types.NewAppError(types.ErrCodeUpstreamProvider, fmt.Sprintf("SES error: %v", err), err)
}
