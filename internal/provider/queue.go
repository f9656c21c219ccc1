package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"transmit/internal/channel"
	"transmit/internal/channel/email"
	"transmit/internal/channel/push"
	"transmit/internal/channel/sms"
	"transmit/internal/dispatch"
	"transmit/internal/types"
)

var _ dispatch.Provider = (*QueueProvider)(nil)

// SQSSender abstracts the SQS SendMessage operation for testability.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AttachmentEncodingZstd marks attachment data compressed with zstd.
const AttachmentEncodingZstd = "zstd"

// QueueConfig configures a QueueProvider.
type QueueConfig struct {
	ID       string
	QueueURL string
	// Channels lists the channel types handed off to the queue. Empty
	// means every channel.
	Channels []types.ChannelType
	Logger   types.Logger
}

// QueueProvider hands communications to an SQS queue consumed by a
// downstream delivery service.
type QueueProvider struct {
	client   SQSSender
	id       string
	queueURL string
	channels []types.ChannelType
	encoder  *zstd.Encoder
	clock    types.Clock
	logger   types.Logger
	newID    func() string
}

// NewQueueProvider creates a QueueProvider targeting cfg.QueueURL.
func NewQueueProvider(client SQSSender, cfg QueueConfig) (*QueueProvider, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("queue provider: failed to create zstd encoder: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &QueueProvider{
		client:   client,
		id:       cfg.ID,
		queueURL: cfg.QueueURL,
		channels: cfg.Channels,
		encoder:  enc,
		clock:    types.RealClock{},
		logger:   logger,
		newID:    uuid.NewString,
	}, nil
}

func (q *QueueProvider) ID() string { return q.id }

func (q *QueueProvider) Supports(ct types.ChannelType) bool {
	if len(q.channels) == 0 {
		return true
	}
	for _, c := range q.channels {
		if c == ct {
			return true
		}
	}
	return false
}

// QueueEnvelope is the message body written to the queue.
type QueueEnvelope struct {
	MessageID   string                  `json:"message_id"`
	DispatchID  string                  `json:"dispatch_id"`
	Channel     types.ChannelType       `json:"channel"`
	Priority    types.TransportPriority `json:"priority"`
	CallbackURL string                  `json:"callback_url,omitempty"`
	Recipients  []types.IdentityAddress `json:"recipients"`
	Content     map[string]string       `json:"content"`
	Attachments []QueueAttachment       `json:"attachments,omitempty"`
}

// QueueAttachment carries attachment bytes compressed per Encoding.
type QueueAttachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Encoding    string `json:"encoding"`
	Data        []byte `json:"data"`
}

// Send serializes comm into a QueueEnvelope and enqueues it.
func (q *QueueProvider) Send(ctx context.Context, dispatchID string, comm channel.Communication) (*dispatch.Receipt, error) {
	content, attachments, err := communicationContent(comm)
	if err != nil {
		return nil, err
	}

	env := QueueEnvelope{
		MessageID:   q.newID(),
		DispatchID:  dispatchID,
		Channel:     comm.ChannelType(),
		Priority:    comm.Priority(),
		CallbackURL: comm.CallbackURL(),
		Recipients:  comm.Recipients(),
		Content:     content,
	}
	for _, a := range attachments {
		env.Attachments = append(env.Attachments, QueueAttachment{
			Name:        a.Name,
			ContentType: a.ContentType,
			Encoding:    AttachmentEncodingZstd,
			Data:        q.encoder.EncodeAll(a.Content, nil),
		})
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal queue envelope", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"Channel":  {DataType: aws.String("String"), StringValue: aws.String(string(env.Channel))},
			"Priority": {DataType: aws.String("String"), StringValue: aws.String(string(env.Priority))},
		},
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("failed to send message to %s", q.queueURL), err)
	}

	q.logger.Info("communication enqueued",
		"provider", q.id,
		"dispatch_id", dispatchID,
		"message_id", env.MessageID,
		"channel", string(env.Channel),
	)

	return &dispatch.Receipt{
		ProviderID: q.id,
		DispatchID: dispatchID,
		MessageIDs: []string{env.MessageID},
		AcceptedAt: q.clock.Now(),
	}, nil
}

func communicationContent(comm channel.Communication) (map[string]string, []channel.Attachment, error) {
	switch c := comm.(type) {
	case *sms.Sms:
		content := map[string]string{"message": c.Message()}
		if f := c.From(); f != nil {
			content["from"] = f.Value
		}
		return content, c.Attachments(), nil
	case *email.Email:
		content := map[string]string{
			"subject":   c.Subject(),
			"html_body": c.HTMLBody(),
			"text_body": c.TextBody(),
		}
		if f := c.From(); f != nil {
			content["from"] = f.Value
		}
		if r := c.ReplyTo(); r != nil {
			content["reply_to"] = r.Value
		}
		return content, c.Attachments(), nil
	case *push.Push:
		return map[string]string{
			"title":     c.Title(),
			"body":      c.Body(),
			"image_url": c.ImageURL(),
		}, nil, nil
	default:
		return nil, nil, types.NewAppError(types.ErrCodeInvalidArgument,
			fmt.Sprintf("unsupported communication type %T", comm), nil)
	}
}
