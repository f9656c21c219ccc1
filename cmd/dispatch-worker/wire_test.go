package main

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transmit/internal/channel/email"
	"transmit/internal/channel/sms"
	"transmit/internal/config"
	"transmit/internal/types"
)

type nopSQS struct{}

func (nopSQS) SendMessage(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return &sqs.SendMessageOutput{MessageId: aws.String("q-1")}, nil
}

func TestBuildChannels(t *testing.T) {
	cfg := &config.Config{
		SMS: config.SMSConfig{
			Enabled:     true,
			From:        "+15550000000",
			Senders:     map[string]string{"billing": "+15550000001"},
			Template:    "Code {{.Code}}",
			ProviderIDs: []string{"sms-gateway"},
		},
		Email: config.EmailConfig{
			Enabled:      true,
			From:         "alerts@example.com",
			FromName:     "Alerts",
			TextTemplate: "Code {{.Code}}",
		},
	}

	channels := buildChannels(cfg, types.NopLogger{})
	require.Len(t, channels, 2)
	assert.Equal(t, types.ChannelSMS, channels[0].Type())
	assert.Equal(t, types.ChannelEmail, channels[1].Type())
	assert.Equal(t, []string{"sms-gateway"}, channels[0].AllowedChannelProviderIDs())

	dc := &types.DispatchContext{
		ChannelID:    "billing",
		ContentModel: &types.ContentModel{Model: map[string]any{"Code": "42"}},
		PlatformIdentities: []types.PlatformIdentity{
			{Addresses: []types.IdentityAddress{types.AsIdentityAddress("+14155552671")}},
		},
	}

	comm, err := channels[0].GenerateCommunication(context.Background(), dc)
	require.NoError(t, err)
	s := comm.(*sms.Sms)
	assert.Equal(t, "Code 42", s.Message())
	require.NotNil(t, s.From())
	assert.Equal(t, "+15550000001", s.From().Value)

	dc.ChannelID = "other"
	comm, err = channels[0].GenerateCommunication(context.Background(), dc)
	require.NoError(t, err)
	assert.Equal(t, "+15550000000", comm.(*sms.Sms).From().Value)

	from, ok := channels[1].(*email.Channel).From()
	require.True(t, ok)
	assert.Equal(t, types.IdentityAddress{Value: "alerts@example.com", Display: "Alerts"}, from)
}

func TestBuildChannels_NoneEnabled(t *testing.T) {
	assert.Empty(t, buildChannels(&config.Config{}, types.NopLogger{}))
}

func TestBuildRegistry(t *testing.T) {
	cfg := &config.Config{
		AWS: config.AWSConfig{HandoffQueueURL: "https://sqs.us-east-1.amazonaws.com/123/handoff"},
		SMS: config.SMSConfig{
			GatewayID:  "sms-gateway",
			GatewayURL: "https://gateway.example.com",
		},
		Email: config.EmailConfig{Enabled: true, SESProviderID: "ses"},
		Push:  config.PushConfig{HandoffProviderID: "handoff"},
	}

	reg, err := buildRegistry(cfg, aws.Config{Region: "us-east-1"}, nopSQS{}, types.NopLogger{})
	require.NoError(t, err)

	p, err := reg.Select(types.ChannelSMS, nil)
	require.NoError(t, err)
	assert.Equal(t, "sms-gateway", p.ID(), "direct providers are registered ahead of the hand-off queue")

	p, err = reg.Select(types.ChannelEmail, nil)
	require.NoError(t, err)
	assert.Equal(t, "ses", p.ID())

	p, err = reg.Select(types.ChannelPush, nil)
	require.NoError(t, err)
	assert.Equal(t, "handoff", p.ID())
}

func TestBuildRegistry_DuplicateIDs(t *testing.T) {
	cfg := &config.Config{
		AWS:   config.AWSConfig{HandoffQueueURL: "https://sqs.us-east-1.amazonaws.com/123/handoff"},
		Email: config.EmailConfig{Enabled: true, SESProviderID: "shared"},
		Push:  config.PushConfig{HandoffProviderID: "shared"},
	}

	_, err := buildRegistry(cfg, aws.Config{Region: "us-east-1"}, nopSQS{}, types.NopLogger{})
	assert.True(t, types.IsCode(err, types.ErrCodeInvalidArgument))
}
