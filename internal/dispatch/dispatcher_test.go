package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transmit/internal/channel"
	"transmit/internal/channel/email"
	"transmit/internal/channel/sms"
	"transmit/internal/types"
)

func newSmsChannel(providers ...string) *sms.Channel {
	c := sms.New(
		sms.WithFrom(types.AsIdentityAddress("+15550000000")),
		sms.WithProviderIDs(providers...),
	)
	c.Message.AddStringTemplate("your code is 1234")
	return c
}

func newEmailChannel(providers ...string) *email.Channel {
	c := email.New(email.WithProviderIDs(providers...))
	c.Subject.AddStringTemplate("code")
	c.TextBody.AddStringTemplate("your code is 1234")
	return c
}

func mixedContext() *types.DispatchContext {
	return &types.DispatchContext{
		ContentModel: &types.ContentModel{
			Resources: []*types.Resource{{Name: "a.txt", ContentType: "text/plain", Content: strings.NewReader("attached")}},
		},
		PlatformIdentities: []types.PlatformIdentity{
			{ID: "u1", Addresses: []types.IdentityAddress{
				types.AsIdentityAddress("+14155552671"),
				types.AsIdentityAddress("ada@example.com"),
			}},
			{ID: "u2", Addresses: []types.IdentityAddress{types.AsIdentityAddress("bob@example.com")}},
		},
	}
}

func TestNewDispatcher_RequiresRegistry(t *testing.T) {
	_, err := NewDispatcher(Config{})
	assert.True(t, types.IsCode(err, types.ErrCodeInvalidArgument))
}

func TestDispatch_NilContext(t *testing.T) {
	r, _ := NewRegistry()
	d, err := NewDispatcher(Config{Registry: r})
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), nil)
	assert.True(t, types.IsCode(err, types.ErrCodeInvalidArgument))
}

func TestDispatch_RoutesEachChannel(t *testing.T) {
	smsProvider := &mockProvider{id: "twilio", channels: []types.ChannelType{types.ChannelSMS}}
	emailProvider := &mockProvider{id: "ses", channels: []types.ChannelType{types.ChannelEmail}}
	r, err := NewRegistry(smsProvider, emailProvider)
	require.NoError(t, err)

	metrics := &recordingMetrics{}
	d, err := NewDispatcher(Config{
		Channels: []channel.Channel{newSmsChannel("twilio"), newEmailChannel()},
		Registry: r,
		Metrics:  metrics,
	})
	require.NoError(t, err)

	results, err := d.Dispatch(context.Background(), mixedContext())
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NoError(t, results.Err())
	assert.Equal(t, 2, results.Sent())

	smsSends := smsProvider.sent()
	require.Len(t, smsSends, 1)
	assert.Equal(t, []types.IdentityAddress{types.AsIdentityAddress("+14155552671")}, smsSends[0].comm.Recipients())

	emailSends := emailProvider.sent()
	require.Len(t, emailSends, 1)
	assert.Equal(t, []types.IdentityAddress{
		types.AsIdentityAddress("ada@example.com"),
		types.AsIdentityAddress("bob@example.com"),
	}, emailSends[0].comm.Recipients())

	// Both channels read the same resource; each got the full content.
	assert.Equal(t, []byte("attached"), smsSends[0].comm.(*sms.Sms).Attachments()[0].Content)
	assert.Equal(t, []byte("attached"), emailSends[0].comm.(*email.Email).Attachments()[0].Content)

	assert.NotEmpty(t, results[0].DispatchID)
	assert.NotEqual(t, results[0].DispatchID, results[1].DispatchID)
	assert.Equal(t, results[0].DispatchID, results[0].Receipt.DispatchID)
	assert.Equal(t, "twilio", results[0].ProviderID)
	assert.ElementsMatch(t, []string{"sms/twilio/success", "email/ses/success"}, metrics.deliveries)
}

func TestDispatch_SkipsChannelWithoutSupportedAddresses(t *testing.T) {
	p := &mockProvider{id: "twilio", channels: []types.ChannelType{types.ChannelSMS}}
	r, _ := NewRegistry(p)
	metrics := &recordingMetrics{}
	d, _ := NewDispatcher(Config{Channels: []channel.Channel{newSmsChannel()}, Registry: r, Metrics: metrics})

	dc := &types.DispatchContext{PlatformIdentities: []types.PlatformIdentity{
		{Addresses: []types.IdentityAddress{types.AsIdentityAddress("ada@example.com")}},
	}}

	results, err := d.Dispatch(context.Background(), dc)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Skipped)
	assert.Nil(t, results[0].Communication)
	assert.Empty(t, p.sent())
	assert.Equal(t, []string{"sms//skipped"}, metrics.deliveries)
}

func TestDispatch_IsolatesChannelFailures(t *testing.T) {
	sentinel := types.NewAppError(types.ErrCodeUpstreamUnavailable, "gateway down", nil)
	smsProvider := &mockProvider{id: "twilio", channels: []types.ChannelType{types.ChannelSMS}, err: sentinel}
	emailProvider := &mockProvider{id: "ses", channels: []types.ChannelType{types.ChannelEmail}}
	r, _ := NewRegistry(smsProvider, emailProvider)

	unconfigured := email.New()
	d, _ := NewDispatcher(Config{
		Channels: []channel.Channel{newSmsChannel(), newEmailChannel("sendgrid"), unconfigured},
		Registry: r,
	})

	results, err := d.Dispatch(context.Background(), mixedContext())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.ErrorIs(t, results[0].Err, sentinel)
	assert.Equal(t, "twilio", results[0].ProviderID)
	assert.True(t, types.IsCode(results[1].Err, types.ErrCodeProviderNotAllowed))
	assert.True(t, types.IsCode(results[2].Err, types.ErrCodeCommunications))
	assert.Empty(t, emailProvider.sent())

	joined := results.Err()
	assert.True(t, errors.Is(joined, sentinel))
	assert.Equal(t, 0, results.Sent())
}

func TestDispatch_ClosableResourceIsReadOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.txt")
	require.NoError(t, os.WriteFile(path, []byte("invoice body"), 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)

	smsProvider := &mockProvider{id: "twilio", channels: []types.ChannelType{types.ChannelSMS}}
	emailProvider := &mockProvider{id: "ses", channels: []types.ChannelType{types.ChannelEmail}}
	r, _ := NewRegistry(smsProvider, emailProvider)
	d, _ := NewDispatcher(Config{
		Channels: []channel.Channel{newSmsChannel(), newEmailChannel()},
		Registry: r,
	})

	dc := mixedContext()
	dc.ContentModel.Resources = []*types.Resource{{Name: "invoice.txt", ContentType: "text/plain", Content: f}}

	results, err := d.Dispatch(context.Background(), dc)
	require.NoError(t, err)
	require.NoError(t, results.Err())
	assert.Equal(t, 2, results.Sent())

	require.Len(t, smsProvider.sent(), 1)
	require.Len(t, emailProvider.sent(), 1)
	assert.Equal(t, []byte("invoice body"), smsProvider.sent()[0].comm.(*sms.Sms).Attachments()[0].Content)
	assert.Equal(t, []byte("invoice body"), emailProvider.sent()[0].comm.(*email.Email).Attachments()[0].Content)

	_, err = f.Read(make([]byte, 1))
	assert.ErrorIs(t, err, os.ErrClosed, "the file is closed once all channels have its content")
	assert.Same(t, f, dc.Resources()[0].Content, "the caller's resource is not replaced")
}

func TestDispatch_UnreadableResource(t *testing.T) {
	r, _ := NewRegistry(&mockProvider{id: "twilio", channels: []types.ChannelType{types.ChannelSMS}})
	d, _ := NewDispatcher(Config{Channels: []channel.Channel{newSmsChannel()}, Registry: r})

	dc := mixedContext()
	dc.ContentModel.Resources = []*types.Resource{{Name: "broken", Content: failingReader{}}}

	results, err := d.Dispatch(context.Background(), dc)
	assert.Nil(t, results)
	assert.ErrorContains(t, err, "broken")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestDispatch_DoesNotMutateInput(t *testing.T) {
	r, _ := NewRegistry(&mockProvider{id: "twilio", channels: []types.ChannelType{types.ChannelSMS}})
	d, _ := NewDispatcher(Config{Channels: []channel.Channel{newSmsChannel()}, Registry: r})

	dc := mixedContext()
	_, err := d.Dispatch(context.Background(), dc)
	require.NoError(t, err)

	require.Len(t, dc.PlatformIdentities, 2)
	assert.Len(t, dc.PlatformIdentities[0].Addresses, 2)
}

func TestDispatch_CancelledContext(t *testing.T) {
	r, _ := NewRegistry()
	d, _ := NewDispatcher(Config{Channels: []channel.Channel{newSmsChannel()}, Registry: r})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Dispatch(ctx, mixedContext())
	assert.ErrorIs(t, err, context.Canceled)
}
