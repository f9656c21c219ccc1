package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transmit/internal/dispatch"
	"transmit/internal/types"
)

type stubDispatcher struct {
	calls   []*types.DispatchContext
	results dispatch.Results
	err     error
}

func (s *stubDispatcher) Dispatch(_ context.Context, dc *types.DispatchContext) (dispatch.Results, error) {
	s.calls = append(s.calls, dc)
	return s.results, s.err
}

func record(t *testing.T, id string, req any) events.SQSMessage {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func validRequest() dispatch.Request {
	return dispatch.Request{
		ChannelID: "acme",
		Priority:  "high",
		Model:     map[string]any{"Code": "1234"},
		Identities: []types.PlatformIdentity{
			{Addresses: []types.IdentityAddress{types.AsIdentityAddress("+14155552671")}},
		},
	}
}

func TestHandle_Success(t *testing.T) {
	d := &stubDispatcher{results: dispatch.Results{{Channel: types.ChannelSMS}}}
	h := &Handler{dispatcher: d, logger: types.NopLogger{}}

	resp, err := h.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{record(t, "m1", validRequest())},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)

	require.Len(t, d.calls, 1)
	dc := d.calls[0]
	assert.Equal(t, "acme", dc.ChannelID)
	assert.Equal(t, types.PriorityHigh, dc.TransportPriority)
	assert.Equal(t, map[string]any{"Code": "1234"}, dc.ContentModel.Model)
}

func TestHandle_MalformedRequestsAreAcknowledged(t *testing.T) {
	d := &stubDispatcher{}
	h := &Handler{dispatcher: d, logger: types.NopLogger{}}

	noIdentities := validRequest()
	noIdentities.Identities = nil

	resp, err := h.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "bad-json", Body: "{not json"},
		record(t, "invalid", noIdentities),
	}})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	assert.Empty(t, d.calls)
}

func TestHandle_RetryableFailure(t *testing.T) {
	d := &stubDispatcher{results: dispatch.Results{
		{Channel: types.ChannelSMS, Err: types.NewAppError(types.ErrCodeUpstreamUnavailable, "gateway down", nil)},
		{Channel: types.ChannelEmail},
	}}
	h := &Handler{dispatcher: d, logger: types.NopLogger{}}

	resp, err := h.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{record(t, "m1", validRequest())},
	})
	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "m1", resp.BatchItemFailures[0].ItemIdentifier)
}

func TestHandle_PermanentFailureIsAcknowledged(t *testing.T) {
	d := &stubDispatcher{results: dispatch.Results{
		{Channel: types.ChannelSMS, Err: types.NewAppError(types.ErrCodeProviderNotAllowed, "no provider", nil)},
	}}
	h := &Handler{dispatcher: d, logger: types.NopLogger{}}

	resp, err := h.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{record(t, "m1", validRequest())},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
}

func TestHandle_DispatchErrorIsRetried(t *testing.T) {
	d := &stubDispatcher{err: context.DeadlineExceeded}
	h := &Handler{dispatcher: d, logger: types.NopLogger{}}

	resp, err := h.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		record(t, "m1", validRequest()),
		record(t, "m2", validRequest()),
	}})
	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 2)
	assert.Len(t, d.calls, 2)
}
