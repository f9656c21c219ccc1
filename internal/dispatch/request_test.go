package dispatch

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transmit/internal/types"
)

func TestRequest_DispatchContext(t *testing.T) {
	raw := `{
		"channel_id": "alerts",
		"culture": "en-GB",
		"priority": "high",
		"model": {"Code": "1234"},
		"identities": [{"id": "u1", "addresses": [{"value": "+14155552671"}]}],
		"resources": [{"name": "a.txt", "content_type": "text/plain", "data": "aGVsbG8="}]
	}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(raw), &req))

	dc, err := req.DispatchContext()
	require.NoError(t, err)

	assert.Equal(t, "alerts", dc.ChannelID)
	assert.Equal(t, "en-GB", dc.CultureInfo)
	assert.Equal(t, types.PriorityHigh, dc.TransportPriority)
	assert.Equal(t, map[string]any{"Code": "1234"}, dc.Model())
	assert.Equal(t, []types.IdentityAddress{types.AsIdentityAddress("+14155552671")}, dc.Recipients())

	require.Len(t, dc.Resources(), 1)
	content, err := io.ReadAll(dc.Resources()[0].Content)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
	_, seekable := dc.Resources()[0].Content.(io.Seeker)
	assert.True(t, seekable)
}

func TestRequest_DispatchContextDefaultsPriority(t *testing.T) {
	req := Request{Identities: []types.PlatformIdentity{{Addresses: []types.IdentityAddress{types.AsIdentityAddress("x")}}}}
	dc, err := req.DispatchContext()
	require.NoError(t, err)
	assert.Equal(t, types.PriorityNormal, dc.TransportPriority)
}

func TestRequest_DispatchContextInvalid(t *testing.T) {
	ids := []types.PlatformIdentity{{Addresses: []types.IdentityAddress{types.AsIdentityAddress("x")}}}

	tests := []struct {
		name string
		req  Request
	}{
		{"no identities", Request{}},
		{"unnamed resource", Request{Identities: ids, Resources: []RequestResource{{Data: []byte("x")}}}},
		{"unknown priority", Request{Identities: ids, Priority: "urgent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.DispatchContext()
			assert.True(t, types.IsCode(err, types.ErrCodeInvalidArgument), "got %v", err)
		})
	}
}
