package deliveryreport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transmit/internal/types"
)

type memorySink struct {
	reports []Report
	failAt  int
}

func (s *memorySink) Record(_ context.Context, r Report) error {
	if s.failAt > 0 && len(s.reports)+1 == s.failAt {
		return errors.New("store unavailable")
	}
	s.reports = append(s.reports, r)
	return nil
}

type countingMetrics struct {
	byStatus map[types.DeliveryStatus]int
}

func (m *countingMetrics) RecordReport(_ context.Context, _ string, status types.DeliveryStatus) {
	if m.byStatus == nil {
		m.byStatus = map[types.DeliveryStatus]int{}
	}
	m.byStatus[status]++
}

const validBatch = `{"reports":[
	{"dispatch_id":"d-1","message_id":"SM1","recipient":"+14155552671","status":"delivered","timestamp":"2026-01-02T03:04:05Z"},
	{"dispatch_id":"d-1","recipient":"+14155552672","status":"failed","reason":"unreachable"}
]}`

func post(t *testing.T, h http.Handler, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestReceive_Accepts(t *testing.T) {
	sink := &memorySink{}
	metrics := &countingMetrics{}
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	h := NewHandler(HandlerConfig{Sink: sink, Metrics: metrics, Clock: fixedClock{now: now}})

	rec := post(t, h.Router(), "/delivery-reports/twilio", validBatch, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp receiveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Accepted)

	require.Len(t, sink.reports, 2)
	assert.Equal(t, "twilio", sink.reports[0].ProviderID)
	assert.Equal(t, types.DeliveryStatusDelivered, sink.reports[0].Status)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), sink.reports[0].Timestamp.UTC())
	assert.Equal(t, now, sink.reports[1].Timestamp, "missing timestamps default to receipt time")
	assert.Equal(t, 1, metrics.byStatus[types.DeliveryStatusFailed])
}

func TestReceive_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"malformed json", `{"reports":`, http.StatusBadRequest},
		{"unknown field", `{"reports":[],"extra":1}`, http.StatusBadRequest},
		{"empty batch", `{"reports":[]}`, http.StatusBadRequest},
		{"missing recipient", `{"reports":[{"dispatch_id":"d","status":"sent"}]}`, http.StatusBadRequest},
		{"unknown status", `{"reports":[{"dispatch_id":"d","recipient":"r","status":"bounced"}]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &memorySink{}
			h := NewHandler(HandlerConfig{Sink: sink})

			rec := post(t, h.Router(), "/delivery-reports/twilio", tt.body, nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Empty(t, sink.reports)

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(types.ErrCodeInvalidArgument), body.Error.Code)
		})
	}
}

func TestReceive_Signature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	signer := NewSigner(types.SecretString("whsec_test"), time.Minute, fixedClock{now: now})
	sink := &memorySink{}
	h := NewHandler(HandlerConfig{Sink: sink, Signer: signer})

	rec := post(t, h.Router(), "/delivery-reports/twilio", validBatch, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, h.Router(), "/delivery-reports/twilio", validBatch, http.Header{
		SignatureHeader: {signer.Sign([]byte(validBatch))},
	})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, sink.reports, 2)
}

func TestReceive_SinkFailureHidesCause(t *testing.T) {
	sink := &memorySink{failAt: 2}
	h := NewHandler(HandlerConfig{Sink: sink})

	rec := post(t, h.Router(), "/delivery-reports/twilio", validBatch, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "store unavailable")
	assert.Len(t, sink.reports, 1)
}

func TestReceive_WrongMethod(t *testing.T) {
	h := NewHandler(HandlerConfig{})
	req := httptest.NewRequest(http.MethodGet, "/delivery-reports/twilio", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
