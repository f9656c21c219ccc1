package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"transmit/internal/channel"
	"transmit/internal/types"
)

// mockCloudWatchClient records PutMetricData calls for verification.
type mockCloudWatchClient struct {
	mu        sync.Mutex
	calls     []*cloudwatch.PutMetricDataInput
	returnErr error
}

func (m *mockCloudWatchClient) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, params)
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// mockLogger captures Error calls.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *mockLogger) Info(string, ...any) {}
func (l *mockLogger) Warn(string, ...any) {}
func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}
func (l *mockLogger) With(...any) types.Logger { return l }

// mockProvider records sends and returns a configured error.
type mockProvider struct {
	id       string
	channels []types.ChannelType
	err      error

	mu    sync.Mutex
	sends []sentComm
}

type sentComm struct {
	dispatchID string
	comm       channel.Communication
}

func (p *mockProvider) ID() string { return p.id }

func (p *mockProvider) Supports(ct types.ChannelType) bool {
	for _, c := range p.channels {
		if c == ct {
			return true
		}
	}
	return false
}

func (p *mockProvider) Send(_ context.Context, dispatchID string, comm channel.Communication) (*Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sends = append(p.sends, sentComm{dispatchID: dispatchID, comm: comm})
	if p.err != nil {
		return nil, p.err
	}
	return &Receipt{
		ProviderID: p.id,
		DispatchID: dispatchID,
		MessageIDs: []string{p.id + "-1"},
		AcceptedAt: time.Unix(0, 0).UTC(),
	}, nil
}

func (p *mockProvider) sent() []sentComm {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentComm(nil), p.sends...)
}

// recordingMetrics captures dispatcher metric calls.
type recordingMetrics struct {
	mu         sync.Mutex
	generated  []MetricResult
	deliveries []string
}

func (m *recordingMetrics) RecordGenerated(_ context.Context, ct types.ChannelType, r MetricResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generated = append(m.generated, r)
}

func (m *recordingMetrics) RecordDelivery(_ context.Context, ct types.ChannelType, providerID string, r MetricResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, string(ct)+"/"+providerID+"/"+string(r))
}

func (m *recordingMetrics) RecordLatency(context.Context, types.ChannelType, time.Duration) {}
