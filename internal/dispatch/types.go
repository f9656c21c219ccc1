// Package dispatch is the orchestration boundary around the channel core.
// It narrows a dispatch context to the addresses each channel supports,
// generates one communication per channel, routes it to a provider adapter
// allowed by the channel's allow-list, and records delivery metrics.
//
// It never retries. A failed send is reported in the channel's Result and
// left to the caller (for the worker binary, SQS redelivery).
package dispatch

import (
	"context"
	"errors"
	"time"

	"transmit/internal/channel"
	"transmit/internal/types"
)

// Provider is a transport adapter that carries communications of one or more
// channel types to an external service.
type Provider interface {
	// ID is the identifier channels list in their allow-lists.
	ID() string

	// Supports reports whether the adapter can carry communications of ct.
	Supports(ct types.ChannelType) bool

	// Send hands comm to the external service. dispatchID correlates the
	// send with later delivery reports.
	Send(ctx context.Context, dispatchID string, comm channel.Communication) (*Receipt, error)
}

// Receipt is what a provider returns after accepting a communication.
type Receipt struct {
	ProviderID string
	DispatchID string
	// MessageIDs are provider-assigned ids, one per accepted message.
	MessageIDs []string
	AcceptedAt time.Time
}

// Result is the outcome of one channel in a dispatch.
type Result struct {
	Channel       types.ChannelType
	ProviderID    string
	DispatchID    string
	Communication channel.Communication
	Receipt       *Receipt
	// Skipped is set when no identity had an address the channel supports.
	Skipped bool
	Err     error
}

// Results is the per-channel outcome list, in channel order.
type Results []Result

// Err joins every per-channel error, or returns nil.
func (rs Results) Err() error {
	var errs []error
	for _, r := range rs {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}

// Sent returns the number of channels whose communication was accepted.
func (rs Results) Sent() int {
	n := 0
	for _, r := range rs {
		if r.Receipt != nil {
			n++
		}
	}
	return n
}

// MetricResult categorizes a delivery outcome for metrics reporting.
type MetricResult string

const (
	MetricSuccess MetricResult = "success"
	MetricFailed  MetricResult = "failed"
	MetricSkipped MetricResult = "skipped"
)

// Metrics abstracts telemetry for dispatches.
type Metrics interface {
	RecordGenerated(ctx context.Context, channel types.ChannelType, result MetricResult)
	RecordDelivery(ctx context.Context, channel types.ChannelType, providerID string, result MetricResult)
	RecordLatency(ctx context.Context, channel types.ChannelType, duration time.Duration)
}

// NoopMetrics discards all metrics.
type NoopMetrics struct{}

func (NoopMetrics) RecordGenerated(context.Context, types.ChannelType, MetricResult)        {}
func (NoopMetrics) RecordDelivery(context.Context, types.ChannelType, string, MetricResult) {}
func (NoopMetrics) RecordLatency(context.Context, types.ChannelType, time.Duration)         {}
