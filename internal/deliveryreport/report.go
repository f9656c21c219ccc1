// Package deliveryreport receives provider status callbacks for sent
// communications. Providers post to the callback URL a channel put on the
// communication; reports are authenticated, validated and handed to a Sink.
package deliveryreport

import (
	"context"
	"time"

	"transmit/internal/types"
)

// Report is one status update for one recipient of a communication.
type Report struct {
	DispatchID string               `json:"dispatch_id" validate:"required"`
	ProviderID string               `json:"-"`
	MessageID  string               `json:"message_id,omitempty"`
	Recipient  string               `json:"recipient" validate:"required"`
	Status     types.DeliveryStatus `json:"status" validate:"required"`
	Reason     string               `json:"reason,omitempty" validate:"max=512"`
	Timestamp  time.Time            `json:"timestamp"`
}

// Sink consumes validated reports.
type Sink interface {
	Record(ctx context.Context, r Report) error
}

// Metrics counts received reports.
type Metrics interface {
	RecordReport(ctx context.Context, providerID string, status types.DeliveryStatus)
}

// LogSink writes each report to the structured log.
type LogSink struct {
	Logger types.Logger
}

func (s LogSink) Record(_ context.Context, r Report) error {
	level := s.Logger.Info
	if r.Status == types.DeliveryStatusFailed || r.Status == types.DeliveryStatusUndelivered {
		level = s.Logger.Warn
	}
	level("delivery report received",
		"dispatch_id", r.DispatchID,
		"provider", r.ProviderID,
		"message_id", r.MessageID,
		"status", string(r.Status),
		"final", r.Status.Final(),
		"reason", r.Reason,
	)
	return nil
}
