package types

import "fmt"

// ChannelType identifies a communication medium.
type ChannelType string

const (
	ChannelSMS   ChannelType = "sms"
	ChannelEmail ChannelType = "email"
	ChannelPush  ChannelType = "push"
)

// TransportPriority is the delivery priority a dispatch asks providers to
// honor. Providers that have no notion of priority ignore it.
type TransportPriority string

const (
	PriorityNormal TransportPriority = "normal"
	PriorityLow    TransportPriority = "low"
	PriorityHigh   TransportPriority = "high"
)

// ParseTransportPriority converts a wire value into a TransportPriority.
// The empty string maps to PriorityNormal.
func ParseTransportPriority(s string) (TransportPriority, error) {
	switch TransportPriority(s) {
	case "", PriorityNormal:
		return PriorityNormal, nil
	case PriorityLow:
		return PriorityLow, nil
	case PriorityHigh:
		return PriorityHigh, nil
	default:
		return "", NewAppError(ErrCodeInvalidArgument, fmt.Sprintf("unknown transport priority %q", s), nil)
	}
}

// DeliveryStatus is the state a provider reports for a single recipient.
type DeliveryStatus string

const (
	DeliveryStatusQueued      DeliveryStatus = "queued"
	DeliveryStatusSent        DeliveryStatus = "sent"
	DeliveryStatusDelivered   DeliveryStatus = "delivered"
	DeliveryStatusFailed      DeliveryStatus = "failed"
	DeliveryStatusUndelivered DeliveryStatus = "undelivered"
)

// Valid reports whether s is one of the known statuses.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusQueued, DeliveryStatusSent, DeliveryStatusDelivered,
		DeliveryStatusFailed, DeliveryStatusUndelivered:
		return true
	}
	return false
}

// Final reports whether no further reports are expected after s.
func (s DeliveryStatus) Final() bool {
	return s == DeliveryStatusDelivered || s == DeliveryStatusFailed || s == DeliveryStatusUndelivered
}
