package types

// Telemetry metric names for CloudWatch.
const (
	MetricCommunicationGenerated = "CommunicationGenerated"
	MetricDeliveryAttempt        = "DeliveryAttempt"
	MetricDeliveryLatency        = "DeliveryAttemptLatency"
	MetricDeliveryReport         = "DeliveryReport"

	DimChannel  = "Channel"
	DimProvider = "Provider"
	DimResult   = "Result"
	DimStatus   = "Status"

	MetricNamespace = "Transmit"
)
