// Package config defines the process configuration for transmit binaries.
// It is loaded once at startup and never modified afterwards.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value or an invalid format fails the load.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"transmit/internal/types"
)

// SecretString is the redacted secret type used for credentials.
type SecretString = types.SecretString

// Config is the top-level configuration. Sub-components receive only the
// subset they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"transmit"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	AWS           AWSConfig
	SMS           SMSConfig
	Email         EmailConfig
	Push          PushConfig
	Reports       ReportConfig
	Observability ObservabilityConfig

	// Build is injected via ldflags, not the environment.
	Build BuildInfo
}

// AWSConfig holds regional settings and queue identifiers.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`
	// HandoffQueueURL enables the SQS hand-off provider when set.
	HandoffQueueURL string `envconfig:"SQS_HANDOFF" validate:"omitempty,url"`
	// EndpointURL points the SDK at LocalStack. Empty in prod.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// SMSConfig configures the SMS channel and the HTTP gateway provider.
type SMSConfig struct {
	Enabled bool `envconfig:"SMS_ENABLED" default:"true"`
	// From is the default sender. Senders maps a dispatch's channel id to a
	// sender that overrides it, e.g. "billing:+15550001,alerts:+15550002".
	From    string            `envconfig:"SMS_FROM" validate:"omitempty,e164"`
	Senders map[string]string `envconfig:"SMS_SENDERS"`

	Template    string   `envconfig:"SMS_TEMPLATE"`
	ProviderIDs []string `envconfig:"SMS_PROVIDER_IDS"`
	CallbackURL string   `envconfig:"SMS_CALLBACK_URL" validate:"omitempty,url"`

	GatewayID    string        `envconfig:"SMS_GATEWAY_ID" default:"sms-gateway"`
	GatewayURL   string        `envconfig:"SMS_GATEWAY_URL" validate:"omitempty,url"`
	GatewayToken SecretString  `envconfig:"SMS_GATEWAY_TOKEN"`
	Timeout      time.Duration `envconfig:"SMS_GATEWAY_TIMEOUT" default:"10s"`
}

// EmailConfig configures the email channel and the SES provider.
type EmailConfig struct {
	Enabled  bool   `envconfig:"EMAIL_ENABLED" default:"false"`
	From     string `envconfig:"EMAIL_FROM_ADDRESS" validate:"omitempty,email"`
	FromName string `envconfig:"EMAIL_FROM_NAME"`
	ReplyTo  string `envconfig:"EMAIL_REPLY_TO" validate:"omitempty,email"`

	SubjectTemplate string   `envconfig:"EMAIL_SUBJECT_TEMPLATE"`
	HTMLTemplate    string   `envconfig:"EMAIL_HTML_TEMPLATE"`
	TextTemplate    string   `envconfig:"EMAIL_TEXT_TEMPLATE"`
	ProviderIDs     []string `envconfig:"EMAIL_PROVIDER_IDS"`
	CallbackURL     string   `envconfig:"EMAIL_CALLBACK_URL" validate:"omitempty,url"`

	SESProviderID string `envconfig:"SES_PROVIDER_ID" default:"ses"`
	SESConfigSet  string `envconfig:"SES_CONFIGURATION_SET"`
}

// PushConfig configures the push channel. Push is only delivered through
// the SQS hand-off provider.
type PushConfig struct {
	Enabled       bool     `envconfig:"PUSH_ENABLED" default:"false"`
	TitleTemplate string   `envconfig:"PUSH_TITLE_TEMPLATE"`
	BodyTemplate  string   `envconfig:"PUSH_BODY_TEMPLATE"`
	ImageURL      string   `envconfig:"PUSH_IMAGE_URL" validate:"omitempty,url"`
	ProviderIDs   []string `envconfig:"PUSH_PROVIDER_IDS"`
	CallbackURL   string   `envconfig:"PUSH_CALLBACK_URL" validate:"omitempty,url"`

	HandoffProviderID string `envconfig:"HANDOFF_PROVIDER_ID" default:"handoff"`
}

// ReportConfig configures the delivery report endpoint.
type ReportConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// SigningSecret enables signature verification when set.
	SigningSecret SecretString  `envconfig:"REPORT_SIGNING_SECRET"`
	Tolerance     time.Duration `envconfig:"REPORT_SIGNATURE_TOLERANCE" default:"5m"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"Transmit"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// BuildInfo identifies the running binary. See NewBuildInfo.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	ErrValidation    ConfigErrorType = "VALIDATION_FAILED"
	ErrParsing       ConfigErrorType = "PARSING_FAILED"
)

// ConfigError is returned by Load.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// SlogLevel maps LogLevel onto slog. Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// checkChannels enforces the rules that span fields: an enabled channel
// needs a message template and a way to deliver it.
func (c *Config) checkChannels() error {
	var problems []string

	if c.SMS.Enabled {
		if c.SMS.Template == "" {
			problems = append(problems, "SMS_TEMPLATE is required when SMS is enabled")
		}
		if c.SMS.GatewayURL == "" && c.AWS.HandoffQueueURL == "" {
			problems = append(problems, "SMS needs SMS_GATEWAY_URL or SQS_HANDOFF")
		}
	}
	if c.Email.Enabled {
		if c.Email.HTMLTemplate == "" && c.Email.TextTemplate == "" {
			problems = append(problems, "EMAIL_HTML_TEMPLATE or EMAIL_TEXT_TEMPLATE is required when email is enabled")
		}
	}
	if c.Push.Enabled {
		if c.Push.BodyTemplate == "" {
			problems = append(problems, "PUSH_BODY_TEMPLATE is required when push is enabled")
		}
		if c.AWS.HandoffQueueURL == "" {
			problems = append(problems, "push requires SQS_HANDOFF")
		}
	}
	if !c.SMS.Enabled && !c.Email.Enabled && !c.Push.Enabled {
		problems = append(problems, "at least one channel must be enabled")
	}

	if len(problems) > 0 {
		return &ConfigError{
			Type:    ErrValidation,
			Message: strings.Join(problems, "; "),
		}
	}
	return nil
}
