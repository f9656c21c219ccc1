// Package main is the entrypoint for the dispatch worker Lambda function.
//
// The worker consumes dispatch requests from SQS, builds a dispatch context
// for each, and runs it through every configured channel. Channels, provider
// adapters and metrics are wired from config at cold start.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"transmit/internal/config"
	"transmit/internal/dispatch"
	"transmit/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load(ctx, secretProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := types.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))).With("service", cfg.Service, "version", cfg.Build.Version)

	logger.Info("dispatch worker initializing (cold start)", "environment", cfg.Environment)

	awsOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWS.Region)}
	if cfg.AWS.EndpointURL != "" {
		awsOpts = append(awsOpts, awsconfig.WithBaseEndpoint(cfg.AWS.EndpointURL))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return fmt.Errorf("loading AWS SDK config: %w", err)
	}

	registry, err := buildRegistry(cfg, awsCfg, sqs.NewFromConfig(awsCfg), logger)
	if err != nil {
		return fmt.Errorf("building provider registry: %w", err)
	}

	var metrics dispatch.Metrics = dispatch.NoopMetrics{}
	if cfg.Observability.EnableMetrics {
		metrics = dispatch.NewCloudWatchMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger)
	}

	dispatcher, err := dispatch.NewDispatcher(dispatch.Config{
		Channels: buildChannels(cfg, logger),
		Registry: registry,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("building dispatcher: %w", err)
	}

	handler := &Handler{dispatcher: dispatcher, logger: logger}

	// Local mode reads one SQS event from stdin:
	//	echo '{"Records":[{"messageId":"1","body":"{...}"}]}' | go run ./cmd/dispatch-worker
	if cfg.Environment == "local" {
		return runLocal(ctx, handler, logger)
	}

	lambda.Start(handler.Handle)
	return nil
}

// secretProvider resolves _SSM_PARAM pointers from SSM outside local mode.
func secretProvider() config.SecretProvider {
	if os.Getenv("APP_ENV") == "local" {
		return config.EnvVarProvider{}
	}
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	return config.NewSSMProvider(region)
}

func runLocal(ctx context.Context, handler *Handler, logger types.Logger) error {
	payload, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(payload, &sqsEvent); err != nil {
		return fmt.Errorf("parsing stdin as SQS event: %w", err)
	}

	response, err := handler.Handle(ctx, sqsEvent)
	if err != nil {
		return err
	}
	if len(response.BatchItemFailures) > 0 {
		out, _ := json.MarshalIndent(response, "", "  ")
		fmt.Fprintln(os.Stderr, string(out))
	}
	logger.Info("local run completed",
		"records_processed", len(sqsEvent.Records),
		"failures", len(response.BatchItemFailures),
	)
	return nil
}
