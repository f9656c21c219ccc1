// Package main is the entrypoint for the delivery report receiver.
//
// Providers POST delivery status batches to /delivery-reports/{providerID}.
// Each report is verified, logged, and counted in CloudWatch. Graceful
// shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"transmit/internal/config"
	"transmit/internal/deliveryreport"
	"transmit/internal/dispatch"
	"transmit/internal/types"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	var provider config.SecretProvider = config.EnvVarProvider{}
	if os.Getenv("APP_ENV") != "local" {
		region := os.Getenv("AWS_REGION")
		if region == "" {
			region = "us-east-1"
		}
		provider = config.NewSSMProvider(region)
	}

	cfg, err := config.Load(ctx, provider)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := types.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))).With("service", cfg.Service+"-reports", "version", cfg.Build.Version)

	handlerCfg := deliveryreport.HandlerConfig{
		Sink:   deliveryreport.LogSink{Logger: logger},
		Logger: logger,
	}
	if !cfg.Reports.SigningSecret.IsEmpty() {
		handlerCfg.Signer = deliveryreport.NewSigner(cfg.Reports.SigningSecret, cfg.Reports.Tolerance, nil)
	} else {
		logger.Warn("delivery report signatures are not verified; REPORT_SIGNING_SECRET is unset")
	}

	if cfg.Observability.EnableMetrics {
		awsOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWS.Region)}
		if cfg.AWS.EndpointURL != "" {
			awsOpts = append(awsOpts, awsconfig.WithBaseEndpoint(cfg.AWS.EndpointURL))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
		if err != nil {
			return fmt.Errorf("loading AWS SDK config: %w", err)
		}
		handlerCfg.Metrics = dispatch.NewCloudWatchMetrics(
			cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger)
	}

	addr := ":" + cfg.Reports.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           newRouter(deliveryreport.NewHandler(handlerCfg), logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("report receiver listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("report receiver stopped")
	return nil
}
