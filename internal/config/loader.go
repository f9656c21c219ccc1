package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ssmParamSuffix marks pointer variables: SMS_GATEWAY_TOKEN_SSM_PARAM holds
// the SSM path whose value becomes SMS_GATEWAY_TOKEN.
const ssmParamSuffix = "_SSM_PARAM"

const localEnv = "local"

// ssmTimeout bounds secret resolution during a cold start.
const ssmTimeout = 30 * time.Second

// environment is the process environment, swappable in tests.
type environment struct {
	lookup func(string) (string, bool)
	set    func(string, string) error
	list   func() []string
}

func osEnvironment() environment {
	return environment{lookup: os.LookupEnv, set: os.Setenv, list: os.Environ}
}

// Load reads .env, resolves _SSM_PARAM pointers through provider (skipped
// when APP_ENV is "local"), populates Config from the environment and
// validates it. provider may be nil when nothing needs resolving.
func Load(ctx context.Context, provider SecretProvider) (*Config, error) {
	return load(ctx, provider, osEnvironment())
}

func load(ctx context.Context, provider SecretProvider, env environment) (*Config, error) {
	time.Local = time.UTC

	// Does not override variables already set.
	_ = godotenv.Load()

	if appEnv, _ := env.lookup("APP_ENV"); appEnv != localEnv {
		if err := resolvePointers(ctx, provider, env); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{Type: ErrParsing, Message: "failed to process environment configuration", Err: err}
	}
	cfg.Build = NewBuildInfo()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{Type: ErrValidation, Message: "configuration validation failed", Err: err}
	}
	if err := cfg.checkChannels(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolvePointers fetches every _SSM_PARAM pointer whose target variable is
// not already set and exports the values. Targets already present win.
func resolvePointers(ctx context.Context, provider SecretProvider, env environment) error {
	targets := make(map[string]string) // ssm path -> env var
	for _, entry := range env.list() {
		key, path, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasSuffix(key, ssmParamSuffix) || path == "" {
			continue
		}
		target := strings.TrimSuffix(key, ssmParamSuffix)
		if _, set := env.lookup(target); set {
			continue
		}
		targets[path] = target
	}
	if len(targets) == 0 {
		return nil
	}

	paths := make([]string, 0, len(targets))
	for p := range targets {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	if provider == nil {
		names := make([]string, 0, len(paths))
		for _, p := range paths {
			names = append(names, targets[p])
		}
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: fmt.Sprintf("a SecretProvider is required to resolve %s", strings.Join(names, ", ")),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, ssmTimeout)
	defer cancel()

	values, err := provider.GetParametersBatch(ctx, paths)
	if err != nil {
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: fmt.Sprintf("failed to resolve %d SSM parameters", len(paths)),
			Err:     err,
		}
	}

	var missing []string
	for _, p := range paths {
		v, ok := values[p]
		if !ok {
			missing = append(missing, targets[p])
			continue
		}
		if err := env.set(targets[p], v); err != nil {
			return &ConfigError{Type: ErrSSMResolution, Message: "failed to export " + targets[p], Err: err}
		}
	}
	if len(missing) > 0 {
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: "SSM parameters not found for: " + strings.Join(missing, ", "),
		}
	}
	return nil
}
