package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-yaml"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Load parses a vpcweaver.yaml file, applies defaults and environment
// overrides, and returns the configuration. A missing file is not an
// error; the tool then runs on defaults and environment variables alone,
// matching how the original env-driven scripts behaved.
func Load(ctx context.Context, filePath string) (*Config, error) {
	tracer := otel.Tracer("vpcweaver")
	_, span := tracer.Start(ctx, "config.Load")
	defer span.End()

	span.SetAttributes(attribute.String("config.file", filePath))

	var config Config
	data, err := os.ReadFile(filePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		span.SetAttributes(attribute.Bool("config.file_found", false))
	case err != nil:
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to parse config file %s: %w", filePath, err)
		}
		span.SetAttributes(attribute.Bool("config.file_found", true))
	}

	config.applyDefaults()
	if err := config.applyEnvOverrides(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("config.region", config.Region),
		attribute.String("config.name_prefix", config.NamePrefix),
		attribute.String("config.base_block", config.Network.BaseBlock),
	)

	return &config, nil
}
