package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/diegogrr/vpcweaver/pkg/config"
	"github.com/diegogrr/vpcweaver/pkg/plan"
	awsprovider "github.com/diegogrr/vpcweaver/pkg/provider/aws"
)

var (
	validateConfigFile string
	validateCreds      bool

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validate the vpcweaver.yaml file without provisioning anything. This
checks that the file parses, the base block is a valid IPv4 prefix, and
the address plan fits the configured zones.

Use --validate-creds to also verify AWS credentials via STS.`,
		RunE: runValidate,
	}
)

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "file", "f", "vpcweaver.yaml", "Path to vpcweaver.yaml file")
	validateCmd.Flags().BoolVar(&validateCreds, "validate-creds", false, "Also verify AWS credentials via STS")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "cmd.validate")
	defer span.End()

	span.SetAttributes(
		attribute.String("config.file", validateConfigFile),
		attribute.Bool("validate_creds", validateCreds),
	)

	slog.Info("Validating configuration", "config_file", validateConfigFile)

	cfg, err := config.Load(ctx, validateConfigFile)
	if err != nil {
		span.RecordError(err)
		slog.Error("Configuration validation failed", "error", err, "file", validateConfigFile)
		return err
	}

	topoCfg, err := cfg.TopologyConfig()
	if err != nil {
		span.RecordError(err)
		slog.Error("Configuration validation failed", "error", err)
		return err
	}

	// A config is only usable if the planner accepts it
	if _, err := plan.Plan(topoCfg.BaseBlock, topoCfg.Zones, topoCfg.SubnetPrefixLen); err != nil {
		span.RecordError(err)
		slog.Error("Address plan validation failed", "error", err)
		return err
	}

	if validateCreds {
		clients, err := awsprovider.NewClients(ctx, cfg.Region)
		if err != nil {
			span.RecordError(err)
			slog.Error("AWS client setup failed", "error", err)
			return err
		}
		identity, err := awsprovider.VerifyCallerIdentity(ctx, clients.STS)
		if err != nil {
			span.RecordError(err)
			slog.Error("AWS credential validation failed", "error", err)
			return err
		}
		slog.Info("AWS credentials valid", "account", identity.Account, "arn", identity.ARN)
	}

	fmt.Println("Configuration is valid")
	return nil
}
