package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/diegogrr/vpcweaver/pkg/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "vpcweaver",
	Short: "vpcweaver - multi-tier VPC topology provisioning for AWS",
	Long: `vpcweaver provisions a complete multi-tier network topology on AWS:
a VPC, public and private subnets across availability zones, an internet
gateway, a NAT gateway, and the route tables that wire the tiers together.

It also covers the surrounding lifecycle: launching instances into the
provisioned subnets and deploying CloudFormation stacks with static assets.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup structured logging
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)
	},
}

func init() {
	// Load .env file if it exists (silently ignore if not found)
	// This allows users to optionally use .env for local development
	_ = godotenv.Load()

	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(instanceCmd)
	rootCmd.AddCommand(stackCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx := context.Background()

	// Setup OpenTelemetry
	_, shutdown, err := telemetry.Setup(ctx)
	if err != nil {
		slog.Error("Failed to setup telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
