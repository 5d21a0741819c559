package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/diegogrr/vpcweaver/pkg/config"
	"github.com/diegogrr/vpcweaver/pkg/plan"
)

var (
	planConfigFile string

	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Show the address plan without provisioning",
		Long: `Compute and print the subnet address plan for the configured base
block and availability zones. No AWS calls are made and no credentials
are needed; the plan is a pure function of the configuration.`,
		RunE: runPlan,
	}
)

func init() {
	planCmd.Flags().StringVarP(&planConfigFile, "file", "f", "vpcweaver.yaml", "Path to vpcweaver.yaml file")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "cmd.plan")
	defer span.End()

	span.SetAttributes(attribute.String("config.file", planConfigFile))

	cfg, err := config.Load(ctx, planConfigFile)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to load configuration", "error", err, "file", planConfigFile)
		return err
	}

	topoCfg, err := cfg.TopologyConfig()
	if err != nil {
		span.RecordError(err)
		slog.Error("Invalid network configuration", "error", err)
		return err
	}

	assignment, err := plan.Plan(topoCfg.BaseBlock, topoCfg.Zones, topoCfg.SubnetPrefixLen)
	if err != nil {
		span.RecordError(err)
		slog.Error("Address planning failed", "error", err)
		return err
	}

	fmt.Printf("Address plan for %s (subnets /%d):\n", assignment.Base, topoCfg.SubnetPrefixLen)
	for _, zp := range assignment.Zones {
		fmt.Printf("  %s\n", zp.Zone)
		fmt.Printf("    public:  %s\n", zp.Public)
		fmt.Printf("    private: %s\n", zp.Private)
	}
	return nil
}
