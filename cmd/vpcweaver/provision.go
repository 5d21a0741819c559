package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/diegogrr/vpcweaver/pkg/config"
	awsprovider "github.com/diegogrr/vpcweaver/pkg/provider/aws"
	"github.com/diegogrr/vpcweaver/pkg/status"
	"github.com/diegogrr/vpcweaver/pkg/topology"
)

var (
	provisionConfigFile string

	provisionCmd = &cobra.Command{
		Use:   "provision",
		Short: "Provision the network topology",
		Long: `Provision the full multi-tier topology described by the configuration:
VPC, public and private subnets per availability zone, internet gateway,
NAT gateway, and route tables.

Provisioning stops at the first failure and reports every resource
created up to that point. Nothing is deleted on failure; clean up
manually using the reported IDs.`,
		RunE: runProvision,
	}
)

func init() {
	provisionCmd.Flags().StringVarP(&provisionConfigFile, "file", "f", "vpcweaver.yaml", "Path to vpcweaver.yaml file")
}

func runProvision(cmd *cobra.Command, args []string) error {
	// Get cancellable context from cobra (for signal handling)
	ctx := cmd.Context()
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "cmd.provision")
	defer span.End()

	span.SetAttributes(attribute.String("config.file", provisionConfigFile))

	slog.Info("Starting provisioning", "config_file", provisionConfigFile)

	// Setup status handler for progress updates
	ctx, cleanupStatus := status.StartHandler(ctx, statusLogHandler())
	defer cleanupStatus()

	// Handle context cancellation (from signal interrupt)
	defer func() {
		if ctx.Err() == context.Canceled {
			slog.Warn("Provisioning interrupted by user")
		}
	}()

	cfg, err := config.Load(ctx, provisionConfigFile)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to load configuration", "error", err, "file", provisionConfigFile)
		return err
	}

	topoCfg, err := cfg.TopologyConfig()
	if err != nil {
		span.RecordError(err)
		slog.Error("Invalid network configuration", "error", err)
		return err
	}

	clients, err := awsprovider.NewClients(ctx, cfg.Region)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to create AWS clients", "error", err)
		return err
	}

	identity, err := awsprovider.VerifyCallerIdentity(ctx, clients.STS)
	if err != nil {
		span.RecordError(err)
		slog.Error("AWS credential check failed", "error", err)
		return err
	}
	slog.Info("AWS credentials verified", "account", identity.Account, "arn", identity.ARN)

	orchestrator := topology.NewOrchestrator(awsprovider.NewGateway(clients))
	topo, err := orchestrator.Provision(ctx, topoCfg)
	if err != nil {
		span.RecordError(err)

		var orchErr *topology.OrchestrationError
		if errors.As(err, &orchErr) {
			slog.Error("Provisioning halted",
				"step", orchErr.Step,
				"state", string(orchErr.State),
				"error", orchErr.Err,
			)
			printTopology(orchErr.Topology, "Resources created before the failure (not cleaned up):")
		} else {
			slog.Error("Provisioning failed", "error", err)
		}
		return err
	}

	slog.Info("Provisioning completed successfully", "network_id", topo.NetworkID)
	printTopology(topo, "Provisioned topology:")
	return nil
}

// printTopology writes a human-readable resource listing to stdout,
// skipping fields the run never reached
func printTopology(topo *topology.Topology, header string) {
	if topo == nil {
		return
	}

	fmt.Println(header)
	if topo.NetworkID != "" {
		fmt.Printf("  VPC:                 %s\n", topo.NetworkID)
	}
	if len(topo.PublicSubnetIDs) > 0 {
		fmt.Printf("  Public subnets:      %s\n", strings.Join(topo.PublicSubnetIDs, ", "))
	}
	if len(topo.PrivateSubnetIDs) > 0 {
		fmt.Printf("  Private subnets:     %s\n", strings.Join(topo.PrivateSubnetIDs, ", "))
	}
	if topo.InternetGatewayID != "" {
		fmt.Printf("  Internet gateway:    %s\n", topo.InternetGatewayID)
	}
	if topo.AllocationID != "" {
		fmt.Printf("  Elastic IP:          %s\n", topo.AllocationID)
	}
	if topo.NATGatewayID != "" {
		fmt.Printf("  NAT gateway:         %s\n", topo.NATGatewayID)
	}
	if topo.PublicRouteTableID != "" {
		fmt.Printf("  Public route table:  %s\n", topo.PublicRouteTableID)
	}
	if topo.PrivateRouteTableID != "" {
		fmt.Printf("  Private route table: %s\n", topo.PrivateRouteTableID)
	}
}
