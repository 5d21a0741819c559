package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/diegogrr/vpcweaver/pkg/config"
	awsprovider "github.com/diegogrr/vpcweaver/pkg/provider/aws"
)

var (
	instanceConfigFile string

	instanceLaunchImage   string
	instanceLaunchType    string
	instanceLaunchKeyName string
	instanceLaunchSubnet  string
	instanceLaunchSGs     []string
	instanceLaunchName    string

	instanceCmd = &cobra.Command{
		Use:   "instance",
		Short: "Manage EC2 instances in the provisioned topology",
	}

	instanceLaunchCmd = &cobra.Command{
		Use:   "launch",
		Short: "Launch an EC2 instance",
		Long: `Launch a single EC2 instance. Image, type and key name default to the
instance section of the configuration file; the subnet flag places the
instance into one of the provisioned subnets.`,
		RunE: runInstanceLaunch,
	}

	instanceListCmd = &cobra.Command{
		Use:   "list",
		Short: "List EC2 instances",
		RunE:  runInstanceList,
	}

	instanceTerminateCmd = &cobra.Command{
		Use:   "terminate <instance-id>",
		Short: "Terminate an EC2 instance",
		Args:  cobra.ExactArgs(1),
		RunE:  runInstanceTerminate,
	}
)

func init() {
	instanceCmd.PersistentFlags().StringVarP(&instanceConfigFile, "file", "f", "vpcweaver.yaml", "Path to vpcweaver.yaml file")

	instanceLaunchCmd.Flags().StringVar(&instanceLaunchImage, "image", "", "AMI ID (defaults to config)")
	instanceLaunchCmd.Flags().StringVar(&instanceLaunchType, "type", "", "Instance type (defaults to config)")
	instanceLaunchCmd.Flags().StringVar(&instanceLaunchKeyName, "key-name", "", "SSH key pair name (defaults to config)")
	instanceLaunchCmd.Flags().StringVar(&instanceLaunchSubnet, "subnet", "", "Subnet ID to launch into")
	instanceLaunchCmd.Flags().StringSliceVar(&instanceLaunchSGs, "security-group", nil, "Security group ID (repeatable)")
	instanceLaunchCmd.Flags().StringVar(&instanceLaunchName, "name", "", "Value for the instance Name tag")

	instanceCmd.AddCommand(instanceLaunchCmd)
	instanceCmd.AddCommand(instanceListCmd)
	instanceCmd.AddCommand(instanceTerminateCmd)
}

func runInstanceLaunch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "cmd.instance.launch")
	defer span.End()

	cfg, err := config.Load(ctx, instanceConfigFile)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to load configuration", "error", err, "file", instanceConfigFile)
		return err
	}

	spec := awsprovider.LaunchSpec{
		ImageID:          instanceLaunchImage,
		InstanceType:     instanceLaunchType,
		KeyName:          instanceLaunchKeyName,
		SecurityGroupIDs: instanceLaunchSGs,
		SubnetID:         instanceLaunchSubnet,
		Name:             instanceLaunchName,
	}
	if cfg.Instance != nil {
		if spec.ImageID == "" {
			spec.ImageID = cfg.Instance.ImageID
		}
		if spec.InstanceType == "" {
			spec.InstanceType = cfg.Instance.InstanceType
		}
		if spec.KeyName == "" {
			spec.KeyName = cfg.Instance.KeyName
		}
	}
	if spec.Name == "" {
		spec.Name = cfg.NamePrefix + "-instance"
	}
	if spec.ImageID == "" {
		err := fmt.Errorf("no AMI ID: set --image or the instance section of the config file")
		span.RecordError(err)
		return err
	}

	span.SetAttributes(
		attribute.String("image_id", spec.ImageID),
		attribute.String("instance_type", spec.InstanceType),
	)

	clients, err := awsprovider.NewClients(ctx, cfg.Region)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to create AWS clients", "error", err)
		return err
	}

	instanceID, err := awsprovider.NewInstanceService(clients).Launch(ctx, spec)
	if err != nil {
		span.RecordError(err)
		slog.Error("Instance launch failed", "error", err)
		return err
	}

	slog.Info("Instance launched", "instance_id", instanceID, "name", spec.Name)
	fmt.Printf("Launched instance %s (%s)\n", instanceID, spec.Name)
	return nil
}

func runInstanceList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "cmd.instance.list")
	defer span.End()

	cfg, err := config.Load(ctx, instanceConfigFile)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to load configuration", "error", err, "file", instanceConfigFile)
		return err
	}

	clients, err := awsprovider.NewClients(ctx, cfg.Region)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to create AWS clients", "error", err)
		return err
	}

	instances, err := awsprovider.NewInstanceService(clients).List(ctx)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to list instances", "error", err)
		return err
	}

	if len(instances) == 0 {
		fmt.Println("No instances found")
		return nil
	}
	for _, instance := range instances {
		fmt.Printf("%-20s %-12s %s\n", instance.ID, instance.State, instance.Name)
	}
	return nil
}

func runInstanceTerminate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "cmd.instance.terminate")
	defer span.End()

	instanceID := args[0]
	span.SetAttributes(attribute.String("instance_id", instanceID))

	cfg, err := config.Load(ctx, instanceConfigFile)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to load configuration", "error", err, "file", instanceConfigFile)
		return err
	}

	clients, err := awsprovider.NewClients(ctx, cfg.Region)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to create AWS clients", "error", err)
		return err
	}

	if err := awsprovider.NewInstanceService(clients).Terminate(ctx, instanceID); err != nil {
		span.RecordError(err)
		slog.Error("Instance termination failed", "error", err, "instance_id", instanceID)
		return err
	}

	slog.Info("Instance terminated", "instance_id", instanceID)
	fmt.Printf("Terminated instance %s\n", instanceID)
	return nil
}
