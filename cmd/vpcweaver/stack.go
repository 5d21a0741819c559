package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/diegogrr/vpcweaver/pkg/config"
	awsprovider "github.com/diegogrr/vpcweaver/pkg/provider/aws"
)

var (
	stackConfigFile string

	stackDeployName     string
	stackDeployTemplate string
	stackDeployAssets   string
	stackDeployBucket   string

	stackCmd = &cobra.Command{
		Use:   "stack",
		Short: "Deploy CloudFormation stacks",
	}

	stackDeployCmd = &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a CloudFormation stack and upload assets",
		Long: `Create the CloudFormation stack from the configured template and wait
for it to complete. If an assets directory is configured, its files are
then uploaded to the bucket named by the stack output whose key matches
--bucket-output, preserving relative paths and content types.`,
		RunE: runStackDeploy,
	}
)

func init() {
	stackCmd.PersistentFlags().StringVarP(&stackConfigFile, "file", "f", "vpcweaver.yaml", "Path to vpcweaver.yaml file")

	stackDeployCmd.Flags().StringVar(&stackDeployName, "name", "", "Stack name (defaults to config)")
	stackDeployCmd.Flags().StringVar(&stackDeployTemplate, "template", "", "Template file path (defaults to config)")
	stackDeployCmd.Flags().StringVar(&stackDeployAssets, "assets", "", "Local assets directory to upload (defaults to config)")
	stackDeployCmd.Flags().StringVar(&stackDeployBucket, "bucket-output", "BucketName", "Stack output key holding the target bucket name")

	stackCmd.AddCommand(stackDeployCmd)
}

func runStackDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "cmd.stack.deploy")
	defer span.End()

	cfg, err := config.Load(ctx, stackConfigFile)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to load configuration", "error", err, "file", stackConfigFile)
		return err
	}

	name := stackDeployName
	templatePath := stackDeployTemplate
	assetsDir := stackDeployAssets
	if cfg.Stack != nil {
		if name == "" {
			name = cfg.Stack.Name
		}
		if templatePath == "" {
			templatePath = cfg.Stack.TemplatePath
		}
		if assetsDir == "" {
			assetsDir = cfg.Stack.AssetsDir
		}
	}
	if name == "" || templatePath == "" {
		err := fmt.Errorf("stack name and template are required: set flags or the stack section of the config file")
		span.RecordError(err)
		return err
	}

	span.SetAttributes(
		attribute.String("stack_name", name),
		attribute.String("template_path", templatePath),
	)

	templateBody, err := os.ReadFile(templatePath)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to read template", "error", err, "path", templatePath)
		return fmt.Errorf("failed to read template %s: %w", templatePath, err)
	}

	clients, err := awsprovider.NewClients(ctx, cfg.Region)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to create AWS clients", "error", err)
		return err
	}

	svc := awsprovider.NewStackService(clients)

	slog.Info("Deploying stack", "stack_name", name)
	if err := svc.DeployStack(ctx, name, string(templateBody)); err != nil {
		span.RecordError(err)
		slog.Error("Stack deployment failed", "error", err, "stack_name", name)
		return err
	}
	slog.Info("Stack deployed", "stack_name", name)

	outputs, err := svc.StackOutputs(ctx, name)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to read stack outputs", "error", err, "stack_name", name)
		return err
	}
	for key, value := range outputs {
		fmt.Printf("  %s: %s\n", key, value)
	}

	if assetsDir == "" {
		return nil
	}

	bucket, ok := outputs[stackDeployBucket]
	if !ok || bucket == "" {
		err := fmt.Errorf("stack %s has no output %q to upload assets to", name, stackDeployBucket)
		span.RecordError(err)
		return err
	}

	slog.Info("Uploading assets", "bucket", bucket, "assets_dir", assetsDir)
	if err := svc.UploadAssets(ctx, bucket, assetsDir); err != nil {
		span.RecordError(err)
		slog.Error("Asset upload failed", "error", err, "bucket", bucket)
		return err
	}
	slog.Info("Assets uploaded", "bucket", bucket)
	return nil
}
