package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Clients holds the AWS service clients this tool needs. Fields are the
// narrow interfaces from interfaces.go so tests can inject mocks.
type Clients struct {
	EC2            EC2ClientAPI
	S3             S3ClientAPI
	CloudFormation CloudFormationClientAPI
	STS            STSClientAPI
	Config         aws.Config
	Region         string
}

// NewClients creates all service clients for the given region.
// Credentials come from the default chain: environment variables,
// ~/.aws/credentials and ~/.aws/config, then instance/task roles.
func NewClients(ctx context.Context, region string) (*Clients, error) {
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "aws.NewClients")
	defer span.End()

	span.SetAttributes(attribute.String("aws.region", region))

	if region == "" {
		err := fmt.Errorf("AWS region is required")
		span.RecordError(err)
		return nil, err
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	// Fail fast on missing credentials instead of at the first API call
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to retrieve AWS credentials: %w", err)
	}
	if creds.AccessKeyID == "" {
		err := fmt.Errorf("AWS credentials not found: set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY or configure ~/.aws/credentials")
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("aws.credentials_loaded", true))

	return &Clients{
		EC2:            ec2.NewFromConfig(cfg),
		S3:             s3.NewFromConfig(cfg),
		CloudFormation: cloudformation.NewFromConfig(cfg),
		STS:            sts.NewFromConfig(cfg),
		Config:         cfg,
		Region:         region,
	}, nil
}
