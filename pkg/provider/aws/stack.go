package aws

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/diegogrr/vpcweaver/pkg/topology"
)

// DefaultStackWaitTimeout bounds how long DeployStack waits for a stack
// to reach CREATE_COMPLETE
const DefaultStackWaitTimeout = 30 * time.Minute

// uploadConcurrency caps parallel S3 uploads in UploadAssets
const uploadConcurrency = 8

// StackService deploys CloudFormation stacks and uploads site assets to
// the buckets those stacks create
type StackService struct {
	cfn          CloudFormationClientAPI
	s3           S3ClientAPI
	pollInterval time.Duration
}

// NewStackService returns a stack service backed by the given clients
func NewStackService(clients *Clients) *StackService {
	return &StackService{
		cfn:          clients.CloudFormation,
		s3:           clients.S3,
		pollInterval: DefaultPollInterval,
	}
}

// DeployStack creates the named stack from the template body and waits
// until creation completes. A stack that lands in a failed or rollback
// state is reported as a rejected call.
func (s *StackService) DeployStack(ctx context.Context, stackName, templateBody string) error {
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "aws.DeployStack")
	defer span.End()

	span.SetAttributes(attribute.String("stack_name", stackName))

	_, err := s.cfn.CreateStack(ctx, &cloudformation.CreateStackInput{
		StackName:    aws.String(stackName),
		TemplateBody: aws.String(templateBody),
		Capabilities: []cfntypes.Capability{cfntypes.CapabilityCapabilityIam},
	})
	if err != nil {
		span.RecordError(err)
		return classifyCallError(err)
	}

	if err := s.waitForStack(ctx, stackName, DefaultStackWaitTimeout); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// StackOutputs returns the named stack's outputs as a key/value map
func (s *StackService) StackOutputs(ctx context.Context, stackName string) (map[string]string, error) {
	out, err := s.cfn.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return nil, classifyCallError(err)
	}
	if len(out.Stacks) == 0 {
		return nil, &topology.ProviderCallError{
			Kind: topology.CallNotFound,
			Code: "StackNotFound",
			Err:  fmt.Errorf("stack %s not found", stackName),
		}
	}

	outputs := make(map[string]string, len(out.Stacks[0].Outputs))
	for _, output := range out.Stacks[0].Outputs {
		outputs[aws.ToString(output.OutputKey)] = aws.ToString(output.OutputValue)
	}
	return outputs, nil
}

// UploadAssets walks the local directory and uploads every file to the
// bucket, preserving the relative path as the object key and setting the
// Content-Type from the file extension. Uploads run concurrently.
func (s *StackService) UploadAssets(ctx context.Context, bucket, localDir string) error {
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "aws.UploadAssets")
	defer span.End()

	span.SetAttributes(
		attribute.String("bucket", bucket),
		attribute.String("local_dir", localDir),
	)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(uploadConcurrency)

	err := filepath.WalkDir(localDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(relPath)

		group.Go(func() error {
			return s.uploadFile(ctx, bucket, key, path)
		})
		return nil
	})
	if err != nil {
		span.RecordError(err)
		group.Wait()
		return fmt.Errorf("failed to walk asset directory %s: %w", localDir, err)
	}

	if err := group.Wait(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *StackService) uploadFile(ctx context.Context, bucket, key, path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return classifyCallError(err)
	}
	return nil
}

// waitForStack polls stack status until CREATE_COMPLETE, a terminal
// failure state, or the timeout
func (s *StackService) waitForStack(ctx context.Context, stackName string, timeout time.Duration) error {
	start := time.Now()
	deadline := start.Add(timeout)

	for {
		out, err := s.cfn.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
			StackName: aws.String(stackName),
		})
		if err != nil {
			return classifyCallError(err)
		}

		if len(out.Stacks) > 0 {
			status := out.Stacks[0].StackStatus
			switch status {
			case cfntypes.StackStatusCreateComplete:
				return nil
			case cfntypes.StackStatusCreateFailed,
				cfntypes.StackStatusRollbackInProgress,
				cfntypes.StackStatusRollbackComplete,
				cfntypes.StackStatusRollbackFailed:
				return &topology.ProviderCallError{
					Kind: topology.CallRejected,
					Code: string(status),
					Err:  fmt.Errorf("stack %s entered %s: %s", stackName, status, aws.ToString(out.Stacks[0].StackStatusReason)),
				}
			}
		}

		if !time.Now().Add(s.pollInterval).Before(deadline) {
			return &topology.ReadinessTimeoutError{
				Kind:       topology.ResourceKindStack,
				ResourceID: stackName,
				Waited:     time.Since(start),
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}
