package aws

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// LaunchSpec describes an EC2 instance to launch
type LaunchSpec struct {
	ImageID          string
	InstanceType     string
	KeyName          string
	SecurityGroupIDs []string
	SubnetID         string
	Name             string
}

// InstanceSummary is one row of a ListInstances result
type InstanceSummary struct {
	ID    string
	State string
	Name  string
}

// InstanceService launches, lists and terminates EC2 instances
type InstanceService struct {
	ec2 EC2ClientAPI
}

// NewInstanceService returns an instance service backed by the given clients
func NewInstanceService(clients *Clients) *InstanceService {
	return &InstanceService{ec2: clients.EC2}
}

// Launch starts a single instance from the spec and returns its ID. The
// Name tag is applied at launch through a tag specification so the
// instance is never visible untagged.
func (s *InstanceService) Launch(ctx context.Context, spec LaunchSpec) (string, error) {
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "aws.LaunchInstance")
	defer span.End()

	span.SetAttributes(
		attribute.String("image_id", spec.ImageID),
		attribute.String("instance_type", spec.InstanceType),
		attribute.String("subnet_id", spec.SubnetID),
	)

	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(spec.ImageID),
		InstanceType: types.InstanceType(spec.InstanceType),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
	}
	if spec.KeyName != "" {
		input.KeyName = aws.String(spec.KeyName)
	}
	if len(spec.SecurityGroupIDs) > 0 {
		input.SecurityGroupIds = spec.SecurityGroupIDs
	}
	if spec.SubnetID != "" {
		input.SubnetId = aws.String(spec.SubnetID)
	}
	if spec.Name != "" {
		input.TagSpecifications = []types.TagSpecification{
			{
				ResourceType: types.ResourceTypeInstance,
				Tags: []types.Tag{
					{Key: aws.String("Name"), Value: aws.String(spec.Name)},
				},
			},
		}
	}

	out, err := s.ec2.RunInstances(ctx, input)
	if err != nil {
		span.RecordError(err)
		return "", classifyCallError(err)
	}
	if len(out.Instances) == 0 {
		err := fmt.Errorf("RunInstances returned no instances")
		span.RecordError(err)
		return "", err
	}

	instanceID := aws.ToString(out.Instances[0].InstanceId)
	span.SetAttributes(attribute.String("instance_id", instanceID))
	return instanceID, nil
}

// List returns all instances in the account's region, sorted by state
// then name so terminated instances group together in output
func (s *InstanceService) List(ctx context.Context) ([]InstanceSummary, error) {
	out, err := s.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{})
	if err != nil {
		return nil, classifyCallError(err)
	}

	var instances []InstanceSummary
	for _, reservation := range out.Reservations {
		for _, instance := range reservation.Instances {
			summary := InstanceSummary{
				ID:    aws.ToString(instance.InstanceId),
				State: string(instance.State.Name),
				Name:  "N/A",
			}
			for _, tag := range instance.Tags {
				if aws.ToString(tag.Key) == "Name" {
					summary.Name = aws.ToString(tag.Value)
					break
				}
			}
			instances = append(instances, summary)
		}
	}

	sort.Slice(instances, func(i, j int) bool {
		if instances[i].State != instances[j].State {
			return instances[i].State < instances[j].State
		}
		return instances[i].Name < instances[j].Name
	})
	return instances, nil
}

// Terminate terminates the given instance
func (s *InstanceService) Terminate(ctx context.Context, instanceID string) error {
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "aws.TerminateInstance")
	defer span.End()

	span.SetAttributes(attribute.String("instance_id", instanceID))

	_, err := s.ec2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		span.RecordError(err)
		return classifyCallError(err)
	}
	return nil
}

// CreateKeyPair creates an SSH key pair and returns the private key
// material in PEM format. The material is only available at creation
// time, so the caller must persist it immediately.
func (s *InstanceService) CreateKeyPair(ctx context.Context, name string) (string, error) {
	out, err := s.ec2.CreateKeyPair(ctx, &ec2.CreateKeyPairInput{
		KeyName: aws.String(name),
	})
	if err != nil {
		return "", classifyCallError(err)
	}
	return aws.ToString(out.KeyMaterial), nil
}

// CreateSSHSecurityGroup creates a security group in the given VPC that
// allows inbound SSH from anywhere and returns its ID
func (s *InstanceService) CreateSSHSecurityGroup(ctx context.Context, networkID, name string) (string, error) {
	created, err := s.ec2.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String(name),
		Description: aws.String("SSH access managed by vpcweaver"),
		VpcId:       aws.String(networkID),
	})
	if err != nil {
		return "", classifyCallError(err)
	}

	groupID := aws.ToString(created.GroupId)
	_, err = s.ec2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId: aws.String(groupID),
		IpPermissions: []types.IpPermission{
			{
				IpProtocol: aws.String("tcp"),
				FromPort:   aws.Int32(22),
				ToPort:     aws.Int32(22),
				IpRanges: []types.IpRange{
					{CidrIp: aws.String("0.0.0.0/0")},
				},
			},
		},
	})
	if err != nil {
		return "", classifyCallError(err)
	}
	return groupID, nil
}
