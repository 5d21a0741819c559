// Package aws adapts the topology.ProviderGateway contract onto the AWS
// SDK. The adapter owns everything provider-specific: request shaping,
// error classification, and readiness polling. Retry of transient
// failures is left to the SDK's standard retry middleware, so the
// orchestrator sees each call as a single attempt.
package aws

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/diegogrr/vpcweaver/pkg/topology"
)

// DefaultPollInterval is how often WaitUntilReady re-checks resource state
const DefaultPollInterval = 15 * time.Second

// Gateway implements topology.ProviderGateway on top of EC2
type Gateway struct {
	ec2          EC2ClientAPI
	pollInterval time.Duration
}

// NewGateway returns a gateway backed by the given clients
func NewGateway(clients *Clients) *Gateway {
	return &Gateway{ec2: clients.EC2, pollInterval: DefaultPollInterval}
}

// NewGatewayWithPollInterval is NewGateway with a custom readiness poll
// interval; tests use short intervals
func NewGatewayWithPollInterval(clients *Clients, interval time.Duration) *Gateway {
	return &Gateway{ec2: clients.EC2, pollInterval: interval}
}

var _ topology.ProviderGateway = (*Gateway)(nil)

// CreateNetwork creates a VPC for the given address block
func (g *Gateway) CreateNetwork(ctx context.Context, block netip.Prefix) (string, error) {
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "aws.CreateNetwork")
	defer span.End()

	span.SetAttributes(attribute.String("cidr", block.String()))

	out, err := g.ec2.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock: aws.String(block.String()),
	})
	if err != nil {
		span.RecordError(err)
		return "", classifyCallError(err)
	}

	vpcID := aws.ToString(out.Vpc.VpcId)
	span.SetAttributes(attribute.String("vpc_id", vpcID))
	return vpcID, nil
}

// CreateSubnet creates a subnet in the given VPC and availability zone
func (g *Gateway) CreateSubnet(ctx context.Context, networkID string, block netip.Prefix, zone string) (string, error) {
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "aws.CreateSubnet")
	defer span.End()

	span.SetAttributes(
		attribute.String("vpc_id", networkID),
		attribute.String("cidr", block.String()),
		attribute.String("availability_zone", zone),
	)

	out, err := g.ec2.CreateSubnet(ctx, &ec2.CreateSubnetInput{
		VpcId:            aws.String(networkID),
		CidrBlock:        aws.String(block.String()),
		AvailabilityZone: aws.String(zone),
	})
	if err != nil {
		span.RecordError(err)
		return "", classifyCallError(err)
	}

	subnetID := aws.ToString(out.Subnet.SubnetId)
	span.SetAttributes(attribute.String("subnet_id", subnetID))
	return subnetID, nil
}

// CreateInternetGateway creates a detached internet gateway
func (g *Gateway) CreateInternetGateway(ctx context.Context) (string, error) {
	out, err := g.ec2.CreateInternetGateway(ctx, &ec2.CreateInternetGatewayInput{})
	if err != nil {
		return "", classifyCallError(err)
	}
	return aws.ToString(out.InternetGateway.InternetGatewayId), nil
}

// AttachInternetGateway attaches an internet gateway to a VPC
func (g *Gateway) AttachInternetGateway(ctx context.Context, gatewayID, networkID string) error {
	_, err := g.ec2.AttachInternetGateway(ctx, &ec2.AttachInternetGatewayInput{
		InternetGatewayId: aws.String(gatewayID),
		VpcId:             aws.String(networkID),
	})
	if err != nil {
		return classifyCallError(err)
	}
	return nil
}

// AllocateStaticAddress allocates a VPC-scoped Elastic IP
func (g *Gateway) AllocateStaticAddress(ctx context.Context) (string, error) {
	out, err := g.ec2.AllocateAddress(ctx, &ec2.AllocateAddressInput{
		Domain: types.DomainTypeVpc,
	})
	if err != nil {
		return "", classifyCallError(err)
	}
	return aws.ToString(out.AllocationId), nil
}

// CreateNatGateway creates a NAT gateway in the given subnet, backed by a
// previously allocated Elastic IP
func (g *Gateway) CreateNatGateway(ctx context.Context, subnetID, allocationID string) (string, error) {
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "aws.CreateNatGateway")
	defer span.End()

	span.SetAttributes(
		attribute.String("subnet_id", subnetID),
		attribute.String("allocation_id", allocationID),
	)

	out, err := g.ec2.CreateNatGateway(ctx, &ec2.CreateNatGatewayInput{
		SubnetId:     aws.String(subnetID),
		AllocationId: aws.String(allocationID),
	})
	if err != nil {
		span.RecordError(err)
		return "", classifyCallError(err)
	}

	natID := aws.ToString(out.NatGateway.NatGatewayId)
	span.SetAttributes(attribute.String("nat_gateway_id", natID))
	return natID, nil
}

// CreateRouteTable creates an empty route table in the VPC
func (g *Gateway) CreateRouteTable(ctx context.Context, networkID string) (string, error) {
	out, err := g.ec2.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{
		VpcId: aws.String(networkID),
	})
	if err != nil {
		return "", classifyCallError(err)
	}
	return aws.ToString(out.RouteTable.RouteTableId), nil
}

// AddDefaultRoute installs the 0.0.0.0/0 route toward the target gateway
func (g *Gateway) AddDefaultRoute(ctx context.Context, routeTableID string, target topology.RouteTarget) error {
	input := &ec2.CreateRouteInput{
		RouteTableId:         aws.String(routeTableID),
		DestinationCidrBlock: aws.String("0.0.0.0/0"),
	}
	switch target.Kind {
	case topology.RouteTargetInternetGateway:
		input.GatewayId = aws.String(target.ID)
	case topology.RouteTargetNATGateway:
		input.NatGatewayId = aws.String(target.ID)
	default:
		return fmt.Errorf("unsupported route target kind %q", target.Kind)
	}

	if _, err := g.ec2.CreateRoute(ctx, input); err != nil {
		return classifyCallError(err)
	}
	return nil
}

// AssociateRouteTable associates a route table with a subnet
func (g *Gateway) AssociateRouteTable(ctx context.Context, routeTableID, subnetID string) error {
	_, err := g.ec2.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
		RouteTableId: aws.String(routeTableID),
		SubnetId:     aws.String(subnetID),
	})
	if err != nil {
		return classifyCallError(err)
	}
	return nil
}

// Tag sets the Name tag on a resource
func (g *Gateway) Tag(ctx context.Context, resourceID, name string) error {
	_, err := g.ec2.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{resourceID},
		Tags: []types.Tag{
			{Key: aws.String("Name"), Value: aws.String(name)},
		},
	})
	if err != nil {
		return classifyCallError(err)
	}
	return nil
}

// WaitUntilReady polls the resource's provider-side state at the
// configured interval until it reports available, the timeout elapses
// (*topology.ReadinessTimeoutError), or ctx is cancelled.
func (g *Gateway) WaitUntilReady(ctx context.Context, kind topology.ResourceKind, resourceID string, timeout time.Duration) error {
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "aws.WaitUntilReady")
	defer span.End()

	span.SetAttributes(
		attribute.String("resource_kind", string(kind)),
		attribute.String("resource_id", resourceID),
		attribute.String("timeout", timeout.String()),
	)

	start := time.Now()
	deadline := start.Add(timeout)

	for {
		ready, err := g.checkReady(ctx, kind, resourceID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if ready {
			span.SetAttributes(attribute.String("waited", time.Since(start).String()))
			return nil
		}

		if !time.Now().Add(g.pollInterval).Before(deadline) {
			err := &topology.ReadinessTimeoutError{
				Kind:       kind,
				ResourceID: resourceID,
				Waited:     time.Since(start),
			}
			span.RecordError(err)
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.pollInterval):
		}
	}
}

// checkReady performs one describe call and reports whether the resource
// has reached its usable state
func (g *Gateway) checkReady(ctx context.Context, kind topology.ResourceKind, resourceID string) (bool, error) {
	switch kind {
	case topology.ResourceKindNetwork:
		out, err := g.ec2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
			VpcIds: []string{resourceID},
		})
		if err != nil {
			return false, classifyCallError(err)
		}
		for _, vpc := range out.Vpcs {
			if aws.ToString(vpc.VpcId) == resourceID && vpc.State == types.VpcStateAvailable {
				return true, nil
			}
		}
		return false, nil

	case topology.ResourceKindNATGateway:
		out, err := g.ec2.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{
			NatGatewayIds: []string{resourceID},
		})
		if err != nil {
			return false, classifyCallError(err)
		}
		for _, nat := range out.NatGateways {
			if aws.ToString(nat.NatGatewayId) != resourceID {
				continue
			}
			switch nat.State {
			case types.NatGatewayStateAvailable:
				return true, nil
			case types.NatGatewayStateFailed:
				return false, &topology.ProviderCallError{
					Kind: topology.CallRejected,
					Code: "NatGatewayFailed",
					Err:  fmt.Errorf("NAT gateway %s entered failed state: %s", resourceID, aws.ToString(nat.FailureMessage)),
				}
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("readiness wait not supported for resource kind %q", kind)
	}
}
