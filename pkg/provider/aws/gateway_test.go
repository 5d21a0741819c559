package aws

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/diegogrr/vpcweaver/pkg/topology"
)

func testGateway(mock *MockEC2Client) *Gateway {
	return &Gateway{ec2: mock, pollInterval: time.Millisecond}
}

func TestCreateNetwork(t *testing.T) {
	var gotCIDR string
	mock := &MockEC2Client{
		CreateVpcFunc: func(ctx context.Context, params *ec2.CreateVpcInput, optFns ...func(*ec2.Options)) (*ec2.CreateVpcOutput, error) {
			gotCIDR = awssdk.ToString(params.CidrBlock)
			return &ec2.CreateVpcOutput{
				Vpc: &types.Vpc{VpcId: awssdk.String("vpc-0abc")},
			}, nil
		},
	}

	id, err := testGateway(mock).CreateNetwork(context.Background(), netip.MustParsePrefix("10.0.0.0/16"))
	if err != nil {
		t.Fatalf("CreateNetwork() error = %v", err)
	}
	if id != "vpc-0abc" {
		t.Errorf("CreateNetwork() = %q, want vpc-0abc", id)
	}
	if gotCIDR != "10.0.0.0/16" {
		t.Errorf("CidrBlock = %q, want 10.0.0.0/16", gotCIDR)
	}
}

func TestCreateNetworkClassifiesErrors(t *testing.T) {
	mock := &MockEC2Client{
		CreateVpcFunc: func(ctx context.Context, params *ec2.CreateVpcInput, optFns ...func(*ec2.Options)) (*ec2.CreateVpcOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "VpcLimitExceeded", Message: "too many VPCs"}
		},
	}

	_, err := testGateway(mock).CreateNetwork(context.Background(), netip.MustParsePrefix("10.0.0.0/16"))
	var callErr *topology.ProviderCallError
	if !errors.As(err, &callErr) {
		t.Fatalf("CreateNetwork() error = %T, want *topology.ProviderCallError", err)
	}
	if callErr.Kind != topology.CallRejected {
		t.Errorf("Kind = %v, want %v", callErr.Kind, topology.CallRejected)
	}
	if callErr.Code != "VpcLimitExceeded" {
		t.Errorf("Code = %q, want VpcLimitExceeded", callErr.Code)
	}
}

func TestCreateSubnet(t *testing.T) {
	var gotInput *ec2.CreateSubnetInput
	mock := &MockEC2Client{
		CreateSubnetFunc: func(ctx context.Context, params *ec2.CreateSubnetInput, optFns ...func(*ec2.Options)) (*ec2.CreateSubnetOutput, error) {
			gotInput = params
			return &ec2.CreateSubnetOutput{
				Subnet: &types.Subnet{SubnetId: awssdk.String("subnet-0abc")},
			}, nil
		},
	}

	id, err := testGateway(mock).CreateSubnet(context.Background(), "vpc-1", netip.MustParsePrefix("10.0.1.0/24"), "us-east-1a")
	if err != nil {
		t.Fatalf("CreateSubnet() error = %v", err)
	}
	if id != "subnet-0abc" {
		t.Errorf("CreateSubnet() = %q, want subnet-0abc", id)
	}
	if awssdk.ToString(gotInput.VpcId) != "vpc-1" {
		t.Errorf("VpcId = %q, want vpc-1", awssdk.ToString(gotInput.VpcId))
	}
	if awssdk.ToString(gotInput.CidrBlock) != "10.0.1.0/24" {
		t.Errorf("CidrBlock = %q, want 10.0.1.0/24", awssdk.ToString(gotInput.CidrBlock))
	}
	if awssdk.ToString(gotInput.AvailabilityZone) != "us-east-1a" {
		t.Errorf("AvailabilityZone = %q, want us-east-1a", awssdk.ToString(gotInput.AvailabilityZone))
	}
}

func TestAllocateStaticAddressUsesVpcDomain(t *testing.T) {
	var gotDomain types.DomainType
	mock := &MockEC2Client{
		AllocateAddressFunc: func(ctx context.Context, params *ec2.AllocateAddressInput, optFns ...func(*ec2.Options)) (*ec2.AllocateAddressOutput, error) {
			gotDomain = params.Domain
			return &ec2.AllocateAddressOutput{AllocationId: awssdk.String("eipalloc-1")}, nil
		},
	}

	id, err := testGateway(mock).AllocateStaticAddress(context.Background())
	if err != nil {
		t.Fatalf("AllocateStaticAddress() error = %v", err)
	}
	if id != "eipalloc-1" {
		t.Errorf("AllocateStaticAddress() = %q, want eipalloc-1", id)
	}
	if gotDomain != types.DomainTypeVpc {
		t.Errorf("Domain = %v, want %v", gotDomain, types.DomainTypeVpc)
	}
}

func TestAddDefaultRoute(t *testing.T) {
	tests := []struct {
		name       string
		target     topology.RouteTarget
		wantIGW    string
		wantNATGWY string
	}{
		{
			name:    "internet gateway target",
			target:  topology.InternetGatewayTarget("igw-1"),
			wantIGW: "igw-1",
		},
		{
			name:       "nat gateway target",
			target:     topology.NATGatewayTarget("nat-1"),
			wantNATGWY: "nat-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotInput *ec2.CreateRouteInput
			mock := &MockEC2Client{
				CreateRouteFunc: func(ctx context.Context, params *ec2.CreateRouteInput, optFns ...func(*ec2.Options)) (*ec2.CreateRouteOutput, error) {
					gotInput = params
					return &ec2.CreateRouteOutput{}, nil
				},
			}

			if err := testGateway(mock).AddDefaultRoute(context.Background(), "rtb-1", tt.target); err != nil {
				t.Fatalf("AddDefaultRoute() error = %v", err)
			}
			if awssdk.ToString(gotInput.DestinationCidrBlock) != "0.0.0.0/0" {
				t.Errorf("DestinationCidrBlock = %q, want 0.0.0.0/0", awssdk.ToString(gotInput.DestinationCidrBlock))
			}
			if awssdk.ToString(gotInput.GatewayId) != tt.wantIGW {
				t.Errorf("GatewayId = %q, want %q", awssdk.ToString(gotInput.GatewayId), tt.wantIGW)
			}
			if awssdk.ToString(gotInput.NatGatewayId) != tt.wantNATGWY {
				t.Errorf("NatGatewayId = %q, want %q", awssdk.ToString(gotInput.NatGatewayId), tt.wantNATGWY)
			}
		})
	}
}

func TestAddDefaultRouteRejectsUnknownTarget(t *testing.T) {
	mock := &MockEC2Client{}
	err := testGateway(mock).AddDefaultRoute(context.Background(), "rtb-1", topology.RouteTarget{Kind: "vpn", ID: "vgw-1"})
	if err == nil {
		t.Fatal("AddDefaultRoute() expected error for unknown target kind")
	}
}

func TestTagSetsNameKey(t *testing.T) {
	var gotInput *ec2.CreateTagsInput
	mock := &MockEC2Client{
		CreateTagsFunc: func(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error) {
			gotInput = params
			return &ec2.CreateTagsOutput{}, nil
		},
	}

	if err := testGateway(mock).Tag(context.Background(), "vpc-1", "demo-vpc"); err != nil {
		t.Fatalf("Tag() error = %v", err)
	}
	if len(gotInput.Resources) != 1 || gotInput.Resources[0] != "vpc-1" {
		t.Errorf("Resources = %v, want [vpc-1]", gotInput.Resources)
	}
	if len(gotInput.Tags) != 1 {
		t.Fatalf("Tags count = %d, want 1", len(gotInput.Tags))
	}
	if awssdk.ToString(gotInput.Tags[0].Key) != "Name" || awssdk.ToString(gotInput.Tags[0].Value) != "demo-vpc" {
		t.Errorf("Tag = %s=%s, want Name=demo-vpc", awssdk.ToString(gotInput.Tags[0].Key), awssdk.ToString(gotInput.Tags[0].Value))
	}
}

func TestWaitUntilReadyNetworkBecomesAvailable(t *testing.T) {
	calls := 0
	mock := &MockEC2Client{
		DescribeVpcsFunc: func(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
			calls++
			state := types.VpcStatePending
			if calls >= 3 {
				state = types.VpcStateAvailable
			}
			return &ec2.DescribeVpcsOutput{
				Vpcs: []types.Vpc{{VpcId: awssdk.String("vpc-1"), State: state}},
			}, nil
		},
	}

	err := testGateway(mock).WaitUntilReady(context.Background(), topology.ResourceKindNetwork, "vpc-1", time.Second)
	if err != nil {
		t.Fatalf("WaitUntilReady() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("DescribeVpcs calls = %d, want 3", calls)
	}
}

func TestWaitUntilReadyTimesOut(t *testing.T) {
	mock := &MockEC2Client{
		DescribeNatGatewaysFunc: func(ctx context.Context, params *ec2.DescribeNatGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error) {
			return &ec2.DescribeNatGatewaysOutput{
				NatGateways: []types.NatGateway{
					{NatGatewayId: awssdk.String("nat-1"), State: types.NatGatewayStatePending},
				},
			}, nil
		},
	}

	err := testGateway(mock).WaitUntilReady(context.Background(), topology.ResourceKindNATGateway, "nat-1", 10*time.Millisecond)
	var timeoutErr *topology.ReadinessTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("WaitUntilReady() error = %T, want *topology.ReadinessTimeoutError", err)
	}
	if timeoutErr.Kind != topology.ResourceKindNATGateway {
		t.Errorf("Kind = %v, want %v", timeoutErr.Kind, topology.ResourceKindNATGateway)
	}
	if timeoutErr.ResourceID != "nat-1" {
		t.Errorf("ResourceID = %q, want nat-1", timeoutErr.ResourceID)
	}
}

func TestWaitUntilReadyNatGatewayFailedState(t *testing.T) {
	mock := &MockEC2Client{
		DescribeNatGatewaysFunc: func(ctx context.Context, params *ec2.DescribeNatGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error) {
			return &ec2.DescribeNatGatewaysOutput{
				NatGateways: []types.NatGateway{
					{
						NatGatewayId:   awssdk.String("nat-1"),
						State:          types.NatGatewayStateFailed,
						FailureMessage: awssdk.String("insufficient addresses"),
					},
				},
			}, nil
		},
	}

	err := testGateway(mock).WaitUntilReady(context.Background(), topology.ResourceKindNATGateway, "nat-1", time.Second)
	var callErr *topology.ProviderCallError
	if !errors.As(err, &callErr) {
		t.Fatalf("WaitUntilReady() error = %T, want *topology.ProviderCallError", err)
	}
	if callErr.Code != "NatGatewayFailed" {
		t.Errorf("Code = %q, want NatGatewayFailed", callErr.Code)
	}
}

func TestWaitUntilReadyHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mock := &MockEC2Client{
		DescribeVpcsFunc: func(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
			cancel()
			return &ec2.DescribeVpcsOutput{
				Vpcs: []types.Vpc{{VpcId: awssdk.String("vpc-1"), State: types.VpcStatePending}},
			}, nil
		},
	}

	err := testGateway(mock).WaitUntilReady(ctx, topology.ResourceKindNetwork, "vpc-1", time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitUntilReady() error = %v, want context.Canceled", err)
	}
}
