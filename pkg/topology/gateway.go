package topology

import (
	"context"
	"net/netip"
	"time"
)

// ResourceKind identifies the kind of provider resource a readiness wait
// or call error refers to
type ResourceKind string

const (
	ResourceKindNetwork         ResourceKind = "network"
	ResourceKindSubnet          ResourceKind = "subnet"
	ResourceKindInternetGateway ResourceKind = "internet-gateway"
	ResourceKindNATGateway      ResourceKind = "nat-gateway"
	ResourceKindRouteTable      ResourceKind = "route-table"
	ResourceKindStaticAddress   ResourceKind = "static-address"
	ResourceKindStack           ResourceKind = "stack"
)

// RouteTargetKind discriminates the two possible default-route targets
type RouteTargetKind string

const (
	RouteTargetInternetGateway RouteTargetKind = "internet-gateway"
	RouteTargetNATGateway      RouteTargetKind = "nat-gateway"
)

// RouteTarget is the destination of a default (0.0.0.0/0) route: either
// an internet gateway or a NAT gateway, identified by its resource ID
type RouteTarget struct {
	Kind RouteTargetKind
	ID   string
}

// InternetGatewayTarget builds a default-route target pointing at an
// internet gateway
func InternetGatewayTarget(id string) RouteTarget {
	return RouteTarget{Kind: RouteTargetInternetGateway, ID: id}
}

// NATGatewayTarget builds a default-route target pointing at a NAT gateway
func NATGatewayTarget(id string) RouteTarget {
	return RouteTarget{Kind: RouteTargetNATGateway, ID: id}
}

// ProviderGateway is the seam between the orchestrator and the cloud
// provider. Every method is a single blocking attempt that either returns
// the created resource's identifier or a terminal error; transient-error
// retry policy (throttling backoff) is the implementation's own concern.
// The orchestrator never inspects provider wire types, only identifiers.
type ProviderGateway interface {
	// CreateNetwork creates the isolated network for the given address block
	CreateNetwork(ctx context.Context, block netip.Prefix) (string, error)

	// CreateSubnet creates a subnet with the given block inside the network,
	// bound to the given availability zone
	CreateSubnet(ctx context.Context, networkID string, block netip.Prefix, zone string) (string, error)

	// CreateInternetGateway creates a detached internet gateway
	CreateInternetGateway(ctx context.Context) (string, error)

	// AttachInternetGateway attaches an internet gateway to a network
	AttachInternetGateway(ctx context.Context, gatewayID, networkID string) error

	// AllocateStaticAddress allocates a static public address and returns
	// its allocation ID
	AllocateStaticAddress(ctx context.Context) (string, error)

	// CreateNatGateway creates a NAT gateway in the given subnet using a
	// previously allocated static address
	CreateNatGateway(ctx context.Context, subnetID, allocationID string) (string, error)

	// CreateRouteTable creates an empty route table in the network
	CreateRouteTable(ctx context.Context, networkID string) (string, error)

	// AddDefaultRoute installs the catch-all route on a route table
	AddDefaultRoute(ctx context.Context, routeTableID string, target RouteTarget) error

	// AssociateRouteTable associates a route table with a subnet
	AssociateRouteTable(ctx context.Context, routeTableID, subnetID string) error

	// Tag assigns the Name tag on any resource
	Tag(ctx context.Context, resourceID, name string) error

	// WaitUntilReady blocks until the resource reaches its usable state,
	// polling at a bounded interval. A *ReadinessTimeoutError is returned
	// if the resource is not ready when the timeout elapses.
	WaitUntilReady(ctx context.Context, kind ResourceKind, resourceID string, timeout time.Duration) error
}
