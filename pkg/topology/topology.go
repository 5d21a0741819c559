// Package topology provisions a multi-tier virtual network: one VPC,
// public and private subnets across availability zones, an internet
// gateway, a single NAT gateway, and the route tables that wire the
// tiers together. The orchestrator walks a fixed dependency order,
// threading identifiers produced by earlier steps into later ones, and
// halts at the first failure without attempting any cleanup.
package topology

import (
	"net/netip"
	"strings"
	"time"
)

// State names the stages of the linear provisioning state machine. There
// are no transitions back to an earlier state; a failure in any state is
// absorbing.
type State string

const (
	StatePlanned            State = "planned"
	StateNetworkReady       State = "network-ready"
	StateSubnetsReady       State = "subnets-ready"
	StateGatewayAttached    State = "gateway-attached"
	StatePublicRoutingReady State = "public-routing-ready"
	StateNatReady           State = "nat-ready"
	StateComplete           State = "complete"
)

const (
	// DefaultNetworkWaitTimeout bounds the wait for the network to report
	// available after creation
	DefaultNetworkWaitTimeout = 5 * time.Minute

	// DefaultNATWaitTimeout bounds the wait for the NAT gateway to report
	// available. NAT gateways routinely take several minutes.
	DefaultNATWaitTimeout = 10 * time.Minute
)

// Config carries everything one orchestration run needs. It replaces the
// original tooling's process-wide environment constants so independent
// runs cannot share hidden state.
type Config struct {
	// BaseBlock is the network's address block, e.g. 10.0.0.0/16
	BaseBlock netip.Prefix

	// SubnetPrefixLen is the prefix length of every subnet carved out of
	// BaseBlock, e.g. 24
	SubnetPrefixLen int

	// Zones lists availability zones in the order subnets are assigned
	Zones []string

	// NamePrefix derives the Name tag of every created resource
	NamePrefix string

	// NetworkWaitTimeout and NATWaitTimeout override the readiness-wait
	// bounds; zero means the package default
	NetworkWaitTimeout time.Duration
	NATWaitTimeout     time.Duration
}

// Topology is the accumulated state of one orchestration run. It is owned
// by exactly one run, populated field by field as steps succeed, and
// never persisted. A field is read-only once written.
type Topology struct {
	NetworkID string

	// Subnet IDs in zone-list order
	PublicSubnetIDs  []string
	PrivateSubnetIDs []string

	InternetGatewayID string

	// AllocationID is the static address backing the NAT gateway
	AllocationID string
	NATGatewayID string

	PublicRouteTableID  string
	PrivateRouteTableID string
}

// zoneSuffix derives the short tag-name suffix from a zone identifier:
// the last dash-separated token, so "us-east-1a" becomes "1a". Matches
// the naming the original provisioner used.
func zoneSuffix(zone string) string {
	parts := strings.Split(zone, "-")
	return parts[len(parts)-1]
}
