package topology

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/diegogrr/vpcweaver/pkg/plan"
	"github.com/diegogrr/vpcweaver/pkg/status"
)

// Orchestrator drives one topology provisioning run through a
// ProviderGateway. It holds no per-run state; every Provision call builds
// its own Topology.
type Orchestrator struct {
	gw ProviderGateway
}

// NewOrchestrator returns an orchestrator backed by the given gateway
func NewOrchestrator(gw ProviderGateway) *Orchestrator {
	return &Orchestrator{gw: gw}
}

// step is one named unit of provisioning work. Steps are data: the run
// closure performs the provider calls and writes its results into the
// run's Topology, and reached is the machine state recorded when the
// step succeeds. Each closure reads only Topology fields written by
// earlier steps, which is what preserves the dependency order.
type step struct {
	name    string
	reached State
	run     func(ctx context.Context) error
}

// Provision creates the full topology described by cfg. On success the
// returned Topology has every field populated and the run passed through
// all seven phases in order. On failure the run stops at the first
// failing step and returns the partial Topology inside an
// *OrchestrationError; no compensating deletes are attempted.
func (o *Orchestrator) Provision(ctx context.Context, cfg Config) (*Topology, error) {
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "topology.Provision")
	defer span.End()

	span.SetAttributes(
		attribute.String("base_block", cfg.BaseBlock.String()),
		attribute.Int("subnet_prefix_len", cfg.SubnetPrefixLen),
		attribute.StringSlice("zones", cfg.Zones),
		attribute.String("name_prefix", cfg.NamePrefix),
	)

	networkWait := cfg.NetworkWaitTimeout
	if networkWait == 0 {
		networkWait = DefaultNetworkWaitTimeout
	}
	natWait := cfg.NATWaitTimeout
	if natWait == 0 {
		natWait = DefaultNATWaitTimeout
	}

	topo := &Topology{}

	// Phase 1: address planning. Runs before any provider call so a bad
	// configuration fails without touching the cloud account.
	assignment, err := plan.Plan(cfg.BaseBlock, cfg.Zones, cfg.SubnetPrefixLen)
	if err != nil {
		span.RecordError(err)
		return topo, &OrchestrationError{Step: "plan-address-space", State: StatePlanned, Topology: topo, Err: err}
	}
	state := StatePlanned

	status.Send(ctx, status.NewUpdate(status.LevelProgress, "Address plan computed").
		WithResource("address-plan").
		WithAction("planned").
		WithMetadata("zones", len(assignment.Zones)).
		WithMetadata("base_block", cfg.BaseBlock.String()))

	steps := []step{
		{
			name:    "create-network",
			reached: StateNetworkReady,
			run: func(ctx context.Context) error {
				status.Send(ctx, status.NewUpdate(status.LevelProgress, "Creating network").
					WithResource("network").
					WithAction("creating").
					WithMetadata("cidr", cfg.BaseBlock.String()))

				id, err := o.gw.CreateNetwork(ctx, cfg.BaseBlock)
				if err != nil {
					return fmt.Errorf("failed to create network: %w", err)
				}
				topo.NetworkID = id

				if err := o.gw.Tag(ctx, id, cfg.NamePrefix+"-vpc"); err != nil {
					return fmt.Errorf("failed to tag network %s: %w", id, err)
				}
				if err := o.gw.WaitUntilReady(ctx, ResourceKindNetwork, id, networkWait); err != nil {
					return fmt.Errorf("network %s did not become available: %w", id, err)
				}

				status.Send(ctx, status.NewUpdate(status.LevelSuccess, "Network available").
					WithResource("network").
					WithAction("created").
					WithMetadata("network_id", id))
				return nil
			},
		},
		{
			name:    "create-subnets",
			reached: StateSubnetsReady,
			run: func(ctx context.Context) error {
				// Zones in list order, public before private within each
				// zone. The order fixes the tag-name suffix sequence, which
				// is part of the observable contract.
				for _, zp := range assignment.Zones {
					suffix := zoneSuffix(zp.Zone)

					publicID, err := o.gw.CreateSubnet(ctx, topo.NetworkID, zp.Public, zp.Zone)
					if err != nil {
						return fmt.Errorf("failed to create public subnet in %s: %w", zp.Zone, err)
					}
					if err := o.gw.Tag(ctx, publicID, fmt.Sprintf("%s-public-%s", cfg.NamePrefix, suffix)); err != nil {
						return fmt.Errorf("failed to tag subnet %s: %w", publicID, err)
					}
					topo.PublicSubnetIDs = append(topo.PublicSubnetIDs, publicID)

					privateID, err := o.gw.CreateSubnet(ctx, topo.NetworkID, zp.Private, zp.Zone)
					if err != nil {
						return fmt.Errorf("failed to create private subnet in %s: %w", zp.Zone, err)
					}
					if err := o.gw.Tag(ctx, privateID, fmt.Sprintf("%s-private-%s", cfg.NamePrefix, suffix)); err != nil {
						return fmt.Errorf("failed to tag subnet %s: %w", privateID, err)
					}
					topo.PrivateSubnetIDs = append(topo.PrivateSubnetIDs, privateID)

					status.Send(ctx, status.NewUpdate(status.LevelSuccess, "Subnet pair created").
						WithResource("subnet").
						WithAction("created").
						WithMetadata("zone", zp.Zone).
						WithMetadata("public_subnet_id", publicID).
						WithMetadata("private_subnet_id", privateID))
				}
				return nil
			},
		},
		{
			name:    "attach-internet-gateway",
			reached: StateGatewayAttached,
			run: func(ctx context.Context) error {
				status.Send(ctx, status.NewUpdate(status.LevelProgress, "Creating internet gateway").
					WithResource("internet-gateway").
					WithAction("creating"))

				id, err := o.gw.CreateInternetGateway(ctx)
				if err != nil {
					return fmt.Errorf("failed to create internet gateway: %w", err)
				}
				if err := o.gw.Tag(ctx, id, cfg.NamePrefix+"-igw"); err != nil {
					return fmt.Errorf("failed to tag internet gateway %s: %w", id, err)
				}
				if err := o.gw.AttachInternetGateway(ctx, id, topo.NetworkID); err != nil {
					return fmt.Errorf("failed to attach internet gateway %s: %w", id, err)
				}
				topo.InternetGatewayID = id

				status.Send(ctx, status.NewUpdate(status.LevelSuccess, "Internet gateway attached").
					WithResource("internet-gateway").
					WithAction("attached").
					WithMetadata("gateway_id", id))
				return nil
			},
		},
		{
			name:    "configure-public-routing",
			reached: StatePublicRoutingReady,
			run: func(ctx context.Context) error {
				rtID, err := o.gw.CreateRouteTable(ctx, topo.NetworkID)
				if err != nil {
					return fmt.Errorf("failed to create public route table: %w", err)
				}
				if err := o.gw.Tag(ctx, rtID, cfg.NamePrefix+"-public-rt"); err != nil {
					return fmt.Errorf("failed to tag route table %s: %w", rtID, err)
				}
				if err := o.gw.AddDefaultRoute(ctx, rtID, InternetGatewayTarget(topo.InternetGatewayID)); err != nil {
					return fmt.Errorf("failed to add internet gateway route: %w", err)
				}
				for _, subnetID := range topo.PublicSubnetIDs {
					if err := o.gw.AssociateRouteTable(ctx, rtID, subnetID); err != nil {
						return fmt.Errorf("failed to associate public route table with subnet %s: %w", subnetID, err)
					}
				}
				topo.PublicRouteTableID = rtID

				status.Send(ctx, status.NewUpdate(status.LevelSuccess, "Public routing configured").
					WithResource("route-table").
					WithAction("associated").
					WithMetadata("route_table_id", rtID).
					WithMetadata("subnets", len(topo.PublicSubnetIDs)))
				return nil
			},
		},
		{
			name:    "create-nat-gateway",
			reached: StateNatReady,
			run: func(ctx context.Context) error {
				status.Send(ctx, status.NewUpdate(status.LevelProgress, "Creating NAT gateway").
					WithResource("nat-gateway").
					WithAction("creating"))

				allocID, err := o.gw.AllocateStaticAddress(ctx)
				if err != nil {
					return fmt.Errorf("failed to allocate static address: %w", err)
				}
				if err := o.gw.Tag(ctx, allocID, cfg.NamePrefix+"-eip"); err != nil {
					return fmt.Errorf("failed to tag static address %s: %w", allocID, err)
				}
				topo.AllocationID = allocID

				// The single NAT gateway lives in the first public subnet
				// created. One per topology, not one per zone.
				natID, err := o.gw.CreateNatGateway(ctx, topo.PublicSubnetIDs[0], allocID)
				if err != nil {
					return fmt.Errorf("failed to create NAT gateway: %w", err)
				}
				if err := o.gw.Tag(ctx, natID, cfg.NamePrefix+"-nat"); err != nil {
					return fmt.Errorf("failed to tag NAT gateway %s: %w", natID, err)
				}
				if err := o.gw.WaitUntilReady(ctx, ResourceKindNATGateway, natID, natWait); err != nil {
					return fmt.Errorf("NAT gateway %s did not become available: %w", natID, err)
				}
				topo.NATGatewayID = natID

				status.Send(ctx, status.NewUpdate(status.LevelSuccess, "NAT gateway available").
					WithResource("nat-gateway").
					WithAction("created").
					WithMetadata("nat_gateway_id", natID))
				return nil
			},
		},
		{
			name:    "configure-private-routing",
			reached: StateComplete,
			run: func(ctx context.Context) error {
				rtID, err := o.gw.CreateRouteTable(ctx, topo.NetworkID)
				if err != nil {
					return fmt.Errorf("failed to create private route table: %w", err)
				}
				if err := o.gw.Tag(ctx, rtID, cfg.NamePrefix+"-private-rt"); err != nil {
					return fmt.Errorf("failed to tag route table %s: %w", rtID, err)
				}
				if err := o.gw.AddDefaultRoute(ctx, rtID, NATGatewayTarget(topo.NATGatewayID)); err != nil {
					return fmt.Errorf("failed to add NAT gateway route: %w", err)
				}
				for _, subnetID := range topo.PrivateSubnetIDs {
					if err := o.gw.AssociateRouteTable(ctx, rtID, subnetID); err != nil {
						return fmt.Errorf("failed to associate private route table with subnet %s: %w", subnetID, err)
					}
				}
				topo.PrivateRouteTableID = rtID

				status.Send(ctx, status.NewUpdate(status.LevelSuccess, "Private routing configured").
					WithResource("route-table").
					WithAction("associated").
					WithMetadata("route_table_id", rtID).
					WithMetadata("subnets", len(topo.PrivateSubnetIDs)))
				return nil
			},
		},
	}

	start := time.Now()
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			span.RecordError(err)
			span.SetAttributes(
				attribute.String("failed_step", s.name),
				attribute.String("state", string(state)),
			)
			status.Send(ctx, status.NewUpdate(status.LevelError, "Provisioning halted").
				WithResource("topology").
				WithAction("failed").
				WithMetadata("step", s.name).
				WithMetadata("state", string(state)))
			return topo, &OrchestrationError{Step: s.name, State: state, Topology: topo, Err: err}
		}
		state = s.reached
	}

	span.SetAttributes(
		attribute.String("network_id", topo.NetworkID),
		attribute.Int("public_subnets", len(topo.PublicSubnetIDs)),
		attribute.Int("private_subnets", len(topo.PrivateSubnetIDs)),
	)

	status.Send(ctx, status.NewUpdate(status.LevelSuccess, "Topology provisioned").
		WithResource("topology").
		WithAction("created").
		WithMetadata("network_id", topo.NetworkID).
		WithMetadata("elapsed", time.Since(start).Round(time.Second).String()))

	return topo, nil
}
