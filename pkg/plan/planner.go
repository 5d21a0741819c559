// Package plan subdivides a VPC CIDR block into per-zone public and
// private subnet blocks. The planner is a pure function: the same base
// block, zone list, and subnet prefix length always produce the same
// assignment, which is what makes the topology orchestrator testable
// without a live AWS account.
package plan

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"
)

// ZonePlan holds the subnet blocks assigned to one availability zone
type ZonePlan struct {
	Zone    string
	Public  netip.Prefix
	Private netip.Prefix
}

// Assignment is the full deterministic mapping of (zone, tier) pairs to
// disjoint sub-blocks of the base block
type Assignment struct {
	Base  netip.Prefix
	Zones []ZonePlan
}

// Blocks returns every assigned subnet block in allocation order
// (public then private, per zone, zones in list order)
func (a Assignment) Blocks() []netip.Prefix {
	blocks := make([]netip.Prefix, 0, 2*len(a.Zones))
	for _, z := range a.Zones {
		blocks = append(blocks, z.Public, z.Private)
	}
	return blocks
}

// Plan enumerates the /subnetPrefixLen sub-blocks of base in ascending
// address order and assigns them to zones two at a time: the first of
// each pair becomes the zone's public subnet, the second its private
// subnet. Blank zone entries are discarded first.
//
// Errors are always *PlanningError: KindInvalidZoneList when no usable
// zones remain, KindInvalidPrefix when subnetPrefixLen is not strictly
// finer than the base prefix or is out of range for IPv4, and
// KindAddressSpaceExhausted when base cannot supply 2*len(zones) blocks.
func Plan(base netip.Prefix, zones []string, subnetPrefixLen int) (Assignment, error) {
	cleaned := make([]string, 0, len(zones))
	for _, z := range zones {
		if s := strings.TrimSpace(z); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return Assignment{}, &PlanningError{
			Kind:   KindInvalidZoneList,
			Detail: "availability zone list is empty",
		}
	}

	if !base.IsValid() || !base.Addr().Is4() {
		return Assignment{}, &PlanningError{
			Kind:   KindInvalidPrefix,
			Detail: fmt.Sprintf("base block %s is not a valid IPv4 prefix", base),
		}
	}
	if subnetPrefixLen <= base.Bits() || subnetPrefixLen > 32 {
		return Assignment{}, &PlanningError{
			Kind: KindInvalidPrefix,
			Detail: fmt.Sprintf("subnet prefix length /%d must be finer than base /%d and at most /32",
				subnetPrefixLen, base.Bits()),
		}
	}

	// Number of /subnetPrefixLen blocks inside base. The prefix-length
	// guards above bound the shift to at most 31.
	available := 1 << (subnetPrefixLen - base.Bits())
	needed := 2 * len(cleaned)
	if available < needed {
		return Assignment{}, &PlanningError{
			Kind: KindAddressSpaceExhausted,
			Detail: fmt.Sprintf("%s holds %d /%d blocks but %d zones need %d",
				base, available, subnetPrefixLen, len(cleaned), needed),
		}
	}

	start := binary.BigEndian.Uint32(base.Masked().Addr().AsSlice())
	stride := uint32(1) << (32 - subnetPrefixLen)

	assignment := Assignment{Base: base, Zones: make([]ZonePlan, 0, len(cleaned))}
	for i, zone := range cleaned {
		assignment.Zones = append(assignment.Zones, ZonePlan{
			Zone:    zone,
			Public:  nthBlock(start, stride, 2*i, subnetPrefixLen),
			Private: nthBlock(start, stride, 2*i+1, subnetPrefixLen),
		})
	}
	return assignment, nil
}

func nthBlock(start, stride uint32, n, bits int) netip.Prefix {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], start+uint32(n)*stride)
	return netip.PrefixFrom(netip.AddrFrom4(b), bits)
}
