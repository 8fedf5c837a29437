package stack

import (
	"fmt"
	"net/netip"
)

// parsePrefix parses a CIDR block and normalizes it to its masked form.
func parsePrefix(cidr string) (netip.Prefix, error) {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	return p.Masked(), nil
}

// contains reports whether inner lies entirely within outer.
func contains(outer, inner netip.Prefix) bool {
	return inner.Bits() >= outer.Bits() && outer.Contains(inner.Addr())
}

// checkPartition verifies that the subnet blocks are mutually
// non-overlapping and all contained in the network block.
func checkPartition(networkCIDR string, subnetCIDRs []string) error {
	block, err := parsePrefix(networkCIDR)
	if err != nil {
		return fmt.Errorf("network: %w", err)
	}

	prefixes := make([]netip.Prefix, len(subnetCIDRs))
	for i, c := range subnetCIDRs {
		p, err := parsePrefix(c)
		if err != nil {
			return fmt.Errorf("subnet %d: %w", i, err)
		}
		if !contains(block, p) {
			return fmt.Errorf("subnet %s is not contained in network block %s", c, networkCIDR)
		}
		prefixes[i] = p
	}

	for i := range prefixes {
		for j := i + 1; j < len(prefixes); j++ {
			if prefixes[i].Overlaps(prefixes[j]) {
				return fmt.Errorf("subnets %s and %s overlap", subnetCIDRs[i], subnetCIDRs[j])
			}
		}
	}

	return nil
}
