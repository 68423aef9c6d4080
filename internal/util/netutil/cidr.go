package netutil

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
)

// ErrNoFreeSubnet is returned when every subnet of the requested size is taken.
var ErrNoFreeSubnet = errors.New("no free subnet left in network")

// CIDRSubnet calculates a subnet address given a network address, a netmask
// size increase, and a subnet number, like Terraform's cidrsubnet.
//
// Only IPv4 addresses are supported.
func CIDRSubnet(prefix string, newbits int, netnum int) (string, error) {
	network, err := parseIPv4Net(prefix)
	if err != nil {
		return "", err
	}

	maskSize, totalBits := network.Mask.Size()
	newMaskSize := maskSize + newbits
	if newbits < 0 || newMaskSize > totalBits {
		return "", fmt.Errorf("prefix extension of %d bits is invalid for %s", newbits, prefix)
	}

	maxSubnets := 1 << newbits
	if netnum < 0 || netnum >= maxSubnets {
		return "", fmt.Errorf("subnet number %d exceeds max subnets %d", netnum, maxSubnets)
	}

	subnetSize := uint32(1) << (totalBits - newMaskSize)
	// #nosec G115
	ipInt := binary.BigEndian.Uint32(network.IP.To4()) + uint32(netnum)*subnetSize

	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, ipInt)
	return fmt.Sprintf("%s/%d", ip.String(), newMaskSize), nil
}

// NextFreeSubnet returns the lowest subnet of prefix extended by newbits
// that does not overlap any CIDR in used.
func NextFreeSubnet(prefix string, newbits int, used []string) (string, error) {
	taken := make([]*net.IPNet, 0, len(used))
	for _, u := range used {
		n, err := parseIPv4Net(u)
		if err != nil {
			return "", err
		}
		taken = append(taken, n)
	}

	for netnum := 0; netnum < 1<<newbits; netnum++ {
		candidate, err := CIDRSubnet(prefix, newbits, netnum)
		if err != nil {
			return "", err
		}
		c, _ := parseIPv4Net(candidate)
		if !overlapsAny(c, taken) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s /+%d", ErrNoFreeSubnet, prefix, newbits)
}

func overlapsAny(n *net.IPNet, others []*net.IPNet) bool {
	for _, o := range others {
		if n.Contains(o.IP) || o.Contains(n.IP) {
			return true
		}
	}
	return false
}

func parseIPv4Net(cidr string) (*net.IPNet, error) {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	if network.IP.To4() == nil {
		return nil, fmt.Errorf("only IPv4 addresses are supported, got %s", cidr)
	}
	return network, nil
}
