package ipmodel

import (
	"encoding/binary"

	"github.com/netifd-go/netifd/internal/ipaddr"
)

// DeviceAddr is an address owned by an IPSettings' addr VSet.
type DeviceAddr struct {
	Flags        Flag
	Mask         int // 0..32 for IPv4, 0..128 for IPv6
	Addr         ipaddr.Addr
	Broadcast    uint32 // IPv4 only, network byte order
	PointToPoint uint32 // IPv4 only, network byte order

	Enabled bool
}

// DeviceAddrKey is the comparator key for DeviceAddr: every field except
// the runtime-only Enabled bit, compared bytewise from Flags onward.
type DeviceAddrKey struct {
	Flags        Flag
	Mask         int
	Addr         ipaddr.Addr
	Broadcast    uint32
	PointToPoint uint32
}

// Key implements vset.Entry.
func (a DeviceAddr) Key() DeviceAddrKey {
	return DeviceAddrKey{a.Flags, a.Mask, a.Addr, a.Broadcast, a.PointToPoint}
}

// NewIPv4Addr builds an IPv4 DeviceAddr.
func NewIPv4Addr(addr ipaddr.Addr, mask int, external bool) DeviceAddr {
	f := FlagInet4
	if external {
		f |= FlagExternal
	}
	return DeviceAddr{Flags: f, Mask: mask, Addr: addr}
}

// NewIPv6Addr builds an IPv6 DeviceAddr.
func NewIPv6Addr(addr ipaddr.Addr, mask int, external bool) DeviceAddr {
	f := FlagInet6
	if external {
		f |= FlagExternal
	}
	return DeviceAddr{Flags: f, Mask: mask, Addr: addr}
}

// LessAddrKey orders DeviceAddrKey values for deterministic VSet iteration.
func LessAddrKey(a, b DeviceAddrKey) bool {
	if a.Flags != b.Flags {
		return a.Flags < b.Flags
	}
	if a.Mask != b.Mask {
		return a.Mask < b.Mask
	}
	if a.Addr != b.Addr {
		return addrLess(a.Addr, b.Addr)
	}
	if a.Broadcast != b.Broadcast {
		return a.Broadcast < b.Broadcast
	}
	return a.PointToPoint < b.PointToPoint
}

func addrLess(a, b ipaddr.Addr) bool {
	ab, bb := a.IP(), b.IP()
	for i := range ab {
		if ab[i] != bb[i] {
			return ab[i] < bb[i]
		}
	}
	return false
}

// DeriveBroadcast computes the network-order IPv4 broadcast address for an
// address/mask pair: addr | (0xFFFFFFFF >> mask).
func DeriveBroadcast(addr ipaddr.Addr, mask int) uint32 {
	ip4 := addr.IP().To4()
	if ip4 == nil {
		return 0
	}
	hostMask := uint32(0xFFFFFFFF)
	if mask > 0 {
		hostMask >>= uint(mask)
	} else {
		hostMask = 0xFFFFFFFF
	}
	addrBits := binary.BigEndian.Uint32(ip4)
	return addrBits | hostMask
}
