package ipmodel

import "github.com/netifd-go/netifd/internal/ipaddr"

// DeviceRoute is a route owned by an IPSettings' route VSet, covering both
// user-configured routes and the implicit subnet/host routes derived from
// addresses.
type DeviceRoute struct {
	Flags   Flag
	Mask    int
	Addr    ipaddr.Addr // destination network
	NextHop ipaddr.Addr
	MTU     int
	Metric  int

	// SourceAddr is the preferred source address for this route, set for
	// the implicit subnet route derived from an address.
	SourceAddr ipaddr.Addr

	Enabled bool
}

// DeviceRouteKey is the comparator key for DeviceRoute: every field from
// Flags through Metric, excluding SourceAddr and the runtime-only Enabled
// bit. A route without the METRIC flag is keyed on the Metric it was added
// with; the metric it inherits from the interface in the delta callback
// does not change its key.
type DeviceRouteKey struct {
	Flags   Flag
	Mask    int
	Addr    ipaddr.Addr
	NextHop ipaddr.Addr
	MTU     int
	Metric  int
}

// Key implements vset.Entry.
func (r DeviceRoute) Key() DeviceRouteKey {
	return DeviceRouteKey{r.Flags, r.Mask, r.Addr, r.NextHop, r.MTU, r.Metric}
}

// LessRouteKey orders DeviceRouteKey values for deterministic VSet
// iteration.
func LessRouteKey(a, b DeviceRouteKey) bool {
	if a.Flags != b.Flags {
		return a.Flags < b.Flags
	}
	if a.Mask != b.Mask {
		return a.Mask < b.Mask
	}
	if a.Addr != b.Addr {
		return addrLess(a.Addr, b.Addr)
	}
	if a.NextHop != b.NextHop {
		return addrLess(a.NextHop, b.NextHop)
	}
	if a.MTU != b.MTU {
		return a.MTU < b.MTU
	}
	return a.Metric < b.Metric
}

// NewSubnetRoute builds the implicit on-link route an address carries with
// it: destination is addr masked to its own prefix, no next hop.
func NewSubnetRoute(addr ipaddr.Addr, mask int, v6 bool) DeviceRoute {
	f := familyFlag(v6)
	return DeviceRoute{
		Flags:      f,
		Mask:       mask,
		Addr:       addr.Cleared(mask),
		SourceAddr: addr,
	}
}
