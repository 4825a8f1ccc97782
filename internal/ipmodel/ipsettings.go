package ipmodel

import "github.com/netifd-go/netifd/internal/vset"

// KernelOps is the Kernel Executor's surface as seen by IPSettings. It is
// defined here, not in the kernel package, so that ipmodel stays free of any
// netlink/ioctl dependency; internal/kernel provides the real implementation
// and tests supply a fake.
type KernelOps interface {
	AddAddr(ifname string, a DeviceAddr) error
	DelAddr(ifname string, a DeviceAddr) error
	AddRoute(ifname string, r DeviceRoute) error
	DelRoute(ifname string, r DeviceRoute) error
}

// IPSettings is one of the two symmetric address/route/DNS bundles an
// Interface carries — proto_ip (populated by the active protocol handler)
// or config_ip (static user configuration).
type IPSettings struct {
	IfName string
	Kernel KernelOps

	Enabled        bool
	NoDefaultRoute bool
	NoDNS          bool

	// Metric is inherited by routes whose METRIC flag is unset.
	Metric int

	Addr  *vset.Set[DeviceAddrKey, DeviceAddr]
	Route *vset.Set[DeviceRouteKey, DeviceRoute]

	DNSServers *vset.SimpleList[string]
	DNSSearch  *vset.SimpleList[string]

	// manageDNS is false for config_ip, whose DNS lists are static and
	// never rebuilt through the epoch protocol.
	manageDNS bool
}

// NewIPSettings creates an IPSettings bundle. manageDNS distinguishes
// proto_ip (true) from config_ip (false, per the design notes' "config_ip
// does not manage DNS through epoched updates").
func NewIPSettings(ifname string, kernel KernelOps, manageDNS bool) *IPSettings {
	s := &IPSettings{
		IfName:    ifname,
		Kernel:    kernel,
		manageDNS: manageDNS,
	}
	s.Addr = vset.New[DeviceAddrKey, DeviceAddr](LessAddrKey, s.addrDelta)
	s.Route = vset.New[DeviceRouteKey, DeviceRoute](LessRouteKey, s.routeDelta)
	// Both layers carry DNS lists — config_ip's are just never rebuilt
	// through the epoch protocol (manageDNS gates UpdateStart/Complete
	// participation only, not existence).
	s.DNSServers = vset.NewSimpleList[string]()
	s.DNSSearch = vset.NewSimpleList[string]()
	return s
}

// UpdateStart opens epochs on addr and route, and on the DNS lists for
// proto_ip.
func (s *IPSettings) UpdateStart() {
	s.Addr.Update()
	s.Route.Update()
	if s.manageDNS {
		s.DNSServers.Update()
		s.DNSSearch.Update()
	}
}

// UpdateComplete closes the epochs, triggering the address and route delta
// callbacks.
func (s *IPSettings) UpdateComplete() {
	s.Addr.Flush()
	s.Route.Flush()
	if s.manageDNS {
		s.DNSServers.Flush()
		s.DNSSearch.Flush()
	}
}

func addrKeep(n, o *DeviceAddr) bool {
	if n == nil || o == nil {
		return false
	}
	if n.Flags != o.Flags {
		return false
	}
	if n.Flags.IsV4() && n.Broadcast != o.Broadcast {
		return false
	}
	return true
}

// addrDelta implements the address delta callback of §4.2.
func (s *IPSettings) addrDelta(n, o *DeviceAddr) {
	if n != nil && n.Flags.IsV4() && n.Broadcast == 0 {
		n.Broadcast = DeriveBroadcast(n.Addr, n.Mask)
	}

	keep := addrKeep(n, o)

	if o != nil && !keep && o.Enabled && o.Flags&FlagExternal == 0 {
		s.delSubnetRoute(*o)
		_ = s.Kernel.DelAddr(s.IfName, *o)
	}

	if n != nil {
		n.Enabled = true
		if n.Flags&FlagExternal == 0 && !keep {
			_ = s.Kernel.AddAddr(s.IfName, *n)
			if s.Metric != 0 {
				s.addSubnetRoute(*n)
			}
		}
	}
}

// delSubnetRoute and addSubnetRoute handle an address's subnet route.
// addSubnetRoute implements the "del then add" sequencing: it deletes the
// KERNEL-flagged (kernel-installed) version, then installs the route
// without the KERNEL flag. delSubnetRoute only deletes.
//
// delSubnetRoute always deletes with Metric 0, matching
// interface_handle_subnet_route(iface, addr, false) in interface-ip.c: the
// delete-on-remove path never carries iface->metric either, even though
// addSubnetRoute installs with a non-zero metric when one is configured.
// Upstream relies on this route usually being the kernel's own auto-added
// subnet route (metric 0); a custom metric can leave it behind on removal.
// Preserved as-is rather than "fixed" to keep removal unconditional on
// s.Metric, matching the call unconditionally made for a_old above.
func (s *IPSettings) delSubnetRoute(a DeviceAddr) {
	r := subnetRouteFor(a, s.Metric)
	_ = s.Kernel.DelRoute(s.IfName, r)
}

func (s *IPSettings) addSubnetRoute(a DeviceAddr) {
	r := subnetRouteFor(a, s.Metric)
	// Delete first to clear a pre-existing kernel-installed version, then
	// add without the KERNEL flag carrying the interface's metric.
	del := r
	del.Flags |= FlagKernel
	_ = s.Kernel.DelRoute(s.IfName, del)

	r.Metric = s.Metric
	_ = s.Kernel.AddRoute(s.IfName, r)
}

func subnetRouteFor(a DeviceAddr, _ int) DeviceRoute {
	return DeviceRoute{
		Flags: a.Flags &^ FlagExternal,
		Mask:  a.Mask,
		Addr:  a.Addr.Cleared(a.Mask),
	}
}

func routeKeep(n, o *DeviceRoute) bool {
	if n == nil || o == nil {
		return false
	}
	return n.NextHop == o.NextHop
}

// routeDelta implements the route delta callback of §4.2.
func (s *IPSettings) routeDelta(n, o *DeviceRoute) {
	keep := routeKeep(n, o)

	if o != nil && !keep && o.Enabled && o.Flags&FlagExternal == 0 {
		_ = s.Kernel.DelRoute(s.IfName, *o)
	}

	if n != nil {
		if n.Flags&FlagMetric == 0 {
			n.Metric = s.Metric
		}
		effective := s.Enabled && !(s.NoDefaultRoute && n.Mask == 0)
		if n.Flags&FlagExternal == 0 && !keep && effective {
			_ = s.Kernel.AddRoute(s.IfName, *n)
		}
		n.Enabled = effective
	}
}

// SetEnabled toggles every address and route's kernel presence to match a
// new enabled state, without altering the VSets' contents.
func (s *IPSettings) SetEnabled(enabled bool) {
	s.Enabled = enabled

	s.Addr.ForEach(func(a *DeviceAddr) {
		if a.Flags&FlagExternal != 0 {
			return
		}
		if enabled == a.Enabled {
			return
		}
		if enabled {
			_ = s.Kernel.AddAddr(s.IfName, *a)
		} else {
			_ = s.Kernel.DelAddr(s.IfName, *a)
		}
		a.Enabled = enabled
	})

	s.Route.ForEach(func(r *DeviceRoute) {
		if r.Flags&FlagExternal != 0 {
			return
		}
		effective := enabled && !(s.NoDefaultRoute && r.Mask == 0)
		if effective == r.Enabled {
			return
		}
		if effective {
			if r.Flags&FlagMetric == 0 {
				r.Metric = s.Metric
			}
			_ = s.Kernel.AddRoute(s.IfName, *r)
		} else {
			_ = s.Kernel.DelRoute(s.IfName, *r)
		}
		r.Enabled = effective
	})
}

// Flush tears the bundle down: DNS lists and both VSets are emptied via
// flush_all, synthesizing a removal for every remaining entry.
func (s *IPSettings) Flush() {
	s.DNSServers.FlushAll()
	s.DNSSearch.FlushAll()
	s.Route.FlushAll()
	s.Addr.FlushAll()
}

// NewHostRoutes builds the host_routes VSet the resolver feeds. Its
// callback is unconditional: unlike proto_ip's route callback, any removal
// deletes from the kernel and any addition installs, with no keep/enabled
// gating — the resolver only ever inserts routes it wants live.
func NewHostRoutes(ifname string, kernel KernelOps) *vset.Set[DeviceRouteKey, DeviceRoute] {
	return vset.New[DeviceRouteKey, DeviceRoute](LessRouteKey, func(n, o *DeviceRoute) {
		if o != nil {
			_ = kernel.DelRoute(ifname, *o)
		}
		if n != nil {
			_ = kernel.AddRoute(ifname, *n)
		}
	})
}
