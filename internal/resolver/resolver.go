// Package resolver implements the host-route resolver: given a destination
// address, it finds the interface that should own a route to it, either
// because the destination is on-link or because some route among the
// registered interfaces covers it.
package resolver

import (
	"github.com/netifd-go/netifd/internal/ipaddr"
	"github.com/netifd-go/netifd/internal/ipmodel"
)

// Resolve implements §4.3's algorithm. It does not itself insert anything
// into an interface's host_routes VSet — the caller does that, matching
// the "allocate, then transfer ownership" split in the data model's
// ownership notes.
func Resolve(reg *ipmodel.Registry, dst ipaddr.Addr, v6 bool) (*ipmodel.Interface, *ipmodel.DeviceRoute) {
	hostMask := 32
	if v6 {
		hostMask = 128
	}
	host := &ipmodel.DeviceRoute{
		Flags: familyFlag(v6),
		Mask:  hostMask,
		Addr:  dst,
	}

	var onLink *ipmodel.Interface
	var bestIface *ipmodel.Interface
	var bestRoute *ipmodel.DeviceRoute
	bestMask := -1

	reg.ForEach(func(iface *ipmodel.Interface) {
		if onLink != nil {
			return
		}
		if addrOnLink(iface.ConfigIP, dst) || addrOnLink(iface.ProtoIP, dst) {
			onLink = iface
			return
		}

		checkRoutes := func(s *ipmodel.IPSettings) {
			s.Route.ForEach(func(r *ipmodel.DeviceRoute) {
				if !r.Enabled {
					return
				}
				if !ipaddr.Match(r.Addr, dst, r.Mask) {
					return
				}
				// Preserve the source's inverted tie-break: a strictly
				// smaller mask replaces the current best, not a larger
				// one. This is intentional, not a bug — see the design
				// notes' flagged open question.
				if bestMask == -1 || r.Mask < bestMask {
					bestMask = r.Mask
					rCopy := *r
					bestRoute = &rCopy
					bestIface = iface
				}
			})
		}
		checkRoutes(iface.ConfigIP)
		checkRoutes(iface.ProtoIP)
	})

	if onLink != nil {
		return onLink, host
	}
	if bestRoute != nil {
		host.NextHop = bestRoute.NextHop
		host.MTU = bestRoute.MTU
		host.Metric = bestRoute.Metric
		return bestIface, host
	}
	return nil, nil
}

// Install resolves dst and, on a hit, transfers ownership of the new host
// route into the chosen interface's host_routes VSet, which installs it to
// the kernel unconditionally (no keep/enabled gating, per §4.3).
func Install(reg *ipmodel.Registry, dst ipaddr.Addr, v6 bool) *ipmodel.Interface {
	iface, route := Resolve(reg, dst, v6)
	if iface == nil {
		return nil
	}
	iface.HostRoutes.Update()
	iface.HostRoutes.Add(*route)
	iface.HostRoutes.Flush()
	return iface
}

func addrOnLink(s *ipmodel.IPSettings, dst ipaddr.Addr) bool {
	found := false
	s.Addr.ForEach(func(a *ipmodel.DeviceAddr) {
		if found || !a.Enabled {
			return
		}
		if ipaddr.Match(a.Addr, dst, a.Mask) {
			found = true
		}
	})
	return found
}

func familyFlag(v6 bool) ipmodel.Flag {
	if v6 {
		return ipmodel.FlagInet6
	}
	return ipmodel.FlagInet4
}
