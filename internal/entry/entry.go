// Package entry implements the Entry API: parsing route/address/DNS
// descriptors out of a protocol handler's attribute blob and inserting
// them into the owning IP settings.
package entry

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/netifd-go/netifd/internal/ipaddr"
	"github.com/netifd-go/netifd/internal/ipmodel"
)

// RouteAttrs is the typed attribute blob §4.7 parses route descriptors
// from. The out-of-scope config loader/RPC surface hands in whatever
// shape it likes; this is the one this core actually consumes.
type RouteAttrs struct {
	Interface string
	Target    string
	Netmask   string
	Gateway   string
	Metric    uint32
	MTU       uint32
}

// AddRoute implements §4.7's add_route: parses attr and inserts the
// resulting DeviceRoute into iface's proto_ip, or — if iface is nil — into
// the config_ip of the interface named by attr.Interface. The caller is
// expected to be inside an open update epoch (UpdateStart already called).
func AddRoute(reg *ipmodel.Registry, iface *ipmodel.Interface, attr RouteAttrs, v6 bool) error {
	hostMask := 32
	if v6 {
		hostMask = 128
	}

	target, err := parseAddr(attr.Target, v6)
	if err != nil {
		return fmt.Errorf("parsing target %q: %w", attr.Target, err)
	}

	mask := hostMask
	if attr.Netmask != "" {
		mask, err = parseMask(attr.Netmask, v6)
		if err != nil {
			return fmt.Errorf("parsing netmask %q: %w", attr.Netmask, err)
		}
	}
	if mask > hostMask {
		return fmt.Errorf("mask %d exceeds family limit %d", mask, hostMask)
	}

	route := ipmodel.DeviceRoute{
		Flags: familyFlag(v6),
		Mask:  mask,
		Addr:  target,
		MTU:   int(attr.MTU),
	}

	if attr.Gateway != "" {
		gw, err := parseAddr(attr.Gateway, v6)
		if err != nil {
			return fmt.Errorf("parsing gateway %q: %w", attr.Gateway, err)
		}
		route.NextHop = gw
	}

	if attr.Metric != 0 {
		route.Metric = int(attr.Metric)
		route.Flags |= ipmodel.FlagMetric
	}

	var dst *ipmodel.IPSettings
	if iface == nil {
		if attr.Interface == "" {
			return fmt.Errorf("add_route: no interface specified")
		}
		resolved, ok := reg.Get(attr.Interface)
		if !ok {
			return fmt.Errorf("add_route: unknown interface %q", attr.Interface)
		}
		dst = resolved.ConfigIP
	} else {
		dst = iface.ProtoIP
	}
	dst.Route.Add(route)
	return nil
}

// AddDNSServer implements §4.7's add_dns_server: try IPv4, then IPv6;
// reject silently on failure.
func AddDNSServer(s *ipmodel.IPSettings, value string) {
	if _, err := parseAddr(value, false); err == nil {
		s.DNSServers.Add(value)
		return
	}
	if _, err := parseAddr(value, true); err == nil {
		s.DNSServers.Add(value)
	}
}

// AddDNSSearch implements §4.7's add_dns_search: insert verbatim.
func AddDNSSearch(s *ipmodel.IPSettings, domain string) {
	s.DNSSearch.Add(domain)
}

func familyFlag(v6 bool) ipmodel.Flag {
	if v6 {
		return ipmodel.FlagInet6
	}
	return ipmodel.FlagInet4
}

func parseAddr(s string, v6 bool) (ipaddr.Addr, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return ipaddr.Addr{}, fmt.Errorf("invalid address %q", s)
	}
	a, ok := ipaddr.FromNetIP(ip, v6)
	if !ok {
		return ipaddr.Addr{}, fmt.Errorf("address %q is not a valid IPv%d literal", s, familyNum(v6))
	}
	return a, nil
}

func familyNum(v6 bool) int {
	if v6 {
		return 6
	}
	return 4
}

// parseMask accepts either a decimal prefix length or, for IPv4 only, a
// dotted mask like "255.255.255.0".
func parseMask(s string, v6 bool) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if v6 {
		return 0, fmt.Errorf("dotted masks are IPv4-only")
	}
	if !strings.Contains(s, ".") {
		return 0, fmt.Errorf("invalid netmask %q", s)
	}
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return 0, fmt.Errorf("invalid netmask %q", s)
	}
	ones, _ := net.IPMask(ip).Size()
	return ones, nil
}
