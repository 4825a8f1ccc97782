// Package kernel implements the Kernel Executor: the component that
// translates ipmodel deltas into rtnetlink and ioctl operations against the
// live kernel, and clears stale kernel state when an interface is claimed.
package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"go.opentelemetry.io/otel/trace"

	"github.com/netifd-go/netifd/internal/ipmodel"
)

const (
	unixRTTableMain  = unix.RT_TABLE_MAIN
	unixRTProtKernel = netlink.RouteProtocol(unix.RTPROT_KERNEL)
	unixRTProtBoot   = netlink.RouteProtocol(unix.RTPROT_BOOT)
)

// Executor drives the kernel over rtnetlink (via vishvananda/netlink) for
// address/route/link operations, and over raw ioctls (ioctl_linux.go) for
// the legacy bridge/VLAN/tunnel opcodes rtnetlink has no equivalent for.
// It implements ipmodel.KernelOps.
type Executor struct {
	logger *slog.Logger
	tracer trace.Tracer

	ioctlFD int
}

// NewExecutor opens the executor's kernel endpoints: the ioctl datagram
// socket. Socket creation failure is fatal per the spec's error taxonomy —
// the caller is expected to abort startup on a non-nil error.
func NewExecutor(logger *slog.Logger, tracer trace.Tracer) (*Executor, error) {
	logger = logger.With("component", "kernel-executor")

	fd, err := openIoctlSocket()
	if err != nil {
		return nil, fmt.Errorf("opening ioctl socket: %w", err)
	}

	return &Executor{logger: logger, tracer: tracer, ioctlFD: fd}, nil
}

// Close releases the executor's kernel file descriptors.
func (e *Executor) Close() error {
	return closeIoctlSocket(e.ioctlFD)
}

func (e *Executor) span(op string) (context.Context, trace.Span) {
	return e.tracer.Start(context.Background(), "netifd.kernel."+op)
}

// AddAddr implements ipmodel.KernelOps.
func (e *Executor) AddAddr(ifname string, a ipmodel.DeviceAddr) error {
	_, span := e.span("add_addr")
	defer span.End()

	link, err := netlink.LinkByName(ifname)
	if err != nil {
		e.logger.Debug("add_addr: link lookup failed", "ifname", ifname, "error", err)
		return fmt.Errorf("link %s: %w", ifname, err)
	}

	nlAddr := &netlink.Addr{
		IPNet: &net.IPNet{IP: a.Addr.IP(), Mask: maskFor(a)},
	}
	if a.Flags.IsV4() && a.Broadcast != 0 {
		nlAddr.Broadcast = broadcastIP(a.Broadcast)
	}
	if a.PointToPoint != 0 {
		nlAddr.Peer = &net.IPNet{IP: broadcastIP(a.PointToPoint), Mask: net.CIDRMask(32, 32)}
	}

	if err := netlink.AddrAdd(link, nlAddr); err != nil {
		e.logger.Warn("add_addr failed", "ifname", ifname, "addr", a.Addr.String(), "error", err)
		return fmt.Errorf("netlink.AddrAdd %s on %s: %w", a.Addr, ifname, err)
	}
	e.logger.Debug("address added", "ifname", ifname, "addr", a.Addr.String(), "mask", a.Mask)
	return nil
}

// DelAddr implements ipmodel.KernelOps.
func (e *Executor) DelAddr(ifname string, a ipmodel.DeviceAddr) error {
	_, span := e.span("del_addr")
	defer span.End()

	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return fmt.Errorf("link %s: %w", ifname, err)
	}
	nlAddr := &netlink.Addr{IPNet: &net.IPNet{IP: a.Addr.IP(), Mask: maskFor(a)}}
	if err := netlink.AddrDel(link, nlAddr); err != nil {
		e.logger.Debug("del_addr failed", "ifname", ifname, "addr", a.Addr.String(), "error", err)
		return fmt.Errorf("netlink.AddrDel %s on %s: %w", a.Addr, ifname, err)
	}
	return nil
}

// AddRoute implements ipmodel.KernelOps.
func (e *Executor) AddRoute(ifname string, r ipmodel.DeviceRoute) error {
	_, span := e.span("add_route")
	defer span.End()

	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return fmt.Errorf("link %s: %w", ifname, err)
	}

	route := routeFor(link.Attrs().Index, r)
	route.Protocol = protocolFor(r)
	route.Scope = scopeFor(r)

	if err := netlink.RouteReplace(&route); err != nil {
		e.logger.Warn("add_route failed", "ifname", ifname, "dst", r.Addr.String(), "mask", r.Mask, "error", err)
		return fmt.Errorf("netlink.RouteReplace %s/%d on %s: %w", r.Addr, r.Mask, ifname, err)
	}
	e.logger.Debug("route added", "ifname", ifname, "dst", r.Addr.String(), "mask", r.Mask, "metric", r.Metric)
	return nil
}

// DelRoute implements ipmodel.KernelOps.
func (e *Executor) DelRoute(ifname string, r ipmodel.DeviceRoute) error {
	_, span := e.span("del_route")
	defer span.End()

	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return fmt.Errorf("link %s: %w", ifname, err)
	}
	route := routeFor(link.Attrs().Index, r)
	if err := netlink.RouteDel(&route); err != nil {
		e.logger.Debug("del_route failed", "ifname", ifname, "dst", r.Addr.String(), "error", err)
		return fmt.Errorf("netlink.RouteDel %s/%d on %s: %w", r.Addr, r.Mask, ifname, err)
	}
	return nil
}

func maskFor(a ipmodel.DeviceAddr) net.IPMask {
	if a.Flags.IsV6() {
		return net.CIDRMask(a.Mask, 128)
	}
	return net.CIDRMask(a.Mask, 32)
}

func broadcastIP(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func routeFor(ifindex int, r ipmodel.DeviceRoute) netlink.Route {
	bits := 32
	if r.Flags.IsV6() {
		bits = 128
	}
	route := netlink.Route{
		LinkIndex: ifindex,
		Table:     unixRTTableMain,
	}
	if r.Mask > 0 {
		route.Dst = &net.IPNet{IP: r.Addr.IP(), Mask: net.CIDRMask(r.Mask, bits)}
	}
	if r.Metric > 0 {
		route.Priority = r.Metric
	}
	if !r.NextHop.IsZero() {
		route.Gw = r.NextHop.IP()
	}
	return route
}

// protocolFor maps the KERNEL flag to RTPROT_KERNEL vs RTPROT_BOOT, per
// §4.4's "protocol=KERNEL if route.flags&KERNEL else BOOT" rule.
func protocolFor(r ipmodel.DeviceRoute) netlink.RouteProtocol {
	if r.Flags&ipmodel.FlagKernel != 0 {
		return unixRTProtKernel
	}
	return unixRTProtBoot
}

// scopeFor implements §4.4's scope rule: UNIVERSE if a nexthop is present,
// LINK otherwise.
func scopeFor(r ipmodel.DeviceRoute) netlink.Scope {
	if !r.NextHop.IsZero() {
		return netlink.SCOPE_UNIVERSE
	}
	return netlink.SCOPE_LINK
}
