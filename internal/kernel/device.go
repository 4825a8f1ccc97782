package kernel

import (
	"fmt"

	"github.com/vishvananda/netlink"

	"github.com/netifd-go/netifd/internal/ipmodel"
)

// BringUp resolves ifindex, snapshots the interface's current MTU/TXQLen/
// MAC into orig, pushes the requested settings, and sets IFF_UP. On a
// per-field failure the corresponding DevSettingsFlag bit is cleared from
// dev.Settings.Flags so teardown won't later try to restore a setting that
// was never actually applied.
func (e *Executor) BringUp(dev *ipmodel.Device) error {
	_, span := e.span("device_up")
	defer span.End()

	link, err := netlink.LinkByName(dev.IfName)
	if err != nil {
		return fmt.Errorf("link %s: %w", dev.IfName, err)
	}
	dev.IfIndex = link.Attrs().Index

	attrs := link.Attrs()
	dev.OrigSettings = ipmodel.DevSettings{
		MTU:        attrs.MTU,
		TXQueueLen: attrs.TxQLen,
		MACAddr:    attrs.HardwareAddr,
	}

	if dev.Settings.Flags&ipmodel.SettingMTU != 0 {
		if err := netlink.LinkSetMTU(link, dev.Settings.MTU); err != nil {
			e.logger.Warn("set MTU failed", "ifname", dev.IfName, "error", err)
			dev.Settings.Flags &^= ipmodel.SettingMTU
		}
	}
	if dev.Settings.Flags&ipmodel.SettingTXQueueLen != 0 {
		if err := netlink.LinkSetTxQLen(link, dev.Settings.TXQueueLen); err != nil {
			e.logger.Warn("set txqueuelen failed", "ifname", dev.IfName, "error", err)
			dev.Settings.Flags &^= ipmodel.SettingTXQueueLen
		}
	}
	if dev.Settings.Flags&ipmodel.SettingMACAddr != 0 {
		if err := netlink.LinkSetHardwareAddr(link, dev.Settings.MACAddr); err != nil {
			e.logger.Warn("set MAC address failed", "ifname", dev.IfName, "error", err)
			dev.Settings.Flags &^= ipmodel.SettingMACAddr
		}
	}

	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("bringing %s up: %w", dev.IfName, err)
	}
	dev.Present = true
	return nil
}

// BringDown clears IFF_UP and restores the orig_settings value of every
// field whose flag is still set in dev.Settings.Flags (BringUp clears the
// flag of any setting it failed to apply). OrigSettings.Flags is not
// consulted; the MAC address is restored only if one was snapshotted.
func (e *Executor) BringDown(dev *ipmodel.Device) error {
	_, span := e.span("device_down")
	defer span.End()

	link, err := netlink.LinkByName(dev.IfName)
	if err != nil {
		return fmt.Errorf("link %s: %w", dev.IfName, err)
	}
	if err := netlink.LinkSetDown(link); err != nil {
		e.logger.Debug("bringing device down failed", "ifname", dev.IfName, "error", err)
	}

	restore := dev.Settings.Flags
	if restore&ipmodel.SettingMTU != 0 {
		_ = netlink.LinkSetMTU(link, dev.OrigSettings.MTU)
	}
	if restore&ipmodel.SettingTXQueueLen != 0 {
		_ = netlink.LinkSetTxQLen(link, dev.OrigSettings.TXQueueLen)
	}
	if restore&ipmodel.SettingMACAddr != 0 && len(dev.OrigSettings.MACAddr) > 0 {
		_ = netlink.LinkSetHardwareAddr(link, dev.OrigSettings.MACAddr)
	}
	return nil
}

// ClearState implements claim-time cleanup (clear_state): dumps every
// address and cloned route on the device's ifindex and re-deletes each,
// drops IFF_UP, removes bridge linkage, and re-enables IPv6.
func (e *Executor) ClearState(dev *ipmodel.Device, isBridge, isBridgeMember bool, bridgeName string) error {
	_, span := e.span("clear_state")
	defer span.End()

	link, err := netlink.LinkByName(dev.IfName)
	if err != nil {
		return fmt.Errorf("link %s: %w", dev.IfName, err)
	}
	dev.IfIndex = link.Attrs().Index

	for _, fam := range []int{netlink.FAMILY_V4, netlink.FAMILY_V6} {
		addrs, err := netlink.AddrList(link, fam)
		if err != nil {
			e.logger.Debug("claim cleanup: addr dump failed", "ifname", dev.IfName, "family", fam, "error", err)
			continue
		}
		for _, a := range addrs {
			addrCopy := a
			if err := netlink.AddrDel(link, &addrCopy); err != nil {
				e.logger.Debug("claim cleanup: addr del failed", "ifname", dev.IfName, "addr", a.IPNet, "error", err)
			}
		}
	}

	routes, err := netlink.RouteListFiltered(netlink.FAMILY_ALL, &netlink.Route{LinkIndex: dev.IfIndex}, netlink.RT_FILTER_OIF)
	if err != nil {
		e.logger.Debug("claim cleanup: route dump failed", "ifname", dev.IfName, "error", err)
	}
	for _, r := range routes {
		routeCopy := r
		if err := netlink.RouteDel(&routeCopy); err != nil {
			e.logger.Debug("claim cleanup: route del failed", "ifname", dev.IfName, "dst", r.Dst, "error", err)
		}
	}

	_ = netlink.LinkSetDown(link)

	if isBridge {
		if err := e.DeleteBridge(dev.IfName); err != nil {
			e.logger.Debug("claim cleanup: bridge delete failed", "ifname", dev.IfName, "error", err)
		}
	} else if isBridgeMember {
		if err := e.RemoveBridgeMember(bridgeName, dev.IfName); err != nil {
			e.logger.Debug("claim cleanup: bridge member removal failed", "ifname", dev.IfName, "error", err)
		}
	}

	if err := e.EnableIPv6(dev.IfName); err != nil {
		e.logger.Debug("claim cleanup: re-enabling ipv6 failed", "ifname", dev.IfName, "error", err)
	}
	return nil
}
