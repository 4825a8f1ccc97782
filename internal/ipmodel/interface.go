package ipmodel

import "github.com/netifd-go/netifd/internal/vset"

// Interface aggregates a Device with its two IP settings layers and the
// host routes the resolver installs on its behalf.
type Interface struct {
	Name   string
	Device *Device
	Metric int

	// ProtoIP is populated by the active protocol handler (DHCP, static,
	// PPP, ...). ConfigIP is populated by static user configuration.
	ProtoIP  *IPSettings
	ConfigIP *IPSettings

	HostRoutes *vset.Set[DeviceRouteKey, DeviceRoute]
}

// Key returns the interface name, satisfying vset.Entry. Registry does not
// use it: it keys its plain map by name directly.
func (i *Interface) Key() string { return i.Name }

// NewInterface creates an Interface with both IP settings layers wired to
// the given kernel executor.
func NewInterface(name string, dev *Device, kernel KernelOps) *Interface {
	iface := &Interface{
		Name:       name,
		Device:     dev,
		ProtoIP:    NewIPSettings(name, kernel, true),
		ConfigIP:   NewIPSettings(name, kernel, false),
		HostRoutes: NewHostRoutes(name, kernel),
	}
	return iface
}

// Teardown flushes the host routes (proto layer only) and both IP settings
// bundles.
func (i *Interface) Teardown() {
	i.HostRoutes.FlushAll()
	i.ProtoIP.Flush()
	i.ConfigIP.Flush()
}
