// Package ipmodel holds the declarative data model netifd reconciles
// against the kernel: devices, addresses, routes, and the two-layer
// IP settings bundle each interface carries.
package ipmodel

import "net"

// DeviceType classifies how a Device was brought into existence.
type DeviceType int

const (
	DeviceSimple DeviceType = iota
	DeviceBridge
	DeviceVLAN
	DeviceTunnel
)

func (t DeviceType) String() string {
	switch t {
	case DeviceBridge:
		return "bridge"
	case DeviceVLAN:
		return "vlan"
	case DeviceTunnel:
		return "tunnel"
	default:
		return "simple"
	}
}

// DevSettingsFlag marks which fields of DevSettings the caller has
// explicitly requested (as opposed to left at the zero value).
type DevSettingsFlag uint8

const (
	SettingMTU DevSettingsFlag = 1 << iota
	SettingTXQueueLen
	SettingMACAddr
)

// DevSettings is the bundle of device-level knobs netifd manages directly
// (as opposed to through the address/route VSets).
type DevSettings struct {
	Flags      DevSettingsFlag
	MTU        int
	TXQueueLen int
	MACAddr    net.HardwareAddr
}

// Device is a named network interface. It is created on first reference
// by name and destroyed only by explicit removal — never implicitly by a
// reconciliation pass.
type Device struct {
	IfName  string // ≤ 15 bytes, the Linux IFNAMSIZ-1 limit
	IfIndex int
	Type    DeviceType

	Present  bool
	External bool

	Settings     DevSettings
	OrigSettings DevSettings
}

// NewDevice creates a Device in its initial, absent state.
func NewDevice(ifname string, typ DeviceType) *Device {
	return &Device{IfName: ifname, Type: typ}
}
