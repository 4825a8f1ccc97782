package ipmodel

// DeviceOps is the Kernel Executor's device-lifecycle surface, consumed by
// the Registry's claim/release path: wiping any pre-existing kernel state
// before netifd starts managing a device (clear_state), and bringing it up
// or down.
type DeviceOps interface {
	BringUp(dev *Device) error
	BringDown(dev *Device) error
	ClearState(dev *Device, isBridge, isBridgeMember bool, bridgeName string) error
}

// Ops is the full surface kernel.Executor implements: address/route
// operations (KernelOps, consumed by IPSettings) plus device lifecycle
// operations (DeviceOps, consumed by the Registry's claim path).
type Ops interface {
	KernelOps
	DeviceOps
}
