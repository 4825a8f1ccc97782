package ipmodel

import (
	"fmt"
	"sort"
)

// Registry is the process-wide name -> Interface mapping. Unlike the
// addr/route VSets it does not diff epochs against kernel state: an
// Interface is created the first time its name is referenced and destroyed
// only by explicit removal, so Registry is a plain ordered map rather than
// an epoch-diffing Set — the "itself a VSet" framing in the data model
// describes its deterministic key ordering, not its lifecycle.
type Registry struct {
	byName map[string]*Interface
	kernel KernelOps
	ops    DeviceOps
}

// NewRegistry creates an empty interface registry bound to a kernel
// executor; every Interface it creates shares that executor's address/route
// operations, and Claim/Remove drive its device-lifecycle operations.
func NewRegistry(ops Ops) *Registry {
	return &Registry{byName: make(map[string]*Interface), kernel: ops, ops: ops}
}

// GetOrCreate returns the named interface, creating it (and its backing
// Device) on first reference.
func (r *Registry) GetOrCreate(name string, devType DeviceType) *Interface {
	if iface, ok := r.byName[name]; ok {
		return iface
	}
	dev := NewDevice(name, devType)
	iface := NewInterface(name, dev, r.kernel)
	r.byName[name] = iface
	return iface
}

// Get looks up an interface by name without creating it.
func (r *Registry) Get(name string) (*Interface, bool) {
	iface, ok := r.byName[name]
	return iface, ok
}

// Claim gets or creates the named interface, wipes any pre-existing kernel
// state on its device via clear_state (invariant #7 / scenario S6 — stale
// addresses and routes on a device netifd is about to manage are dumped and
// deleted, the link taken down, and any bridge linkage dropped), then
// brings the device up. parentBridge names the bridge this device is a
// member of, empty if none.
func (r *Registry) Claim(name string, devType DeviceType, parentBridge string) (*Interface, error) {
	iface := r.GetOrCreate(name, devType)

	isBridge := devType == DeviceBridge
	isBridgeMember := parentBridge != ""
	if err := r.ops.ClearState(iface.Device, isBridge, isBridgeMember, parentBridge); err != nil {
		return nil, fmt.Errorf("claim %s: clearing kernel state: %w", name, err)
	}
	if err := r.ops.BringUp(iface.Device); err != nil {
		return nil, fmt.Errorf("claim %s: bringing up: %w", name, err)
	}
	return iface, nil
}

// Remove brings the device down, tears down and deletes an interface by
// name. Removing a name not present is a no-op.
func (r *Registry) Remove(name string) {
	iface, ok := r.byName[name]
	if !ok {
		return
	}
	_ = r.ops.BringDown(iface.Device)
	iface.Teardown()
	delete(r.byName, name)
}

// ForEach traverses interfaces in ascending name order, matching the
// deterministic iteration the resolver and the resolv.conf writer rely on.
func (r *Registry) ForEach(fn func(*Interface)) {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fn(r.byName[n])
	}
}

// Len returns the number of registered interfaces.
func (r *Registry) Len() int { return len(r.byName) }
