package kernel

import "github.com/netifd-go/netifd/internal/ipmodel"

// FakeOps is a recording ipmodel.KernelOps used by tests that exercise the
// reconciliation layer without CAP_NET_ADMIN or a real kernel — the same
// "test against the abstraction" pattern the pack's CNI plugin code uses
// for namespace fakes.
type FakeOps struct {
	Calls []FakeCall
}

// FakeCall records one KernelOps/DeviceOps invocation in order.
type FakeCall struct {
	Op       string
	IfName   string
	Addr     ipmodel.DeviceAddr
	Route    ipmodel.DeviceRoute
	Bridge   string
	IsBridge bool
	IsMember bool
}

func (f *FakeOps) AddAddr(ifname string, a ipmodel.DeviceAddr) error {
	f.Calls = append(f.Calls, FakeCall{Op: "add_addr", IfName: ifname, Addr: a})
	return nil
}

func (f *FakeOps) DelAddr(ifname string, a ipmodel.DeviceAddr) error {
	f.Calls = append(f.Calls, FakeCall{Op: "del_addr", IfName: ifname, Addr: a})
	return nil
}

func (f *FakeOps) AddRoute(ifname string, r ipmodel.DeviceRoute) error {
	f.Calls = append(f.Calls, FakeCall{Op: "add_route", IfName: ifname, Route: r})
	return nil
}

func (f *FakeOps) DelRoute(ifname string, r ipmodel.DeviceRoute) error {
	f.Calls = append(f.Calls, FakeCall{Op: "del_route", IfName: ifname, Route: r})
	return nil
}

func (f *FakeOps) BringUp(dev *ipmodel.Device) error {
	f.Calls = append(f.Calls, FakeCall{Op: "bring_up", IfName: dev.IfName})
	dev.Present = true
	return nil
}

func (f *FakeOps) BringDown(dev *ipmodel.Device) error {
	f.Calls = append(f.Calls, FakeCall{Op: "bring_down", IfName: dev.IfName})
	dev.Present = false
	return nil
}

func (f *FakeOps) ClearState(dev *ipmodel.Device, isBridge, isBridgeMember bool, bridgeName string) error {
	f.Calls = append(f.Calls, FakeCall{
		Op: "clear_state", IfName: dev.IfName,
		Bridge: bridgeName, IsBridge: isBridge, IsMember: isBridgeMember,
	})
	return nil
}

// Ops returns just the operation names in call order, for terse assertions.
func (f *FakeOps) Ops() []string {
	out := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		out[i] = c.Op
	}
	return out
}
