package ipmodel

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netifd-go/netifd/internal/ipaddr"
)

type kernelCall struct {
	op    string // "addaddr", "deladdr", "addroute", "delroute"
	ifname string
	addr  DeviceAddr
	route DeviceRoute
}

type fakeKernel struct {
	calls []kernelCall
}

func (k *fakeKernel) AddAddr(ifname string, a DeviceAddr) error {
	k.calls = append(k.calls, kernelCall{op: "addaddr", ifname: ifname, addr: a})
	return nil
}

func (k *fakeKernel) DelAddr(ifname string, a DeviceAddr) error {
	k.calls = append(k.calls, kernelCall{op: "deladdr", ifname: ifname, addr: a})
	return nil
}

func (k *fakeKernel) AddRoute(ifname string, r DeviceRoute) error {
	k.calls = append(k.calls, kernelCall{op: "addroute", ifname: ifname, route: r})
	return nil
}

func (k *fakeKernel) DelRoute(ifname string, r DeviceRoute) error {
	k.calls = append(k.calls, kernelCall{op: "delroute", ifname: ifname, route: r})
	return nil
}

func (k *fakeKernel) ops() []string {
	out := make([]string, len(k.calls))
	for i, c := range k.calls {
		out[i] = c.op
	}
	return out
}

func v4(s string) ipaddr.Addr {
	a, ok := ipaddr.FromNetIP(net.ParseIP(s), false)
	if !ok {
		panic("bad v4 literal: " + s)
	}
	return a
}

// S1 — static address: add 10.0.0.1/24 with metric=0 installs the address
// only, with a derived broadcast, and no subnet route.
func TestScenarioS1StaticAddress(t *testing.T) {
	k := &fakeKernel{}
	s := NewIPSettings("eth0", k, false)
	s.Enabled = true

	s.UpdateStart()
	s.Addr.Add(NewIPv4Addr(v4("10.0.0.1"), 24, false))
	s.UpdateComplete()

	require.Len(t, k.calls, 1)
	assert.Equal(t, "addaddr", k.calls[0].op)
	assert.Equal(t, v4("10.0.0.1"), k.calls[0].addr.Addr)
	assert.Equal(t, 24, k.calls[0].addr.Mask)
	assert.Equal(t, DeriveBroadcast(v4("10.0.0.1"), 24), k.calls[0].addr.Broadcast)
	assert.Equal(t, v4("10.0.0.255"), broadcastAddr(k.calls[0].addr.Broadcast))
}

func broadcastAddr(b uint32) ipaddr.Addr {
	ip := net.IPv4(byte(b>>24), byte(b>>16), byte(b>>8), byte(b))
	a, _ := ipaddr.FromNetIP(ip, false)
	return a
}

// Invariant #9: 10.0.0.1/24 derives broadcast 10.0.0.255.
func TestBroadcastDerivation(t *testing.T) {
	b := DeriveBroadcast(v4("10.0.0.1"), 24)
	assert.Equal(t, v4("10.0.0.255"), broadcastAddr(b))
}

// Invariant #5: on address add with nonzero interface metric, the subnet
// route's delete precedes its add.
func TestSubnetRouteSequencing(t *testing.T) {
	k := &fakeKernel{}
	s := NewIPSettings("eth0", k, false)
	s.Enabled = true
	s.Metric = 10

	s.UpdateStart()
	s.Addr.Add(NewIPv4Addr(v4("10.0.0.1"), 24, false))
	s.UpdateComplete()

	ops := k.ops()
	require.Len(t, ops, 3) // addaddr, delroute (clear stale), addroute
	assert.Equal(t, "addaddr", ops[0])
	delIdx, addIdx := -1, -1
	for i, op := range ops {
		if op == "delroute" {
			delIdx = i
		}
		if op == "addroute" {
			addIdx = i
		}
	}
	require.NotEqual(t, -1, delIdx)
	require.NotEqual(t, -1, addIdx)
	assert.Less(t, delIdx, addIdx)
}

// S2 — default route with gateway, then no_defaultroute flips enabled off
// and issues a delete.
func TestScenarioS2DefaultRouteGating(t *testing.T) {
	k := &fakeKernel{}
	s := NewIPSettings("eth0", k, false)
	s.Enabled = true

	gw := v4("192.168.1.1")
	s.UpdateStart()
	s.Route.Add(DeviceRoute{Flags: FlagInet4, Mask: 0, NextHop: gw})
	s.UpdateComplete()

	require.Len(t, k.calls, 1)
	assert.Equal(t, "addroute", k.calls[0].op)

	k.calls = nil
	s.NoDefaultRoute = true
	s.SetEnabled(true)

	require.Len(t, k.calls, 1)
	assert.Equal(t, "delroute", k.calls[0].op)
}

// Invariant #6: no_defaultroute disables mask=0 routes only.
func TestDefaultRouteGatingLeavesOthersAlone(t *testing.T) {
	k := &fakeKernel{}
	s := NewIPSettings("eth0", k, false)
	s.Enabled = true
	s.NoDefaultRoute = true

	s.UpdateStart()
	s.Route.Add(DeviceRoute{Flags: FlagInet4, Mask: 0, NextHop: v4("192.168.1.1")})
	s.Route.Add(DeviceRoute{Flags: FlagInet4, Mask: 24, Addr: v4("10.0.0.0")})
	s.UpdateComplete()

	var defaultRoute, otherRoute *DeviceRoute
	s.Route.ForEach(func(r *DeviceRoute) {
		if r.Mask == 0 {
			defaultRoute = r
		} else {
			otherRoute = r
		}
	})
	require.NotNil(t, defaultRoute)
	require.NotNil(t, otherRoute)
	assert.False(t, defaultRoute.Enabled)
	assert.True(t, otherRoute.Enabled)
}

func TestAddrKeepSkipsKernelOps(t *testing.T) {
	k := &fakeKernel{}
	s := NewIPSettings("eth0", k, false)
	s.Enabled = true

	s.UpdateStart()
	s.Addr.Add(NewIPv4Addr(v4("10.0.0.1"), 24, false))
	s.UpdateComplete()
	k.calls = nil

	// re-add identical address next epoch: flags and broadcast unchanged,
	// so "keep" holds and no kernel ops are issued.
	s.UpdateStart()
	s.Addr.Add(NewIPv4Addr(v4("10.0.0.1"), 24, false))
	s.UpdateComplete()

	assert.Empty(t, k.calls)
}

func TestFlushTearsDownEverything(t *testing.T) {
	k := &fakeKernel{}
	s := NewIPSettings("eth0", k, true)
	s.Enabled = true

	s.UpdateStart()
	s.Addr.Add(NewIPv4Addr(v4("10.0.0.1"), 24, false))
	s.Route.Add(DeviceRoute{Flags: FlagInet4, Mask: 0, NextHop: v4("192.168.1.1")})
	s.DNSServers.Add("8.8.8.8")
	s.UpdateComplete()
	k.calls = nil

	s.Flush()

	assert.Equal(t, 0, s.Addr.Len())
	assert.Equal(t, 0, s.Route.Len())
	assert.Equal(t, 0, s.DNSServers.Len())
	for _, c := range k.calls {
		assert.Contains(t, []string{"deladdr", "delroute"}, c.op)
	}
}
