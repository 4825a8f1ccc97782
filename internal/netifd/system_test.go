package netifd

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netifd-go/netifd/internal/ipmodel"
	"github.com/netifd-go/netifd/internal/kernel"
)

type noopKernel struct{}

func (noopKernel) AddAddr(string, ipmodel.DeviceAddr) error   { return nil }
func (noopKernel) DelAddr(string, ipmodel.DeviceAddr) error   { return nil }
func (noopKernel) AddRoute(string, ipmodel.DeviceRoute) error { return nil }
func (noopKernel) DelRoute(string, ipmodel.DeviceRoute) error { return nil }
func (noopKernel) BringUp(*ipmodel.Device) error              { return nil }
func (noopKernel) BringDown(*ipmodel.Device) error            { return nil }
func (noopKernel) ClearState(*ipmodel.Device, bool, bool, string) error {
	return nil
}

func testSystem(t *testing.T, resolvPath string) *System {
	t.Helper()
	return &System{
		logger:         slog.Default(),
		Registry:       ipmodel.NewRegistry(noopKernel{}),
		ResolvConfPath: resolvPath,
	}
}

func TestInterfaceGetOrCreateIsIdempotent(t *testing.T) {
	s := testSystem(t, filepath.Join(t.TempDir(), "resolv.conf"))

	a := s.Interface("eth0", ipmodel.DeviceSimple)
	b := s.Interface("eth0", ipmodel.DeviceSimple)
	assert.Same(t, a, b)
}

func TestWriteResolvConfCoversUpInterfacesOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	s := testSystem(t, path)

	up := s.Interface("eth0", ipmodel.DeviceSimple)
	up.Device.Present = true
	up.ConfigIP.DNSServers.AddDirect("1.1.1.1")

	down := s.Interface("eth1", ipmodel.DeviceSimple)
	down.ConfigIP.DNSServers.AddDirect("9.9.9.9")

	require.NoError(t, s.WriteResolvConf())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "1.1.1.1")
	assert.NotContains(t, text, "9.9.9.9")
}

// TestClaimClearsStateAndBringsUp covers scenario S6 / invariant #7: claiming
// a device issues clear_state before bringing it up.
func TestClaimClearsStateAndBringsUp(t *testing.T) {
	fake := &kernel.FakeOps{}
	s := &System{
		logger:         slog.Default(),
		Registry:       ipmodel.NewRegistry(fake),
		ResolvConfPath: filepath.Join(t.TempDir(), "resolv.conf"),
	}

	iface, err := s.Claim("br0", ipmodel.DeviceBridge, "")
	require.NoError(t, err)
	require.NotNil(t, iface)

	ops := fake.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, "clear_state", ops[0])
	assert.Equal(t, "bring_up", ops[1])
	assert.True(t, fake.Calls[0].IsBridge)
	assert.True(t, iface.Device.Present)
}

func TestReleaseBringsDeviceDown(t *testing.T) {
	fake := &kernel.FakeOps{}
	s := &System{
		logger:         slog.Default(),
		Registry:       ipmodel.NewRegistry(fake),
		ResolvConfPath: filepath.Join(t.TempDir(), "resolv.conf"),
	}

	_, err := s.Claim("eth0", ipmodel.DeviceSimple, "")
	require.NoError(t, err)
	fake.Calls = nil

	s.Release("eth0")
	require.Len(t, fake.Calls, 1)
	assert.Equal(t, "bring_down", fake.Calls[0].Op)

	_, ok := s.Registry.Get("eth0")
	assert.False(t, ok)
}
