package kernel

import (
	"log/slog"
	"net"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"golang.org/x/sys/unix"
)

// ioctlCall records one intercepted ioctl, its opcode and a copy of the
// request's fixed-size argument buffer.
type ioctlCall struct {
	req uintptr
	raw []byte
}

// fakeIoctl stubs doIoctl, recording every call and always succeeding —
// the "fake the syscall boundary" seam the bridge/VLAN/tunnel tests below
// drive instead of touching a real kernel socket.
func fakeIoctl(t *testing.T, argSize int) *[]ioctlCall {
	t.Helper()
	calls := &[]ioctlCall{}
	orig := doIoctl
	doIoctl = func(trap, a1, a2, a3 uintptr) (uintptr, uintptr, unix.Errno) {
		raw := make([]byte, argSize)
		copy(raw, unsafe.Slice((*byte)(unsafe.Pointer(a3)), argSize))
		*calls = append(*calls, ioctlCall{req: a2, raw: raw})
		return 0, 0, 0
	}
	t.Cleanup(func() { doIoctl = orig })
	return calls
}

func testExecutor() *Executor {
	return &Executor{logger: slog.Default(), tracer: otel.Tracer("test"), ioctlFD: 99}
}

func TestCreateBridgeIssuesAddBrThenDevPrivateOpcodes(t *testing.T) {
	calls := fakeIoctl(t, 32)
	e := testExecutor()

	err := e.CreateBridge("br0", BridgeConfig{
		STPEnabled: true, ForwardDelay: 2, AgeingTime: 300, HelloTime: 2, MaxAge: 20,
	})
	require.NoError(t, err)

	require.Len(t, *calls, 6)
	assert.Equal(t, uintptr(siocBrAddBr), (*calls)[0].req)
	for _, c := range (*calls)[1:] {
		assert.Equal(t, uintptr(siocDevPriv0), c.req)
	}
}

func TestDeleteBridgeIssuesDelBr(t *testing.T) {
	calls := fakeIoctl(t, 32)
	e := testExecutor()

	require.NoError(t, e.DeleteBridge("br0"))
	require.Len(t, *calls, 1)
	assert.Equal(t, uintptr(siocBrDelBr), (*calls)[0].req)
}

func TestAddVLANIssuesSifVlanWithAddCmd(t *testing.T) {
	calls := fakeIoctl(t, int(unsafe.Sizeof(vlanIoctlArgs{})))
	e := testExecutor()

	require.NoError(t, e.AddVLAN("eth0", 100))
	require.Len(t, *calls, 1)
	assert.Equal(t, uintptr(siocSifVlan), (*calls)[0].req)

	cmd := *(*int32)(unsafe.Pointer(&(*calls)[0].raw[0]))
	assert.Equal(t, int32(addVlanCmd), cmd)
}

func TestDeleteVLANIssuesSifVlanWithDelCmd(t *testing.T) {
	calls := fakeIoctl(t, int(unsafe.Sizeof(vlanIoctlArgs{})))
	e := testExecutor()

	require.NoError(t, e.DeleteVLAN("eth0.100"))
	require.Len(t, *calls, 1)
	cmd := *(*int32)(unsafe.Pointer(&(*calls)[0].raw[0]))
	assert.Equal(t, int32(delVlanCmd), cmd)
}

func TestCreateSITTunnelIssuesAddTunnelThenAdd6RD(t *testing.T) {
	calls := fakeIoctl(t, 32)
	e := testExecutor()

	cfg := SITTunnelConfig{
		Name:        "6rd0",
		Local:       mustParseIP("203.0.113.1"),
		Remote:      mustParseIP("0.0.0.0"),
		TTL:         64,
		SixRDPrefix: mustParseCIDR("2001:db8::/32"),
	}

	require.NoError(t, e.CreateSITTunnel(cfg))

	// DeleteSITTunnel is called unconditionally first (to clear any stale
	// device of the same name), so the opcode sequence is del, add, 6rd.
	require.Len(t, *calls, 3)
	assert.Equal(t, uintptr(siocDelTunnel), (*calls)[0].req)
	assert.Equal(t, uintptr(siocAddTunnel), (*calls)[1].req)
	assert.Equal(t, uintptr(siocAdd6RD), (*calls)[2].req)
}

func TestDeleteSITTunnelIssuesDelTunnel(t *testing.T) {
	calls := fakeIoctl(t, 32)
	e := testExecutor()

	require.NoError(t, e.DeleteSITTunnel("6rd0"))
	require.Len(t, *calls, 1)
	assert.Equal(t, uintptr(siocDelTunnel), (*calls)[0].req)
}

func TestAddBridgeMemberIssuesBrAddIf(t *testing.T) {
	ioctlCalls := fakeIoctl(t, 32)
	orig := ifNameIndex
	ifNameIndex = func() ([]unix.IfaceIndexName, error) {
		return []unix.IfaceIndexName{{Index: 7, Name: "eth0"}}, nil
	}
	t.Cleanup(func() { ifNameIndex = orig })

	e := testExecutor()
	require.NoError(t, e.AddBridgeMember("br0", "eth0"))

	require.Len(t, *ioctlCalls, 1)
	assert.Equal(t, uintptr(siocBrAddIf), (*ioctlCalls)[0].req)
}

func mustParseIP(s string) net.IP {
	ip := net.ParseIP(s)
	if ip == nil {
		panic("invalid test IP " + s)
	}
	return ip
}

func mustParseCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}
