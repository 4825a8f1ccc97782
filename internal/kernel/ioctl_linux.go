package kernel

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Legacy ioctl opcodes with no rtnetlink equivalent. None of these are
// exposed by golang.org/x/sys/unix on linux (it only carries the BSD
// socket-layer SIOC* set); they come from linux/sockios.h and
// linux/if_bridge.h and are reproduced here as the constants every
// from-scratch Go bridge/VLAN implementation ends up hand-declaring.
const (
	siocBrAddBr   = 0x89a0
	siocBrDelBr   = 0x89a1
	siocBrAddIf   = 0x89a2
	siocBrDelIf   = 0x89a3
	siocDevPriv0  = 0x89f0 // SIOCDEVPRIVATE
	siocSifVlan   = 0x8983
	siocEthtool   = 0x8946
	siocAddTunnel = 0x89f1 // SIOCDEVPRIVATE+1
	siocDelTunnel = 0x89f2 // SIOCDEVPRIVATE+2
	siocAdd6RD    = 0x89f9 // SIOCDEVPRIVATE+9
)

// Bridge control opcodes, passed as the first word of the argument array a
// SIOCDEVPRIVATE request points to (linux/if_bridge.h's old ioctl ABI).
const (
	brCmdSetBridgeSTPState     = 14
	brCmdSetBridgeForwardDelay = 8
	brCmdSetAgeingTime         = 11
	brCmdSetBridgeHelloTime    = 9
	brCmdSetBridgeMaxAge       = 10
)

func openIoctlSocket() (int, error) {
	return unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
}

func closeIoctlSocket(fd int) error {
	if fd <= 0 {
		return nil
	}
	return unix.Close(fd)
}

// ifreq mirrors struct ifreq's layout closely enough for the opcodes used
// here: a 16-byte interface name followed by a union big enough for the
// largest payload we pass (a pointer plus padding).
type ifreq struct {
	name [unix.IFNAMSIZ]byte
	data [24]byte
}

func newIfreq(ifname string) ifreq {
	var r ifreq
	copy(r.name[:], ifname)
	return r
}

// doIoctl and ifNameIndex are package-level seams so tests can drive the
// bridge/VLAN/tunnel opcode paths above without a real kernel socket or
// CAP_NET_ADMIN, the same "fake the syscall boundary" pattern FakeOps uses
// for the netlink side.
var (
	doIoctl     = unix.Syscall
	ifNameIndex = unix.IfNameIndex
)

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := doIoctl(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// bridgeAddBr creates a bridge device named name.
func (e *Executor) bridgeAddBr(name string) error {
	r := newIfreq(name)
	if err := ioctl(e.ioctlFD, siocBrAddBr, unsafe.Pointer(&r)); err != nil {
		return fmt.Errorf("SIOCBRADDBR %s: %w", name, err)
	}
	return nil
}

// bridgeDelBr destroys a bridge device.
func (e *Executor) bridgeDelBr(name string) error {
	r := newIfreq(name)
	if err := ioctl(e.ioctlFD, siocBrDelBr, unsafe.Pointer(&r)); err != nil {
		return fmt.Errorf("SIOCBRDELBR %s: %w", name, err)
	}
	return nil
}

// bridgeIf issues SIOCBRADDIF/SIOCBRDELIF to attach or detach a member
// interface from a bridge.
func (e *Executor) bridgeIf(bridge, member string, add bool) error {
	memberLink, err := ifNameIndex()
	if err != nil {
		return fmt.Errorf("enumerating interfaces: %w", err)
	}
	var idx uint32
	for _, l := range memberLink {
		if l.Name == member {
			idx = l.Index
			break
		}
	}
	if idx == 0 {
		return fmt.Errorf("bridge member %s not found", member)
	}

	r := newIfreq(bridge)
	*(*uint32)(unsafe.Pointer(&r.data[0])) = idx

	req := uintptr(siocBrDelIf)
	if add {
		req = siocBrAddIf
	}
	if err := ioctl(e.ioctlFD, req, unsafe.Pointer(&r)); err != nil {
		return fmt.Errorf("bridge %s if %s (add=%v): %w", bridge, member, add, err)
	}
	return nil
}

// bridgeDevPrivate issues a SIOCDEVPRIVATE bridge-options opcode. Time
// values (forward delay, ageing time, hello time, max age) are seconds and
// are converted to centiseconds before the call, per §4.4.
func (e *Executor) bridgeDevPrivate(bridge string, cmd int, arg1, arg2 uint64) error {
	args := [4]uint64{uint64(cmd), arg1, arg2, 0}
	r := newIfreq(bridge)
	*(**[4]uint64)(unsafe.Pointer(&r.data[0])) = &args
	if err := ioctl(e.ioctlFD, siocDevPriv0, unsafe.Pointer(&r)); err != nil {
		return fmt.Errorf("SIOCDEVPRIVATE cmd=%d on %s: %w", cmd, bridge, err)
	}
	return nil
}

func secondsToCentiseconds(seconds int) uint64 {
	return uint64(seconds) * 100
}
