package kernel

import "unsafe"

// addVlanCmd / delVlanCmd are linux/if_vlan.h's SIOCSIFVLAN sub-commands.
const (
	addVlanCmd = 0
	delVlanCmd = 1
)

type vlanIoctlArgs struct {
	cmd      int32
	device1  [24]byte
	u        [16]byte // union: vid (int16) for ADD_VLAN_CMD
	device2  [24]byte
}

// AddVLAN creates a VLAN sub-interface on base with the given VLAN id,
// using the "raw device name plus VID, no padding" naming §4.4 calls for
// (e.g. eth0.100).
func (e *Executor) AddVLAN(base string, vid int) error {
	_, span := e.span("add_vlan")
	defer span.End()

	var args vlanIoctlArgs
	args.cmd = addVlanCmd
	copy(args.device1[:], base)
	*(*int16)(unsafe.Pointer(&args.u[0])) = int16(vid)

	return ioctl(e.ioctlFD, siocSifVlan, unsafe.Pointer(&args))
}

// DeleteVLAN removes a VLAN sub-interface by name.
func (e *Executor) DeleteVLAN(name string) error {
	_, span := e.span("delete_vlan")
	defer span.End()

	var args vlanIoctlArgs
	args.cmd = delVlanCmd
	copy(args.device1[:], name)

	return ioctl(e.ioctlFD, siocSifVlan, unsafe.Pointer(&args))
}
