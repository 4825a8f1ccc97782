package kernel

import (
	"encoding/binary"
	"fmt"
	"net"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	tunnelVersion4 = 4
	tunnelIHL      = 5
	ipFragOffDF    = 0x4000 // htons(IP_DF), big-endian already
	ipProtoIPv6    = unix.IPPROTO_IPV6
)

// ipTunnelParm mirrors struct ip_tunnel_parm from linux/if_tunnel.h closely
// enough for the fields §4.4 names: version/ihl/frag_off/protocol/local/
// remote/ttl/name. Kernel struct padding and iph fields beyond these are
// zeroed, matching a freshly zero-valued struct in the C source.
type ipTunnelParm struct {
	name     [unix.IFNAMSIZ]byte
	linkIdx  int32
	ikey     uint32
	okey     uint32
	ihl      uint8
	version  uint8
	tos      uint8
	pad      uint8
	fragOff  uint16
	protocol uint16
	ttl      uint8
	ihlPad   uint8
	local    [4]byte
	remote   [4]byte
}

// SITTunnelConfig is the 6-in-4 tunnel descriptor CreateSITTunnel takes.
// Nothing in internal/entry builds one from an attribute blob.
type SITTunnelConfig struct {
	Name   string
	Local  net.IP
	Remote net.IP
	TTL    int

	// SixRDPrefix and SixRDRelayPrefix are set only for a 6rd tunnel.
	SixRDPrefix      *net.IPNet // IPv6 prefix, mask <= 128
	SixRDRelayPrefix *net.IPNet // IPv4 relay prefix, mask <= 32
}

// CreateSITTunnel deletes any existing device of the same name, then adds
// a SIT tunnel over the sit0 base device per §4.4. If cfg specifies a 6rd
// prefix, SIOCADD6RD is issued on the newly created device; on failure the
// tunnel is torn down and the error reported.
func (e *Executor) CreateSITTunnel(cfg SITTunnelConfig) error {
	_, span := e.span("create_sit_tunnel")
	defer span.End()

	_ = e.DeleteSITTunnel(cfg.Name)

	var p ipTunnelParm
	copy(p.name[:], cfg.Name)
	p.version = tunnelVersion4
	p.ihl = tunnelIHL
	p.fragOff = ipFragOffDF
	p.protocol = ipProtoIPv6
	p.ttl = uint8(cfg.TTL)
	if v4 := cfg.Local.To4(); v4 != nil {
		copy(p.local[:], v4)
	}
	if v4 := cfg.Remote.To4(); v4 != nil {
		copy(p.remote[:], v4)
	}

	base := newIfreq("sit0")
	*(**ipTunnelParm)(unsafe.Pointer(&base.data[0])) = &p
	if err := ioctl(e.ioctlFD, siocAddTunnel, unsafe.Pointer(&base)); err != nil {
		return fmt.Errorf("SIOCADDTUNNEL %s: %w", cfg.Name, err)
	}

	if cfg.SixRDPrefix != nil {
		if err := e.add6RD(cfg.Name, cfg.SixRDPrefix, cfg.SixRDRelayPrefix); err != nil {
			_ = e.DeleteSITTunnel(cfg.Name)
			return fmt.Errorf("SIOCADD6RD %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// DeleteSITTunnel removes a SIT tunnel device.
func (e *Executor) DeleteSITTunnel(name string) error {
	var p ipTunnelParm
	copy(p.name[:], name)
	r := newIfreq(name)
	*(**ipTunnelParm)(unsafe.Pointer(&r.data[0])) = &p
	return ioctl(e.ioctlFD, siocDelTunnel, unsafe.Pointer(&r))
}

type sixRDParm struct {
	name           [unix.IFNAMSIZ]byte
	prefix         [16]byte
	prefixlen      uint16
	relayPrefix    uint32
	relayPrefixlen uint16
}

func (e *Executor) add6RD(name string, prefix *net.IPNet, relay *net.IPNet) error {
	ones, _ := prefix.Mask.Size()
	var p sixRDParm
	copy(p.name[:], name)
	copy(p.prefix[:], prefix.IP.To16())
	p.prefixlen = uint16(ones)
	if relay != nil {
		relayOnes, _ := relay.Mask.Size()
		p.relayPrefix = binary.BigEndian.Uint32(relay.IP.To4())
		p.relayPrefixlen = uint16(relayOnes)
	}
	return ioctl(e.ioctlFD, siocAdd6RD, unsafe.Pointer(&p))
}
