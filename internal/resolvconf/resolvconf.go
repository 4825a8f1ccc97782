// Package resolvconf implements the Resolv Writer: serializing the union
// of active per-interface DNS state to a resolver configuration file,
// atomically.
package resolvconf

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/netifd-go/netifd/internal/ipmodel"
)

// InterfaceState describes the one piece of external state (up/down) this
// package needs but doesn't own — the interface state machine is out of
// scope per spec.md §1, so it's passed in as plain data rather than
// queried through a dependency on that collaborator.
type InterfaceState struct {
	Name string
	Up   bool
	Iface *ipmodel.Interface
}

// Write serializes DNS state for every up interface with non-empty DNS
// lists to path, atomically (write to path+".tmp", then rename). A failed
// rename unlinks the tmp file and only logs — callers never see that
// failure as a hard error, per §4.6.
func Write(logger *slog.Logger, path string, states []InterfaceState) error {
	var b strings.Builder
	for _, st := range states {
		if !st.Up {
			continue
		}
		writeInterfaceBlock(&b, st)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		logger.Warn("resolv.conf rename failed", "path", path, "error", err)
		return nil
	}
	return nil
}

func writeInterfaceBlock(b *strings.Builder, st InterfaceState) {
	configDNS, protoDNS := hasDNS(st.Iface)
	if !configDNS && !protoDNS {
		return
	}

	fmt.Fprintf(b, "# Interface %s\n", st.Name)

	if st.Iface.ConfigIP != nil {
		writeDNSLists(b, st.Iface.ConfigIP)
	}
	if st.Iface.ProtoIP != nil && !st.Iface.ProtoIP.NoDNS {
		writeDNSLists(b, st.Iface.ProtoIP)
	}
}

func hasDNS(iface *ipmodel.Interface) (configHas, protoHas bool) {
	if iface.ConfigIP != nil && iface.ConfigIP.DNSServers != nil {
		configHas = iface.ConfigIP.DNSServers.Len() > 0 || iface.ConfigIP.DNSSearch.Len() > 0
	}
	if iface.ProtoIP != nil && iface.ProtoIP.DNSServers != nil {
		protoHas = iface.ProtoIP.DNSServers.Len() > 0 || iface.ProtoIP.DNSSearch.Len() > 0
	}
	return
}

func writeDNSLists(b *strings.Builder, s *ipmodel.IPSettings) {
	if s.DNSServers == nil {
		return
	}
	for _, ns := range s.DNSServers.Values() {
		// Write the canonical textual form; skip entries that are not
		// IP addresses.
		ip := net.ParseIP(ns)
		if ip == nil {
			continue
		}
		fmt.Fprintf(b, "nameserver %s\n", ip.String())
	}
	if s.DNSSearch.Len() > 0 {
		fmt.Fprintf(b, "search %s\n", strings.Join(s.DNSSearch.Values(), " "))
	}
}
