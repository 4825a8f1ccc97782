package kernel

import (
	"fmt"
	"os"
)

func (e *Executor) setDisableIPv6(ifname string, disable bool) error {
	val := "0"
	if disable {
		val = "1"
	}
	path := fmt.Sprintf("/proc/sys/net/ipv6/conf/%s/disable_ipv6", ifname)
	return os.WriteFile(path, []byte(val), 0o644)
}

// EnableIPv6 re-enables IPv6 on an interface, used during claim-time
// cleanup per §4.4.
func (e *Executor) EnableIPv6(ifname string) error {
	return e.setDisableIPv6(ifname, false)
}

// FlushRoutes writes "-1" to /proc/sys/net/ipv{4,6}/route/flush, per
// §4.4's route-flush primitive.
func (e *Executor) FlushRoutes() error {
	_, span := e.span("flush_routes")
	defer span.End()

	var firstErr error
	for _, fam := range []string{"ipv4", "ipv6"} {
		path := fmt.Sprintf("/proc/sys/net/%s/route/flush", fam)
		if err := os.WriteFile(path, []byte("-1"), 0o644); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("flushing %s routes: %w", fam, err)
		}
	}
	return firstErr
}
