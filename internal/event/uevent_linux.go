package event

import (
	"bytes"
	"log/slog"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	actionAdd    = "add"
	actionRemove = "remove"
)

// uevent is a parsed NETLINK_KOBJECT_UEVENT message.
type uevent struct {
	action        string
	subsystem     string
	interfaceName string
}

// openUeventSubscription opens the raw NETLINK_KOBJECT_UEVENT socket (no
// ecosystem wrapper exists in the pack for this transport, per §4.5's
// justification) joined to group 1, and returns a channel of parsed
// events read in a background goroutine until the socket is closed.
func openUeventSubscription(logger *slog.Logger) (chan uevent, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, err
	}
	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	ch := make(chan uevent)
	go readUeventLoop(fd, ch, logger)
	return ch, nil
}

func readUeventLoop(fd int, ch chan<- uevent, logger *slog.Logger) {
	defer close(ch)
	buf := make([]byte, 8192)
	for {
		n, _, err := unix.Recvfrom(fd, buf, 0)
		if err != nil {
			if err == unix.EAGAIN {
				continue
			}
			logger.Debug("uevent socket read failed", "error", err)
			return
		}
		if ev, ok := parseUevent(buf[:n]); ok {
			ch <- ev
		}
	}
}

// parseUevent parses the NUL-separated key/value stream prefixed by
// "add@…" or "remove@…" described in §4.5, requiring SUBSYSTEM=net and
// extracting INTERFACE.
func parseUevent(msg []byte) (uevent, bool) {
	fields := bytes.Split(msg, []byte{0})
	if len(fields) == 0 {
		return uevent{}, false
	}

	header := string(fields[0])
	var action string
	switch {
	case strings.HasPrefix(header, actionAdd+"@"):
		action = actionAdd
	case strings.HasPrefix(header, actionRemove+"@"):
		action = actionRemove
	default:
		return uevent{}, false
	}

	ev := uevent{action: action}
	sawNetSubsystem := false
	for _, f := range fields[1:] {
		kv := string(f)
		switch {
		case strings.HasPrefix(kv, "SUBSYSTEM="):
			ev.subsystem = strings.TrimPrefix(kv, "SUBSYSTEM=")
			sawNetSubsystem = ev.subsystem == "net"
		case strings.HasPrefix(kv, "INTERFACE="):
			ev.interfaceName = strings.TrimPrefix(kv, "INTERFACE=")
		}
	}
	if !sawNetSubsystem {
		return uevent{}, false
	}
	return ev, true
}
