// Package event implements the Event Ingestor: consumption of kernel link
// events and hotplug uevents, mapping ifname to device and flipping
// presence/ifindex bits.
package event

import (
	"context"
	"log/slog"

	"github.com/vishvananda/netlink"

	"github.com/netifd-go/netifd/internal/ipmodel"
)

// Ingestor owns the link-event subscription and the raw uevent socket. It
// never creates a Device — an event for an unknown ifname is silently
// ignored, per §4.5's "do not auto-create" / not-found taxonomy.
type Ingestor struct {
	logger *slog.Logger
	reg    *ipmodel.Registry

	linkUpdates chan netlink.LinkUpdate
	linkDone    chan struct{}

	uevents chan uevent
}

// NewIngestor subscribes to link updates and opens the uevent socket.
// Socket/subscription failure is fatal per the spec's error taxonomy.
func NewIngestor(logger *slog.Logger, reg *ipmodel.Registry) (*Ingestor, error) {
	logger = logger.With("component", "event-ingestor")

	ing := &Ingestor{
		logger:      logger,
		reg:         reg,
		linkUpdates: make(chan netlink.LinkUpdate),
		linkDone:    make(chan struct{}),
	}

	if err := netlink.LinkSubscribe(ing.linkUpdates, ing.linkDone); err != nil {
		return nil, err
	}

	ueventCh, err := openUeventSubscription(logger)
	if err != nil {
		close(ing.linkDone)
		return nil, err
	}
	ing.uevents = ueventCh

	return ing, nil
}

// Close stops the link-update subscription. The uevent socket is not
// closed; its reader goroutine keeps running until a read on it fails.
func (i *Ingestor) Close() {
	close(i.linkDone)
}

// Run drains both event channels until ctx is cancelled, matching the
// "edge-triggered, drained in a loop" requirement of §4.5 — the channel
// read itself is the drain loop here, since netlink.LinkSubscribe already
// reads until EAGAIN internally.
func (i *Ingestor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-i.linkUpdates:
			if !ok {
				return
			}
			i.handleLinkUpdate(upd)
		case ev, ok := <-i.uevents:
			if !ok {
				return
			}
			i.handleUevent(ev)
		}
	}
}

// handleLinkUpdate implements §4.5's RTM_NEWLINK/RTM_DELLINK handling:
// look up the device by name (never auto-create), update its ifindex.
func (i *Ingestor) handleLinkUpdate(upd netlink.LinkUpdate) {
	ifname := upd.Link.Attrs().Name
	iface, ok := i.reg.Get(ifname)
	if !ok {
		i.logger.Debug("link event for unknown device ignored", "ifname", ifname)
		return
	}
	iface.Device.IfIndex = upd.Link.Attrs().Index
	i.logger.Debug("link event", "ifname", ifname, "ifindex", iface.Device.IfIndex)
}

// handleUevent implements §4.5's hotplug handling: only simple-type
// devices are affected, and an unknown INTERFACE is silently ignored.
func (i *Ingestor) handleUevent(ev uevent) {
	if ev.subsystem != "net" || ev.interfaceName == "" {
		return
	}
	iface, ok := i.reg.Get(ev.interfaceName)
	if !ok {
		i.logger.Debug("uevent for unknown device ignored", "ifname", ev.interfaceName)
		return
	}
	if iface.Device.Type != ipmodel.DeviceSimple {
		return
	}
	iface.Device.Present = ev.action == actionAdd
	i.logger.Debug("hotplug event", "ifname", ev.interfaceName, "present", iface.Device.Present)
}
