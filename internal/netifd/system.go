// Package netifd wires the reconciliation engine's components into one
// system context and runs its event loop: the explicit, passed-around
// value the design notes call for in place of hidden module globals.
package netifd

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/netifd-go/netifd/internal/event"
	"github.com/netifd-go/netifd/internal/ipmodel"
	"github.com/netifd-go/netifd/internal/kernel"
	"github.com/netifd-go/netifd/internal/metrics"
	"github.com/netifd-go/netifd/internal/resolvconf"
)

// System bundles the interfaces registry, kernel executor, event
// ingestor, and resolv-conf path that are initialized once at daemon
// start and torn down at shutdown.
type System struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics

	// mu guards Registry exactly where the teacher guards its own
	// network-manager state map.
	mu       sync.RWMutex
	Registry *ipmodel.Registry

	Kernel   *kernel.Executor
	Ingestor *event.Ingestor

	ResolvConfPath     string
	resolvRewriteEvery time.Duration
}

// New constructs a System, opening the kernel executor and event
// ingestor. A non-nil error here is fatal to the daemon per §7.
func New(logger *slog.Logger, tracer trace.Tracer, m *metrics.Metrics, resolvConfPath string, resolvRewriteEvery time.Duration) (*System, error) {
	logger = logger.With("component", "netifd")

	exec, err := kernel.NewExecutor(logger, tracer)
	if err != nil {
		return nil, err
	}

	reg := ipmodel.NewRegistry(exec)

	ing, err := event.NewIngestor(logger, reg)
	if err != nil {
		_ = exec.Close()
		return nil, err
	}

	return &System{
		logger:             logger,
		tracer:             tracer,
		metrics:            m,
		Registry:           reg,
		Kernel:             exec,
		Ingestor:           ing,
		ResolvConfPath:     resolvConfPath,
		resolvRewriteEvery: resolvRewriteEvery,
	}, nil
}

// Interface looks up or creates a named interface, holding the registry
// lock for the duration.
func (s *System) Interface(name string, devType ipmodel.DeviceType) *ipmodel.Interface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Registry.GetOrCreate(name, devType)
}

// Claim gets or creates the named interface and runs its claim sequence:
// clear_state against the kernel, then bring the device up. parentBridge
// names the bridge this device should be a member of, empty if none.
func (s *System) Claim(name string, devType ipmodel.DeviceType, parentBridge string) (*ipmodel.Interface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Registry.Claim(name, devType, parentBridge)
}

// Release brings a claimed device down and removes it from the registry.
func (s *System) Release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Registry.Remove(name)
}

// WriteResolvConf rebuilds the resolv.conf file from every up interface's
// DNS state, matching §4.6.
func (s *System) WriteResolvConf() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var states []resolvconf.InterfaceState
	s.Registry.ForEach(func(iface *ipmodel.Interface) {
		states = append(states, resolvconf.InterfaceState{
			Name: iface.Name,
			Up:   iface.Device.Present,
			Iface: iface,
		})
	})

	err := resolvconf.Write(s.logger, s.ResolvConfPath, states)
	if s.metrics != nil {
		s.metrics.RecordResolvWrite()
	}
	return err
}

// Close tears down the kernel executor and event ingestor.
func (s *System) Close() error {
	s.Ingestor.Close()
	return s.Kernel.Close()
}

// Loop runs the event ingestor's link/uevent loop in its own goroutine and,
// on the calling goroutine, periodically rewrites resolv.conf until ctx is
// cancelled. There is no worker pool: each of the two loops runs one
// handler at a time.
func (s *System) Loop(ctx context.Context) {
	ticker := time.NewTicker(s.resolvRewriteEvery)
	defer ticker.Stop()

	ingestorDone := make(chan struct{})
	go func() {
		s.Ingestor.Run(ctx)
		close(ingestorDone)
	}()

	for {
		select {
		case <-ctx.Done():
			<-ingestorDone
			return
		case <-ticker.C:
			if err := s.WriteResolvConf(); err != nil {
				s.logger.Warn("resolv.conf rewrite failed", "error", err)
			}
		}
	}
}
