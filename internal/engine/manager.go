package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mlindstad/spa-bridge/internal/gizwits"
	"github.com/mlindstad/spa-bridge/internal/spa"
)

// ErrUnknownDevice means no monitor exists for the device id.
var ErrUnknownDevice = errors.New("unknown device")

// Manager owns one monitor per managed device. Devices are independent:
// each runs on its own timer and may reconcile concurrently with the
// others, while the per-device monitor guarantees no self-overlap.
type Manager struct {
	registry *spa.Registry
	client   TelemetryClient
	sink     CapabilitySink
	recorder Recorder
	interval time.Duration

	mu       sync.RWMutex
	monitors map[string]*Monitor
	cancels  map[string]context.CancelFunc
	wg       sync.WaitGroup

	ctx context.Context
}

// NewManager creates an empty device manager. recorder may be nil.
func NewManager(ctx context.Context, registry *spa.Registry, client TelemetryClient, sink CapabilitySink, recorder Recorder, interval time.Duration) *Manager {
	return &Manager{
		registry: registry,
		client:   client,
		sink:     sink,
		recorder: recorder,
		interval: interval,
		monitors: make(map[string]*Monitor),
		cancels:  make(map[string]context.CancelFunc),
		ctx:      ctx,
	}
}

// AddDevice registers a device and starts its monitor. Adding an id
// that is already managed replaces the previous monitor.
func (mgr *Manager) AddDevice(deviceID, productName string, creds gizwits.Credentials, settings DeviceSettings) *Monitor {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if cancel, ok := mgr.cancels[deviceID]; ok {
		cancel()
	}

	session := NewSession(deviceID, productName, creds, settings, mgr.registry)
	monitor := NewMonitor(session, mgr.registry, mgr.client, mgr.sink, mgr.recorder, mgr.interval)

	ctx, cancel := context.WithCancel(mgr.ctx)
	mgr.monitors[deviceID] = monitor
	mgr.cancels[deviceID] = cancel

	mgr.wg.Add(1)
	go func() {
		defer mgr.wg.Done()
		monitor.Run(ctx)
	}()

	return monitor
}

// RemoveDevice stops the device's monitor and forgets its session.
func (mgr *Manager) RemoveDevice(deviceID string) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if cancel, ok := mgr.cancels[deviceID]; ok {
		cancel()
		delete(mgr.cancels, deviceID)
	}
	delete(mgr.monitors, deviceID)
}

// Monitor returns the monitor for a device id, or nil.
func (mgr *Manager) Monitor(deviceID string) *Monitor {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return mgr.monitors[deviceID]
}

// DeviceIDs returns the ids of all managed devices.
func (mgr *Manager) DeviceIDs() []string {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	ids := make([]string, 0, len(mgr.monitors))
	for id := range mgr.monitors {
		ids = append(ids, id)
	}
	return ids
}

// SendCommand routes a control command to the device's monitor.
func (mgr *Manager) SendCommand(ctx context.Context, deviceID string, cmd spa.Command) error {
	m := mgr.Monitor(deviceID)
	if m == nil {
		return ErrUnknownDevice
	}
	return m.SendCommand(ctx, cmd)
}

// Reconcile triggers an on-demand cycle for the device.
func (mgr *Manager) Reconcile(ctx context.Context, deviceID string) error {
	m := mgr.Monitor(deviceID)
	if m == nil {
		return ErrUnknownDevice
	}
	return m.Reconcile(ctx)
}

// Stop cancels all monitors and waits for in-flight cycles to finish.
func (mgr *Manager) Stop() {
	mgr.mu.Lock()
	for id, cancel := range mgr.cancels {
		cancel()
		delete(mgr.cancels, id)
	}
	mgr.mu.Unlock()
	mgr.wg.Wait()
}
