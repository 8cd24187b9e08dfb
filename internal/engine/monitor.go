package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/mlindstad/spa-bridge/internal/gizwits"
	"github.com/mlindstad/spa-bridge/internal/log"
	"github.com/mlindstad/spa-bridge/internal/spa"
)

// TelemetryClient is the vendor cloud boundary. All three calls are
// network operations that may fail independently; failures come back as
// errors, never panics.
type TelemetryClient interface {
	FetchLatest(ctx context.Context, deviceID string, creds gizwits.Credentials) (spa.RawTelemetry, error)
	SendControl(ctx context.Context, deviceID string, payload spa.Payload, creds gizwits.Credentials) error
	FetchPresence(ctx context.Context, deviceID string, creds gizwits.Credentials) (bool, error)
}

// Recorder persists cycle outcomes. Persistence failures are logged and
// otherwise ignored; they never abort a cycle.
type Recorder interface {
	SaveSnapshot(deviceID, adapterID string, snap spa.Snapshot, powerEstimate float64) error
	LogEvent(source, eventType, message string)
}

// nopRecorder is used when no recorder is configured.
type nopRecorder struct{}

func (nopRecorder) SaveSnapshot(string, string, spa.Snapshot, float64) error { return nil }
func (nopRecorder) LogEvent(string, string, string)                         {}

// Monitor drives the reconciliation loop for a single device: fetch
// telemetry, re-select the adapter, normalize, derive, detect edges,
// and push canonical values to the sink.
//
// Concurrency discipline: at most one cycle per device is ever in
// flight. The mutex is shared by the timer-driven cycle and the command
// path; a timer tick that finds the mutex taken skips instead of
// queueing.
type Monitor struct {
	session  *Session
	registry *spa.Registry
	client   TelemetryClient
	sink     CapabilitySink
	recorder Recorder
	interval time.Duration

	mu sync.Mutex

	// presence state is touched by the tick goroutine and read by the
	// API; guarded separately so reads never wait on a cycle.
	presenceMu sync.Mutex
	online     *bool
}

// NewMonitor creates a monitor for one device. recorder may be nil.
func NewMonitor(session *Session, registry *spa.Registry, client TelemetryClient, sink CapabilitySink, recorder Recorder, interval time.Duration) *Monitor {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Monitor{
		session:  session,
		registry: registry,
		client:   client,
		sink:     sink,
		recorder: recorder,
		interval: interval,
	}
}

// Session returns the device session. Callers must not mutate it.
func (m *Monitor) Session() *Session {
	return m.session
}

// Run executes the periodic loop until the context is cancelled. An
// in-flight cycle is allowed to complete; no partial snapshot is ever
// published.
func (m *Monitor) Run(ctx context.Context) {
	log.Info("Starting monitor for device %s (interval %s, adapter %s)",
		m.session.DeviceID, m.interval, m.session.AdapterID())

	// Initial pass: expose capabilities for the provisional adapter,
	// then poll immediately rather than waiting a full interval.
	m.mu.Lock()
	m.applyCapabilities()
	m.mu.Unlock()
	m.tick(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping monitor for device %s", m.session.DeviceID)
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick runs the presence sub-check and one reconciliation cycle. The
// presence check is independent: its failure never blocks or aborts
// telemetry reconciliation.
func (m *Monitor) tick(ctx context.Context) {
	m.checkPresence(ctx)

	if !m.mu.TryLock() {
		// Previous cycle still in flight; skip this tick.
		log.Debug("Device %s: previous cycle still running, skipping tick", m.session.DeviceID)
		return
	}
	defer m.mu.Unlock()

	if err := m.runCycle(ctx); err != nil {
		log.Debug("Device %s: cycle aborted: %v", m.session.DeviceID, err)
	}
}

// Reconcile runs one cycle on demand, serialized against the timer.
func (m *Monitor) Reconcile(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runCycle(ctx)
}

// runCycle is one fetch → normalize → derive → publish pass. The mutex
// must be held. Any error aborts the cycle with all external state left
// at last known good; the next tick retries.
func (m *Monitor) runCycle(ctx context.Context) error {
	s := m.session

	raw, err := m.client.FetchLatest(ctx, s.DeviceID, s.Credentials())
	if err != nil {
		m.reportCycleFailure(err)
		return err
	}

	// Telemetry shape is the ground truth for the model; product-name
	// metadata may be stale or absent. Re-select every cycle and switch
	// on any id mismatch.
	if bySig := m.registry.SelectBySignature(raw); bySig != nil && bySig.ID != s.AdapterID() {
		prev := s.AdapterID()
		log.Info("Device %s: switching adapter by payload signature: %s -> %s",
			s.DeviceID, prev, bySig.ID)
		m.recorder.LogEvent("engine", "adapter_switch", prev+" -> "+bySig.ID)
		s.setAdapterID(bySig.ID)
		m.applyCapabilities()
	}

	adapter := m.activeAdapter()
	snap := adapter.Normalize(raw)
	m.publish(adapter, snap)
	return nil
}

// activeAdapter resolves the session's adapter id, falling back to the
// registry default if the id somehow went stale.
func (m *Monitor) activeAdapter() *spa.Adapter {
	if a := m.registry.ByID(m.session.AdapterID()); a != nil {
		return a
	}
	return m.registry.Default()
}

// publish pushes one normalized snapshot and its derived values to the
// sink, runs edge detection, and persists the result.
func (m *Monitor) publish(adapter *spa.Adapter, snap spa.Snapshot) {
	s := m.session
	did := s.DeviceID

	// Derived bounds follow the unit the device reports in.
	m.sink.SetBounds(did, CapTargetTemperature, spa.TempBounds(snap.Unit))

	if snap.HeatOn && snap.TempSet != nil {
		m.sink.SetValue(did, CapTargetTemperature, *snap.TempSet)
	} else {
		// Heating off means there is no active setpoint; clear the value
		// rather than leaving the last one standing.
		m.sink.SetValue(did, CapTargetTemperature, nil)
	}
	if snap.TempNow != nil {
		m.sink.SetValue(did, CapMeasureTemperature, *snap.TempNow)
		m.sink.SetValue(did, CapTempNow, *snap.TempNow)
	}
	m.sink.SetValue(did, CapThermostatMode, spa.ThermostatMode(snap))
	m.sink.SetValue(did, CapOnOff, snap.PowerOn)

	// Keep the previous value before overwriting the capability; edge
	// detection consumes it below.
	prev := s.prevFilterOn
	m.sink.SetValue(did, CapPumpOnOff, snap.FilterOn)

	if prev != nil && *prev != snap.FilterOn {
		m.raiseEvent(EventFilterChanged)
		if snap.FilterOn {
			m.raiseEvent(EventFilterOn)
		} else {
			m.raiseEvent(EventFilterOff)
		}
	}

	// Persist for the next cycle only after edge detection has run.
	filterOn := snap.FilterOn
	s.prevFilterOn = &filterOn

	m.sink.SetValue(did, CapMsgOnOff, snap.WaveOn)
	m.sink.SetValue(did, CapHeatTempReach, snap.HeatReached)
	m.sink.SetValue(did, CapPumpState, snap.FilterOn)
	m.sink.SetValue(did, CapHeatState, snap.HeatOn)

	if adapter.Features.WaveLevels {
		m.sink.SetValue(did, CapMassageMode, string(snap.WaveLevel))
	}
	if adapter.Features.Jet {
		m.sink.SetValue(did, CapJetOnOff, snap.JetOn)
	}

	settings := s.Settings()
	watts := spa.PowerEstimate(snap, settings.HeaterWatts, settings.PumpWatts)
	m.sink.SetValue(did, CapMeasurePower, watts)

	m.sink.SetValue(did, CapAlarm, snap.HasErrors())
	if snap.HasErrors() {
		m.sink.SetAlarmMessage(did, "System error(s): "+strings.Join(snap.Errors, ", "))
	} else {
		m.sink.SetAlarmMessage(did, "")
	}

	if err := m.recorder.SaveSnapshot(did, adapter.ID, snap, watts); err != nil {
		log.Error("Device %s: failed to persist snapshot: %v", did, err)
	}
}

// raiseEvent fires one edge event. Delivery failure is logged and does
// not prevent the remaining events of the cycle.
func (m *Monitor) raiseEvent(event string) {
	if err := m.sink.RaiseEvent(m.session.DeviceID, event); err != nil {
		log.Error("Device %s: failed to raise %s: %v", m.session.DeviceID, event, err)
	}
}

// applyCapabilities re-evaluates which capabilities the bound model
// exposes. Called at startup, on adapter switch, and on settings
// change. The mutex must be held.
func (m *Monitor) applyCapabilities() {
	s := m.session
	did := s.DeviceID
	features := m.activeAdapter().Features
	settings := s.Settings()

	m.sink.EnableCapability(did, CapOnOff, settings.PowerControl)
	m.sink.EnableCapability(did, CapPumpOnOff, settings.FilterControl)

	for _, cap := range []string{
		CapHeatTempReach, CapPumpState, CapHeatState, CapTempNow,
		CapMeasurePower, CapMeasureTemperature, CapTargetTemperature,
		CapThermostatMode, CapAlarm,
	} {
		m.sink.EnableCapability(did, cap, true)
	}

	// The legacy bubble toggle only applies to models without massage
	// levels; leveled models use massage_mode instead.
	m.sink.EnableCapability(did, CapMsgOnOff, !features.WaveLevels && settings.WaveControl)
	m.sink.EnableCapability(did, CapMassageMode, features.WaveLevels)
	m.sink.EnableCapability(did, CapJetOnOff, features.Jet)
}

// checkPresence flips the availability flag from the bindings endpoint.
func (m *Monitor) checkPresence(ctx context.Context) {
	s := m.session
	online, err := m.client.FetchPresence(ctx, s.DeviceID, s.Credentials())
	if err != nil {
		if errors.Is(err, gizwits.ErrNoCredentials) {
			return
		}
		log.Debug("Device %s: presence check failed: %v", s.DeviceID, err)
		return
	}
	m.presenceMu.Lock()
	m.online = &online
	m.presenceMu.Unlock()
	m.sink.SetAvailable(s.DeviceID, online)
}

// Online returns the last observed presence value; ok is false until
// the first successful presence check.
func (m *Monitor) Online() (online, ok bool) {
	m.presenceMu.Lock()
	defer m.presenceMu.Unlock()
	if m.online == nil {
		return false, false
	}
	return *m.online, true
}

// SendCommand encodes and sends one control command under the currently
// bound adapter, then reconciles immediately so the platform sees the
// effect. Serialized against the reconciliation loop.
func (m *Monitor) SendCommand(ctx context.Context, cmd spa.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session
	adapter := m.activeAdapter()

	payload := adapter.Encode(cmd)
	if payload.IsNoop() {
		// Unsupported on this model; degrade rather than fail.
		log.Warn("Device %s: command %s not supported by adapter %s", s.DeviceID, cmd.Kind, adapter.ID)
		return nil
	}

	if err := m.client.SendControl(ctx, s.DeviceID, payload, s.Credentials()); err != nil {
		m.recorder.LogEvent("gizwits", "command_error", string(cmd.Kind)+": "+err.Error())
		return err
	}
	m.recorder.LogEvent("user", "command", string(cmd.Kind))

	// Follow-up reconcile; the command itself already succeeded, so a
	// failed refresh only costs freshness until the next tick.
	if err := m.runCycle(ctx); err != nil {
		log.Debug("Device %s: post-command refresh failed: %v", s.DeviceID, err)
	}
	return nil
}

// UpdateCredentials replaces the session credentials.
func (m *Monitor) UpdateCredentials(creds gizwits.Credentials) {
	m.session.setCredentials(creds)
}

// UpdateSettings replaces the device settings and re-evaluates the
// exposed capabilities.
func (m *Monitor) UpdateSettings(settings DeviceSettings) {
	m.session.setSettings(settings)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyCapabilities()
}

// reportCycleFailure logs and records a recoverable cycle failure.
// Configuration failures are called out separately so re-provisioning
// is the obvious fix.
func (m *Monitor) reportCycleFailure(err error) {
	did := m.session.DeviceID
	switch {
	case errors.Is(err, gizwits.ErrNoCredentials):
		log.Error("Device %s: no credentials; re-provision the device", did)
		m.recorder.LogEvent("engine", "config_error", err.Error())
	case errors.Is(err, gizwits.ErrMalformedResponse):
		log.Error("Device %s: malformed telemetry response: %v", did, err)
		m.recorder.LogEvent("gizwits", "cycle_error", err.Error())
	default:
		log.Error("Device %s: telemetry fetch failed: %v", did, err)
		m.recorder.LogEvent("gizwits", "cycle_error", err.Error())
	}
}
