package engine

import (
	"sync"

	"github.com/mlindstad/spa-bridge/internal/gizwits"
	"github.com/mlindstad/spa-bridge/internal/spa"
)

// DeviceSettings are the per-device tunables that shape capability
// exposure and the power estimate.
type DeviceSettings struct {
	PowerControl  bool    `json:"power_control"`
	FilterControl bool    `json:"filter_control"`
	WaveControl   bool    `json:"wave_control"`
	HeaterWatts   float64 `json:"heater_watts"`
	PumpWatts     float64 `json:"pump_watts"`
}

// Session is the mutable per-device state the engine retains across
// reconciliation cycles: the bound adapter, the credentials, and the
// previous filter value for edge detection. Credentials, settings, and
// the adapter id carry their own lock because the presence check and
// the API read them while a cycle may be mid-flight; prevFilterOn is
// only ever touched under the owning monitor's cycle mutex.
type Session struct {
	DeviceID    string
	ProductName string

	mu        sync.RWMutex
	creds     gizwits.Credentials
	settings  DeviceSettings
	adapterID string

	// prevFilterOn is nil until the first successful cycle completes;
	// edge detection is skipped while no prior value exists.
	prevFilterOn *bool
}

// NewSession creates the session for a device, binding the initial
// adapter by product name with the registry default as fallback. The
// binding is provisional: the first telemetry payload may re-select.
func NewSession(deviceID, productName string, creds gizwits.Credentials, settings DeviceSettings, registry *spa.Registry) *Session {
	adapter := registry.SelectByName(productName)
	if adapter == nil {
		adapter = registry.Default()
	}
	return &Session{
		DeviceID:    deviceID,
		ProductName: productName,
		creds:       creds,
		settings:    settings,
		adapterID:   adapter.ID,
	}
}

// AdapterID returns the currently bound adapter id.
func (s *Session) AdapterID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adapterID
}

func (s *Session) setAdapterID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adapterID = id
}

// Credentials returns a copy of the device credentials.
func (s *Session) Credentials() gizwits.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

func (s *Session) setCredentials(creds gizwits.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
}

// Settings returns a copy of the device settings.
func (s *Session) Settings() DeviceSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *Session) setSettings(settings DeviceSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}
