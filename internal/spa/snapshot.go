package spa

// Unit is the temperature unit a model reports in.
type Unit string

const (
	UnitCelsius    Unit = "C"
	UnitFahrenheit Unit = "F"
)

// WaveLevel is the normalized massage intensity.
type WaveLevel string

const (
	WaveOff  WaveLevel = "off"
	WaveLow  WaveLevel = "low"
	WaveHigh WaveLevel = "high"
)

// Snapshot is the canonical, model-independent device state derived
// from one RawTelemetry by the active codec. Temperatures are nil when
// the raw payload did not carry a usable numeric value; every other
// field defaults to its zero/off value rather than failing.
type Snapshot struct {
	PowerOn  bool `json:"power_on"`
	HeatOn   bool `json:"heat_on"`
	FilterOn bool `json:"filter_on"`
	WaveOn   bool `json:"wave_on"`

	TempNow *float64 `json:"temp_now,omitempty"`
	TempSet *float64 `json:"temp_set,omitempty"`
	Unit    Unit     `json:"unit"`

	HeatReached bool `json:"heat_reached"`

	// Hydrojet-specific extras; WaveOff / false on models without them.
	WaveLevel WaveLevel `json:"wave_level"`
	JetOn     bool      `json:"jet_on"`

	// Errors holds the full current set of normalized error codes in
	// ascending numeric order. Empty when healthy, never accumulated
	// across cycles.
	Errors []string `json:"errors,omitempty"`
}

// HasErrors reports whether any error flag is active.
func (s Snapshot) HasErrors() bool {
	return len(s.Errors) > 0
}
