package spa

import "fmt"

// Hydrojet wave attribute codes for the three massage intensities.
const (
	hydrojetWaveOffCode  = 0
	hydrojetWaveLowCode  = 42
	hydrojetWaveHighCode = 100
)

// hydrojetFilterOn is the value the Hydrojet reports and accepts for an
// active filter pump; the attribute domain is 0/2, not 0/1.
const hydrojetFilterOn = 2

// hydrojetErrorFlags is the highest numbered ENN attribute the
// Hydrojet Pro reports.
const hydrojetErrorFlags = 32

// HydrojetCodec translates the Hydrojet Pro attribute dialect. Its
// domains differ from the Airjet in several ways: heat reports
// intermediate states >= 1 while active, filter is 0/2, massage is a
// three-level wave code, and there is no explicit heat-reached flag.
type HydrojetCodec struct{}

// NewHydrojetAdapter returns the adapter descriptor for the
// Hydrojet Pro model. Hydrojet payloads are recognized by the
// Tnow / Tset attributes.
func NewHydrojetAdapter() *Adapter {
	return &Adapter{
		ID:           "Hydrojet_Pro",
		ProductNames: []string{"Hydrojet_Pro"},
		Matches: func(raw RawTelemetry) bool {
			return raw.Has("Tnow") || raw.Has("Tset")
		},
		Priority: 10,
		Features: Features{WaveLevels: true, Jet: true},
		Codec:    HydrojetCodec{},
	}
}

// Normalize implements Codec.
func (HydrojetCodec) Normalize(raw RawTelemetry) Snapshot {
	s := Snapshot{
		Unit:      UnitCelsius,
		WaveLevel: WaveOff,
	}

	if v, ok := raw.Int("power"); ok {
		s.PowerOn = v == 1
	}
	// Heat reports 1 when commanded on and may then climb to 3, 4 and
	// so on while active. Any value >= 1 means ON.
	if v, ok := raw.Int("heat"); ok {
		s.HeatOn = v >= 1
	}
	if v, ok := raw.Int("filter"); ok {
		s.FilterOn = v == hydrojetFilterOn
	}

	if v, ok := raw.Int("wave"); ok {
		// Legacy 0/1 toggle view kept alongside the level enum.
		s.WaveOn = v == 1
		s.WaveLevel = waveLevelFromCode(v)
	}
	if v, ok := raw.Int("jet"); ok {
		s.JetOn = v == 1
	}

	if v, ok := raw.Float("Tnow"); ok {
		t := v
		s.TempNow = &t
	}
	if v, ok := raw.Float("Tset"); ok {
		t := v
		s.TempSet = &t
	}

	// Tunit is numeric: 1 means Celsius. Absent defaults to Celsius.
	if v, ok := raw.Int("Tunit"); ok && v != 1 {
		s.Unit = UnitFahrenheit
	}

	// No explicit heat-reached flag on this model; infer it from the
	// temperatures, defaulting to false when either is missing.
	if s.TempNow != nil && s.TempSet != nil {
		s.HeatReached = *s.TempNow >= *s.TempSet
	}

	s.Errors = hydrojetErrors(raw)
	return s
}

// waveLevelFromCode maps the wave attribute to the level enum.
// Unrecognized codes resolve to off.
func waveLevelFromCode(code int) WaveLevel {
	switch code {
	case hydrojetWaveHighCode:
		return WaveHigh
	case hydrojetWaveLowCode:
		return WaveLow
	default:
		return WaveOff
	}
}

// hydrojetErrors scans E01..E32 and reports active flags in ascending
// order. Codes on this model are already in their normalized form.
func hydrojetErrors(raw RawTelemetry) []string {
	var codes []string
	for i := 1; i <= hydrojetErrorFlags; i++ {
		k := fmt.Sprintf("E%02d", i)
		if v, ok := raw.Int(k); ok && v == 1 {
			codes = append(codes, k)
		}
	}
	return codes
}

// Encode implements Codec.
func (HydrojetCodec) Encode(cmd Command) Payload {
	switch cmd.Kind {
	case KindPower:
		return Payload{"power": boolAttr(cmd.On)}
	case KindHeat:
		// Write 1 to turn heat on. Status may later report 3/4/etc.
		return Payload{"heat": boolAttr(cmd.On)}
	case KindFilter:
		if cmd.On {
			return Payload{"filter": hydrojetFilterOn}
		}
		return Payload{"filter": 0}
	case KindWave:
		return Payload{"wave": boolAttr(cmd.On)}
	case KindWaveLevel:
		return Payload{"wave": waveCodeFromLevel(cmd.Level)}
	case KindJet:
		return Payload{"jet": boolAttr(cmd.On)}
	case KindTempSet:
		return Payload{"Tset": cmd.Temp}
	default:
		return Payload{}
	}
}

// waveCodeFromLevel maps the level enum to the wave attribute code.
// Unrecognized levels fall back to the off code.
func waveCodeFromLevel(level WaveLevel) float64 {
	switch level {
	case WaveHigh:
		return hydrojetWaveHighCode
	case WaveLow:
		return hydrojetWaveLowCode
	default:
		return hydrojetWaveOffCode
	}
}
