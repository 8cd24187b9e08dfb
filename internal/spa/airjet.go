package spa

import "fmt"

// airjetUnitFahrenheit is the literal string the Airjet firmware
// reports for Fahrenheit mode.
const airjetUnitFahrenheit = "华氏"

// airjetErrorFlags is the highest numbered system_errN attribute the
// Airjet reports.
const airjetErrorFlags = 9

// AirjetCodec translates the Airjet attribute dialect. All toggles are
// plain 0/1, heat-reached is an explicit flag, and errors arrive as
// system_err1..system_err9 bit attributes.
type AirjetCodec struct{}

// NewAirjetAdapter returns the adapter descriptor for the Airjet model.
// Airjet payloads are recognized by the temp_now / temp_set attributes.
func NewAirjetAdapter() *Adapter {
	return &Adapter{
		ID:           "Airjet",
		ProductNames: []string{"Airjet"},
		Matches: func(raw RawTelemetry) bool {
			return raw.Has("temp_now") || raw.Has("temp_set")
		},
		Priority: 10,
		Codec:    AirjetCodec{},
	}
}

// Normalize implements Codec.
func (AirjetCodec) Normalize(raw RawTelemetry) Snapshot {
	s := Snapshot{
		Unit:      UnitCelsius,
		WaveLevel: WaveOff,
	}

	if v, ok := raw.Int("power"); ok {
		s.PowerOn = v == 1
	}
	if v, ok := raw.Int("heat_power"); ok {
		s.HeatOn = v == 1
	}
	if v, ok := raw.Int("filter_power"); ok {
		s.FilterOn = v == 1
	}
	if v, ok := raw.Int("wave_power"); ok {
		s.WaveOn = v == 1
	}

	if v, ok := raw.Float("temp_now"); ok {
		t := v
		s.TempNow = &t
	}
	if v, ok := raw.Float("temp_set"); ok {
		t := v
		s.TempSet = &t
	}

	if u, ok := raw.String("temp_set_unit"); ok && u == airjetUnitFahrenheit {
		s.Unit = UnitFahrenheit
	}

	if v, ok := raw.Int("heat_temp_reach"); ok {
		s.HeatReached = v == 1
	}

	s.Errors = airjetErrors(raw)
	return s
}

// airjetErrors scans system_err1..system_err9 and reports active flags
// as E01..E09, in ascending order.
func airjetErrors(raw RawTelemetry) []string {
	var codes []string
	for i := 1; i <= airjetErrorFlags; i++ {
		if v, ok := raw.Int(fmt.Sprintf("system_err%d", i)); ok && v == 1 {
			codes = append(codes, fmt.Sprintf("E0%d", i))
		}
	}
	return codes
}

// Encode implements Codec. The Airjet has no massage levels and no
// hydrojet, so those kinds degrade to a no-op payload.
func (AirjetCodec) Encode(cmd Command) Payload {
	switch cmd.Kind {
	case KindPower:
		return Payload{"power": boolAttr(cmd.On)}
	case KindHeat:
		return Payload{"heat_power": boolAttr(cmd.On)}
	case KindFilter:
		return Payload{"filter_power": boolAttr(cmd.On)}
	case KindWave:
		return Payload{"wave_power": boolAttr(cmd.On)}
	case KindTempSet:
		return Payload{"temp_set": cmd.Temp}
	default:
		return Payload{}
	}
}

func boolAttr(on bool) float64 {
	if on {
		return 1
	}
	return 0
}
