package spa

import (
	"reflect"
	"testing"
)

func TestAirjetNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  RawTelemetry
		want Snapshot
	}{
		{
			name: "all on, celsius",
			raw: RawTelemetry{
				"power": 1, "heat_power": 1, "filter_power": 1, "wave_power": 1,
				"temp_now": 36.0, "temp_set": 38.0,
				"heat_temp_reach": 0,
			},
			want: Snapshot{
				PowerOn: true, HeatOn: true, FilterOn: true, WaveOn: true,
				TempNow: f(36), TempSet: f(38),
				Unit: UnitCelsius, WaveLevel: WaveOff,
			},
		},
		{
			name: "fahrenheit unit string with error flag",
			raw: RawTelemetry{
				"power": 0, "temp_now": 30.0, "temp_set": 30.0,
				"temp_set_unit": "华氏",
				"system_err3":   1,
			},
			want: Snapshot{
				TempNow: f(30), TempSet: f(30),
				Unit: UnitFahrenheit, WaveLevel: WaveOff,
				Errors: []string{"E03"},
			},
		},
		{
			name: "unknown unit string defaults to celsius",
			raw:  RawTelemetry{"temp_set_unit": "摄氏"},
			want: Snapshot{Unit: UnitCelsius, WaveLevel: WaveOff},
		},
		{
			name: "heat reached flag",
			raw:  RawTelemetry{"heat_power": 1, "heat_temp_reach": 1},
			want: Snapshot{HeatOn: true, HeatReached: true, Unit: UnitCelsius, WaveLevel: WaveOff},
		},
		{
			name: "empty payload normalizes to safe defaults",
			raw:  RawTelemetry{},
			want: Snapshot{Unit: UnitCelsius, WaveLevel: WaveOff},
		},
		{
			name: "non-numeric flags are ignored",
			raw:  RawTelemetry{"power": "on", "temp_now": "warm"},
			want: Snapshot{Unit: UnitCelsius, WaveLevel: WaveOff},
		},
		{
			name: "multiple error flags in ascending order",
			raw: RawTelemetry{
				"system_err7": 1, "system_err1": 1, "system_err4": 1,
				"system_err2": 0,
			},
			want: Snapshot{
				Unit: UnitCelsius, WaveLevel: WaveOff,
				Errors: []string{"E01", "E04", "E07"},
			},
		},
	}

	codec := AirjetCodec{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := codec.Normalize(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAirjetEncode(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want Payload
	}{
		{"power on", Toggle(KindPower, true), Payload{"power": 1}},
		{"power off", Toggle(KindPower, false), Payload{"power": 0}},
		{"heat on", Toggle(KindHeat, true), Payload{"heat_power": 1}},
		{"filter off", Toggle(KindFilter, false), Payload{"filter_power": 0}},
		{"wave on", Toggle(KindWave, true), Payload{"wave_power": 1}},
		{"temp set", SetTemp(38), Payload{"temp_set": 38}},
		{"wave level unsupported", SetWaveLevel(WaveHigh), Payload{}},
		{"jet unsupported", Toggle(KindJet, true), Payload{}},
	}

	codec := AirjetCodec{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := codec.Encode(tt.cmd)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Encode(%v) = %v, want %v", tt.cmd, got, tt.want)
			}
		})
	}
}

// f returns a pointer to a temperature literal.
func f(v float64) *float64 {
	return &v
}
