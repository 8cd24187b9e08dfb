package spa

import "testing"

func TestTempBounds(t *testing.T) {
	tests := []struct {
		name string
		unit Unit
		want Bounds
	}{
		{"celsius", UnitCelsius, Bounds{Min: 20, Max: 40, Step: 1, Decimals: 0, Unit: UnitCelsius}},
		{"fahrenheit", UnitFahrenheit, Bounds{Min: 68, Max: 104, Step: 1, Decimals: 0, Unit: UnitFahrenheit}},
		{"unknown defaults to celsius range", Unit(""), Bounds{Min: 20, Max: 40, Step: 1, Decimals: 0, Unit: UnitCelsius}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TempBounds(tt.unit); got != tt.want {
				t.Errorf("TempBounds(%q) = %+v, want %+v", tt.unit, got, tt.want)
			}
		})
	}
}

func TestPowerEstimate(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want float64
	}{
		{"idle", Snapshot{}, 0},
		{"heating only", Snapshot{HeatOn: true}, 2000},
		{"heating but target reached", Snapshot{HeatOn: true, HeatReached: true}, 0},
		{"filtering only", Snapshot{FilterOn: true}, 60},
		{"heating and filtering", Snapshot{HeatOn: true, FilterOn: true}, 2060},
		{"reached plus filtering", Snapshot{HeatOn: true, HeatReached: true, FilterOn: true}, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PowerEstimate(tt.snap, 2000, 60); got != tt.want {
				t.Errorf("PowerEstimate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestThermostatMode(t *testing.T) {
	if got := ThermostatMode(Snapshot{HeatOn: true}); got != "heat" {
		t.Errorf("ThermostatMode(heat on) = %q, want heat", got)
	}
	if got := ThermostatMode(Snapshot{}); got != "off" {
		t.Errorf("ThermostatMode(heat off) = %q, want off", got)
	}
}
