package spa

// Bounds describes the valid target-temperature range for a display
// unit, published to the capability sink every cycle.
type Bounds struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Step     float64 `json:"step"`
	Decimals int     `json:"decimals"`
	Unit     Unit    `json:"unit"`
}

// TempBounds returns the target-temperature bounds for the unit the
// device currently reports in.
func TempBounds(u Unit) Bounds {
	if u == UnitFahrenheit {
		return Bounds{Min: 68, Max: 104, Step: 1, Decimals: 0, Unit: UnitFahrenheit}
	}
	return Bounds{Min: 20, Max: 40, Step: 1, Decimals: 0, Unit: UnitCelsius}
}

// PowerEstimate is the instantaneous power draw estimate: the heater
// wattage counts while heating is on and the target is not yet
// reached, plus the pump wattage while filtration runs. A deliberately
// simple additive model, not a physical simulation.
func PowerEstimate(s Snapshot, heaterWatts, pumpWatts float64) float64 {
	var w float64
	if s.HeatOn && !s.HeatReached {
		w += heaterWatts
	}
	if s.FilterOn {
		w += pumpWatts
	}
	return w
}

// ThermostatMode derives the canonical thermostat mode string from the
// snapshot: "heat" while heating is on, otherwise "off".
func ThermostatMode(s Snapshot) string {
	if s.HeatOn {
		return "heat"
	}
	return "off"
}
