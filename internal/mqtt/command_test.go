package mqtt

import (
	"testing"

	"github.com/mlindstad/spa-bridge/internal/spa"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name       string
		capability string
		payload    string
		want       spa.Command
		wantErr    bool
	}{
		{"power on", "onoff", "true", spa.Toggle(spa.KindPower, true), false},
		{"power off numeric", "onoff", "0", spa.Toggle(spa.KindPower, false), false},
		{"power on word", "onoff", "ON", spa.Toggle(spa.KindPower, true), false},
		{"filter on", "pump_onoff", "1", spa.Toggle(spa.KindFilter, true), false},
		{"wave off", "msg_onoff", "false", spa.Toggle(spa.KindWave, false), false},
		{"jet on", "jet_onoff", "on", spa.Toggle(spa.KindJet, true), false},
		{"heat mode", "thermostat_mode", "heat", spa.Toggle(spa.KindHeat, true), false},
		{"heat off", "thermostat_mode", "off", spa.Toggle(spa.KindHeat, false), false},
		{"bad mode", "thermostat_mode", "cool", spa.Command{}, true},
		{"massage high", "massage_mode", "high", spa.SetWaveLevel(spa.WaveHigh), false},
		{"massage off", "massage_mode", "off", spa.SetWaveLevel(spa.WaveOff), false},
		{"bad massage", "massage_mode", "turbo", spa.Command{}, true},
		{"temperature", "target_temperature", "38", spa.SetTemp(38), false},
		{"temperature decimal", "target_temperature", "37.5", spa.SetTemp(37.5), false},
		{"bad temperature", "target_temperature", "warm", spa.Command{}, true},
		{"bad boolean", "onoff", "maybe", spa.Command{}, true},
		{"read-only capability", "temp_now", "30", spa.Command{}, true},
		{"whitespace tolerated", "onoff", " true\n", spa.Toggle(spa.KindPower, true), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.capability, tt.payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCommand(%q, %q) error = %v, wantErr %v", tt.capability, tt.payload, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCommand(%q, %q) = %+v, want %+v", tt.capability, tt.payload, got, tt.want)
			}
		})
	}
}

func TestSplitSetTopic(t *testing.T) {
	tests := []struct {
		topic      string
		deviceID   string
		capability string
		ok         bool
	}{
		{"spa/abc123/onoff/set", "abc123", "onoff", true},
		{"spa/abc123/target_temperature/set", "abc123", "target_temperature", true},
		{"spa/abc123/onoff", "", "", false},
		{"spa/abc123/onoff/get", "", "", false},
		{"other/abc123/onoff/set", "", "", false},
		{"spa//onoff/set", "", "", false},
		{"spa/abc123//set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			did, cap, ok := splitSetTopic("spa", tt.topic)
			if did != tt.deviceID || cap != tt.capability || ok != tt.ok {
				t.Errorf("splitSetTopic(spa, %q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.topic, did, cap, ok, tt.deviceID, tt.capability, tt.ok)
			}
		})
	}
}

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"bool", true, "true"},
		{"float", 37.5, "37.5"},
		{"whole float", 2060.0, "2060"},
		{"int", 3, "3"},
		{"string", "heat", "heat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encodeValue(tt.value); got != tt.want {
				t.Errorf("encodeValue(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
