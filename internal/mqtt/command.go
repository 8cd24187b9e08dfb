package mqtt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mlindstad/spa-bridge/internal/spa"
)

// splitSetTopic extracts the device id and capability from a set topic
// under the prefix: <prefix>/<did>/<capability>/set.
func splitSetTopic(prefix, topic string) (deviceID, capability string, ok bool) {
	rest, found := strings.CutPrefix(topic, prefix+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "set" || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// ParseCommand decodes a set-topic payload into a canonical command.
// The capability name selects the command kind; the payload carries the
// value.
func ParseCommand(capability, payload string) (spa.Command, error) {
	payload = strings.TrimSpace(payload)

	switch capability {
	case "onoff":
		return toggle(spa.KindPower, payload)
	case "pump_onoff":
		return toggle(spa.KindFilter, payload)
	case "msg_onoff":
		return toggle(spa.KindWave, payload)
	case "jet_onoff":
		return toggle(spa.KindJet, payload)
	case "thermostat_mode":
		switch payload {
		case "heat":
			return spa.Toggle(spa.KindHeat, true), nil
		case "off":
			return spa.Toggle(spa.KindHeat, false), nil
		}
		return spa.Command{}, fmt.Errorf("unknown thermostat mode %q", payload)
	case "massage_mode":
		switch spa.WaveLevel(payload) {
		case spa.WaveOff, spa.WaveLow, spa.WaveHigh:
			return spa.SetWaveLevel(spa.WaveLevel(payload)), nil
		}
		return spa.Command{}, fmt.Errorf("unknown massage level %q", payload)
	case "target_temperature":
		v, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return spa.Command{}, fmt.Errorf("bad temperature %q: %w", payload, err)
		}
		return spa.SetTemp(v), nil
	}
	return spa.Command{}, fmt.Errorf("capability %q is not settable", capability)
}

func toggle(kind spa.CommandKind, payload string) (spa.Command, error) {
	on, err := parseBool(payload)
	if err != nil {
		return spa.Command{}, err
	}
	return spa.Toggle(kind, on), nil
}

func parseBool(payload string) (bool, error) {
	switch strings.ToLower(payload) {
	case "true", "1", "on":
		return true, nil
	case "false", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("bad boolean payload %q", payload)
}
