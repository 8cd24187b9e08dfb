package spa

// CommandKind identifies one canonical control operation.
type CommandKind string

const (
	KindPower     CommandKind = "power"
	KindHeat      CommandKind = "heat"
	KindFilter    CommandKind = "filter"
	KindWave      CommandKind = "wave"
	KindWaveLevel CommandKind = "waveLevel"
	KindJet       CommandKind = "jet"
	KindTempSet   CommandKind = "tempSet"
)

// Command is a canonical control request. The value field that applies
// depends on Kind: On for toggles, Temp for tempSet, Level for
// waveLevel. Commands are transient and exist only for one control call.
type Command struct {
	Kind  CommandKind
	On    bool
	Temp  float64
	Level WaveLevel
}

// Toggle builds a boolean command for one of the toggle kinds.
func Toggle(kind CommandKind, on bool) Command {
	return Command{Kind: kind, On: on}
}

// SetTemp builds a target-temperature command in the model's native unit.
func SetTemp(value float64) Command {
	return Command{Kind: KindTempSet, Temp: value}
}

// SetWaveLevel builds a massage-intensity command.
func SetWaveLevel(level WaveLevel) Command {
	return Command{Kind: KindWaveLevel, Level: level}
}

// Payload is the vendor-specific attribute map produced by encoding one
// Command. It contains exactly the attributes for that single change
// and is sent verbatim to the control endpoint. All Gizwits attribute
// values are numeric on the wire.
type Payload map[string]float64

// IsNoop reports whether encoding produced no attributes, which happens
// when the active model does not support the command kind.
func (p Payload) IsNoop() bool {
	return len(p) == 0
}
