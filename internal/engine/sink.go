package engine

import "github.com/mlindstad/spa-bridge/internal/spa"

// CapabilitySink receives canonical values, bounds, events, and
// availability for a device. The engine calls it idempotently every
// cycle; the sink is responsible for diffing and persisting. Only
// RaiseEvent reports failure, because event delivery order matters to
// automations; everything else is fire and forget.
type CapabilitySink interface {
	SetValue(deviceID, capability string, value interface{})
	SetBounds(deviceID, capability string, bounds spa.Bounds)
	EnableCapability(deviceID, capability string, enabled bool)
	RaiseEvent(deviceID, event string) error

	// SetAlarmMessage sets the human-readable alarm text; an empty
	// string clears any previously set message.
	SetAlarmMessage(deviceID, text string)

	SetAvailable(deviceID string, online bool)
}

// Fanout delivers every sink call to each of its children, in order.
type Fanout []CapabilitySink

// NewFanout builds a fanout sink.
func NewFanout(sinks ...CapabilitySink) Fanout {
	return Fanout(sinks)
}

func (f Fanout) SetValue(deviceID, capability string, value interface{}) {
	for _, s := range f {
		s.SetValue(deviceID, capability, value)
	}
}

func (f Fanout) SetBounds(deviceID, capability string, bounds spa.Bounds) {
	for _, s := range f {
		s.SetBounds(deviceID, capability, bounds)
	}
}

func (f Fanout) EnableCapability(deviceID, capability string, enabled bool) {
	for _, s := range f {
		s.EnableCapability(deviceID, capability, enabled)
	}
}

func (f Fanout) RaiseEvent(deviceID, event string) error {
	// Deliver to every child even when one fails; report the first
	// failure.
	var firstErr error
	for _, s := range f {
		if err := s.RaiseEvent(deviceID, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f Fanout) SetAlarmMessage(deviceID, text string) {
	for _, s := range f {
		s.SetAlarmMessage(deviceID, text)
	}
}

func (f Fanout) SetAvailable(deviceID string, online bool) {
	for _, s := range f {
		s.SetAvailable(deviceID, online)
	}
}
