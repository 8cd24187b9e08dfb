package web

import "github.com/mlindstad/spa-bridge/internal/spa"

// wsMessage is the envelope pushed to WebSocket clients.
type wsMessage struct {
	Type       string      `json:"type"`
	DID        string      `json:"did"`
	Capability string      `json:"capability,omitempty"`
	Value      interface{} `json:"value,omitempty"`
}

// BroadcastSink pushes capability updates to connected WebSocket
// clients so the frontend tracks device state live.
type BroadcastSink struct {
	hub *Hub
}

// NewBroadcastSink builds a sink over the server's hub.
func NewBroadcastSink(hub *Hub) *BroadcastSink {
	return &BroadcastSink{hub: hub}
}

func (b *BroadcastSink) SetValue(deviceID, capability string, value interface{}) {
	b.hub.Broadcast(wsMessage{Type: "value", DID: deviceID, Capability: capability, Value: value})
}

func (b *BroadcastSink) SetBounds(deviceID, capability string, bounds spa.Bounds) {
	b.hub.Broadcast(wsMessage{Type: "bounds", DID: deviceID, Capability: capability, Value: bounds})
}

func (b *BroadcastSink) EnableCapability(deviceID, capability string, enabled bool) {
	b.hub.Broadcast(wsMessage{Type: "capability", DID: deviceID, Capability: capability, Value: enabled})
}

func (b *BroadcastSink) RaiseEvent(deviceID, event string) error {
	b.hub.Broadcast(wsMessage{Type: "event", DID: deviceID, Value: event})
	return nil
}

func (b *BroadcastSink) SetAlarmMessage(deviceID, text string) {
	b.hub.Broadcast(wsMessage{Type: "alarm", DID: deviceID, Value: text})
}

func (b *BroadcastSink) SetAvailable(deviceID string, online bool) {
	b.hub.Broadcast(wsMessage{Type: "availability", DID: deviceID, Value: online})
}
