package storage

import (
	"encoding/json"
	"time"
)

// Device is a provisioned spa appliance. The vendor token is stored
// encrypted; it never appears in API responses.
type Device struct {
	DID            string    `json:"did"`
	ProductName    string    `json:"product_name"`
	DevAlias       string    `json:"dev_alias"`
	BaseURL        string    `json:"base_url"`
	AppID          string    `json:"app_id"`
	TokenEncrypted []byte    `json:"-"`
	PowerControl   bool      `json:"power_control"`
	FilterControl  bool      `json:"filter_control"`
	WaveControl    bool      `json:"wave_control"`
	HeaterWatts    float64   `json:"heater_watts"`
	PumpWatts      float64   `json:"pump_watts"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DeviceState is the last published snapshot for a device, kept so the
// API can serve state while the cloud is unreachable.
type DeviceState struct {
	ID            int       `json:"id"`
	DID           string    `json:"did"`
	AdapterID     string    `json:"adapter_id"`
	PowerOn       bool      `json:"power_on"`
	HeatOn        bool      `json:"heat_on"`
	FilterOn      bool      `json:"filter_on"`
	WaveOn        bool      `json:"wave_on"`
	JetOn         bool      `json:"jet_on"`
	WaveLevel     string    `json:"wave_level"`
	TempNow       *float64  `json:"temp_now,omitempty"`
	TempSet       *float64  `json:"temp_set,omitempty"`
	Unit          string    `json:"unit"`
	HeatReached   bool      `json:"heat_reached"`
	Errors        []string  `json:"errors,omitempty"`
	PowerEstimate float64   `json:"power_estimate"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EventSource represents the source of an event
type EventSource string

const (
	EventSourceGizwits EventSource = "gizwits"
	EventSourceEngine  EventSource = "engine"
	EventSourceUser    EventSource = "user"
	EventSourceSystem  EventSource = "system"
)

// EventType represents the type of event
type EventType string

const (
	EventTypeCommand       EventType = "command"
	EventTypeCommandError  EventType = "command_error"
	EventTypeAdapterSwitch EventType = "adapter_switch"
	EventTypeCycleError    EventType = "cycle_error"
	EventTypeConfigError   EventType = "config_error"
	EventTypeCredentials   EventType = "credentials"
	EventTypeConnection    EventType = "connection"
	EventTypeError         EventType = "error"
	EventTypeInfo          EventType = "info"
)

// EventLog represents a log entry
type EventLog struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Source    EventSource     `json:"source"`
	EventType EventType       `json:"event_type"`
	Message   string          `json:"message"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// EventLogFilter for querying events
type EventLogFilter struct {
	Source    *EventSource
	EventType *EventType
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}
