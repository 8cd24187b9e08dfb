package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mlindstad/spa-bridge/internal/engine"
	"github.com/mlindstad/spa-bridge/internal/gizwits"
	"github.com/mlindstad/spa-bridge/internal/log"
	"github.com/mlindstad/spa-bridge/internal/spa"
	"github.com/mlindstad/spa-bridge/internal/storage"
)

// Version information, set via ldflags at build time
var (
	Version   = "dev"
	BuildDate = "unknown"
)

// StatusResponse represents the overall system status
type StatusResponse struct {
	Devices       []DeviceStatus `json:"devices"`
	UptimeSeconds int64          `json:"uptime_seconds"`
}

// DeviceStatus is one device's runtime status
type DeviceStatus struct {
	DID       string `json:"did"`
	AdapterID string `json:"adapter_id"`
	Online    *bool  `json:"online,omitempty"`
}

// DeviceResponse merges the provisioned device with its cached state
type DeviceResponse struct {
	storage.Device
	State *storage.DeviceState `json:"state,omitempty"`
}

// ProvisionRequest provisions or updates a device
type ProvisionRequest struct {
	DID           string   `json:"did"`
	ProductName   string   `json:"product_name"`
	DevAlias      string   `json:"dev_alias"`
	Token         string   `json:"token"`
	BaseURL       string   `json:"base_url"`
	AppID         string   `json:"app_id"`
	PowerControl  *bool    `json:"power_control"`
	FilterControl *bool    `json:"filter_control"`
	WaveControl   *bool    `json:"wave_control"`
	HeaterWatts   *float64 `json:"heater_watts"`
	PumpWatts     *float64 `json:"pump_watts"`
}

// CommandRequest is one canonical control request
type CommandRequest struct {
	Command string   `json:"command"`
	On      *bool    `json:"on,omitempty"`
	Temp    *float64 `json:"temp,omitempty"`
	Level   string   `json:"level,omitempty"`
}

// CredentialsRequest updates a device's vendor credentials
type CredentialsRequest struct {
	Token   string `json:"token"`
	BaseURL string `json:"base_url"`
	AppID   string `json:"app_id"`
}

// VersionResponse represents version info
type VersionResponse struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
}

// handleStatus returns overall system status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	mgr := s.service.GetManager()

	var devices []DeviceStatus
	for _, did := range mgr.DeviceIDs() {
		ds := DeviceStatus{DID: did}
		if m := mgr.Monitor(did); m != nil {
			ds.AdapterID = m.Session().AdapterID()
			if online, ok := m.Online(); ok {
				ds.Online = &online
			}
		}
		devices = append(devices, ds)
	}

	writeJSON(w, StatusResponse{
		Devices:       devices,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

// handleListDevices returns all provisioned devices with cached state
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	db := s.service.GetDB()

	devices, err := db.GetAllDevices()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get devices")
		return
	}
	states, err := db.GetAllDeviceStates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get device states")
		return
	}
	byDID := make(map[string]*storage.DeviceState, len(states))
	for i := range states {
		byDID[states[i].DID] = &states[i]
	}

	response := make([]DeviceResponse, 0, len(devices))
	for _, d := range devices {
		response = append(response, DeviceResponse{Device: d, State: byDID[d.DID]})
	}
	writeJSON(w, response)
}

// handleGetDevice returns one device with its cached state
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	did := mux.Vars(r)["did"]
	db := s.service.GetDB()

	device, err := db.GetDevice(did)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get device")
		return
	}
	if device == nil {
		writeError(w, http.StatusNotFound, "Device not found")
		return
	}

	state, err := db.GetDeviceState(did)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get device state")
		return
	}
	writeJSON(w, DeviceResponse{Device: *device, State: state})
}

// handleProvisionDevice creates or replaces a provisioned device and
// starts monitoring it
func (s *Server) handleProvisionDevice(w http.ResponseWriter, r *http.Request) {
	var req ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DID == "" || req.Token == "" {
		writeError(w, http.StatusBadRequest, "did and token required")
		return
	}

	cfg := s.service.GetConfig()
	if req.BaseURL == "" {
		req.BaseURL = cfg.Gizwits.BaseURL
	}
	if req.AppID == "" {
		req.AppID = cfg.Gizwits.AppID
	}

	sealed, err := s.service.GetEncryptionKey().SealToken(req.Token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encrypt token")
		return
	}

	device := &storage.Device{
		DID:            req.DID,
		ProductName:    req.ProductName,
		DevAlias:       req.DevAlias,
		BaseURL:        req.BaseURL,
		AppID:          req.AppID,
		TokenEncrypted: sealed,
		PowerControl:   boolOrDefault(req.PowerControl, true),
		FilterControl:  boolOrDefault(req.FilterControl, true),
		WaveControl:    boolOrDefault(req.WaveControl, true),
		HeaterWatts:    floatOrDefault(req.HeaterWatts, cfg.Device.HeaterWatts),
		PumpWatts:      floatOrDefault(req.PumpWatts, cfg.Device.PumpWatts),
	}

	db := s.service.GetDB()
	if err := db.SaveDevice(device); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save device")
		return
	}

	s.service.GetManager().AddDevice(req.DID, req.ProductName,
		gizwits.Credentials{Token: req.Token, BaseURL: req.BaseURL, AppID: req.AppID},
		engine.DeviceSettings{
			PowerControl:  device.PowerControl,
			FilterControl: device.FilterControl,
			WaveControl:   device.WaveControl,
			HeaterWatts:   device.HeaterWatts,
			PumpWatts:     device.PumpWatts,
		})

	db.LogEvent(storage.EventSourceUser, storage.EventTypeInfo,
		fmt.Sprintf("Device %s provisioned", req.DID), map[string]interface{}{"did": req.DID})

	writeJSON(w, map[string]string{"status": "ok"})
}

// handleRemoveDevice stops monitoring and deletes the device
func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	did := mux.Vars(r)["did"]
	db := s.service.GetDB()

	device, err := db.GetDevice(did)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get device")
		return
	}
	if device == nil {
		writeError(w, http.StatusNotFound, "Device not found")
		return
	}

	s.service.GetManager().RemoveDevice(did)
	if err := db.DeleteDevice(did); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete device")
		return
	}

	db.LogEvent(storage.EventSourceUser, storage.EventTypeInfo,
		fmt.Sprintf("Device %s removed", did), nil)
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleCommand routes a control command to the device's monitor
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	did := mux.Vars(r)["did"]

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd, err := req.toCommand()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.GetManager().SendCommand(r.Context(), did, cmd); err != nil {
		if errors.Is(err, engine.ErrUnknownDevice) {
			writeError(w, http.StatusNotFound, "Device not found")
			return
		}
		log.Error("Command %s for device %s failed: %v", req.Command, did, err)
		writeError(w, http.StatusBadGateway, "Failed to send command")
		return
	}

	writeJSON(w, map[string]string{"status": "ok"})
}

// toCommand validates the request and builds the canonical command
func (req CommandRequest) toCommand() (spa.Command, error) {
	kind := spa.CommandKind(req.Command)
	switch kind {
	case spa.KindPower, spa.KindHeat, spa.KindFilter, spa.KindWave, spa.KindJet:
		if req.On == nil {
			return spa.Command{}, fmt.Errorf("command %s requires 'on'", kind)
		}
		return spa.Toggle(kind, *req.On), nil
	case spa.KindTempSet:
		if req.Temp == nil {
			return spa.Command{}, fmt.Errorf("command %s requires 'temp'", kind)
		}
		return spa.SetTemp(*req.Temp), nil
	case spa.KindWaveLevel:
		switch spa.WaveLevel(req.Level) {
		case spa.WaveOff, spa.WaveLow, spa.WaveHigh:
			return spa.SetWaveLevel(spa.WaveLevel(req.Level)), nil
		}
		return spa.Command{}, fmt.Errorf("unknown level %q", req.Level)
	}
	return spa.Command{}, fmt.Errorf("unknown command %q", req.Command)
}

// handleSaveCredentials updates the device's vendor credentials
func (s *Server) handleSaveCredentials(w http.ResponseWriter, r *http.Request) {
	did := mux.Vars(r)["did"]

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "Token required")
		return
	}

	db := s.service.GetDB()
	device, err := db.GetDevice(did)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get device")
		return
	}
	if device == nil {
		writeError(w, http.StatusNotFound, "Device not found")
		return
	}

	if req.BaseURL == "" {
		req.BaseURL = device.BaseURL
	}
	if req.AppID == "" {
		req.AppID = device.AppID
	}

	sealed, err := s.service.GetEncryptionKey().SealToken(req.Token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encrypt token")
		return
	}
	device.TokenEncrypted = sealed
	device.BaseURL = req.BaseURL
	device.AppID = req.AppID
	if err := db.SaveDevice(device); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save credentials")
		return
	}

	if m := s.service.GetManager().Monitor(did); m != nil {
		m.UpdateCredentials(gizwits.Credentials{Token: req.Token, BaseURL: req.BaseURL, AppID: req.AppID})
	}

	db.LogEvent(storage.EventSourceUser, storage.EventTypeCredentials,
		fmt.Sprintf("Credentials updated for device %s", did), nil)
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleTestCredentials verifies credentials against the vendor cloud
// without storing them
func (s *Server) handleTestCredentials(w http.ResponseWriter, r *http.Request) {
	did := mux.Vars(r)["did"]

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BaseURL == "" {
		req.BaseURL = s.service.GetConfig().Gizwits.BaseURL
	}
	if req.AppID == "" {
		req.AppID = s.service.GetConfig().Gizwits.AppID
	}

	db := s.service.GetDB()
	creds := gizwits.Credentials{Token: req.Token, BaseURL: req.BaseURL, AppID: req.AppID}

	if err := s.service.GetGizwitsClient().VerifyCredentials(r.Context(), did, creds); err != nil {
		db.LogEvent(storage.EventSourceGizwits, storage.EventTypeError,
			"Credential test failed", map[string]interface{}{"did": did, "error": err.Error()})
		writeJSON(w, map[string]interface{}{"success": false, "error": err.Error()})
		return
	}

	db.LogEvent(storage.EventSourceGizwits, storage.EventTypeConnection,
		"Credential test successful", map[string]interface{}{"did": did})
	writeJSON(w, map[string]interface{}{"success": true})
}

// handleReconcile triggers an on-demand cycle for the device
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	did := mux.Vars(r)["did"]

	if err := s.service.GetManager().Reconcile(r.Context(), did); err != nil {
		if errors.Is(err, engine.ErrUnknownDevice) {
			writeError(w, http.StatusNotFound, "Device not found")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleGetLogs returns event logs
func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	db := s.service.GetDB()

	filter := storage.EventLogFilter{
		Limit: 100,
	}

	// Parse query parameters
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	if source := r.URL.Query().Get("source"); source != "" {
		src := storage.EventSource(source)
		filter.Source = &src
	}

	logs, err := db.GetEventLogs(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get logs")
		return
	}

	writeJSON(w, logs)
}

// handleVersion returns version information
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, VersionResponse{
		Version:   Version,
		BuildDate: BuildDate,
	})
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func floatOrDefault(v *float64, def float64) float64 {
	if v == nil || *v <= 0 {
		return def
	}
	return *v
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
