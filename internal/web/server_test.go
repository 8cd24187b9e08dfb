package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mlindstad/spa-bridge/internal/config"
	"github.com/mlindstad/spa-bridge/internal/engine"
	"github.com/mlindstad/spa-bridge/internal/gizwits"
	"github.com/mlindstad/spa-bridge/internal/spa"
	"github.com/mlindstad/spa-bridge/internal/storage"
)

// stubClient satisfies the engine's telemetry boundary without a
// network.
type stubClient struct{}

func (stubClient) FetchLatest(ctx context.Context, deviceID string, creds gizwits.Credentials) (spa.RawTelemetry, error) {
	return spa.RawTelemetry{"temp_now": 30.0}, nil
}

func (stubClient) SendControl(ctx context.Context, deviceID string, payload spa.Payload, creds gizwits.Credentials) error {
	return nil
}

func (stubClient) FetchPresence(ctx context.Context, deviceID string, creds gizwits.Credentials) (bool, error) {
	return true, nil
}

// nullSink drops everything.
type nullSink struct{}

func (nullSink) SetValue(string, string, interface{})  {}
func (nullSink) SetBounds(string, string, spa.Bounds)  {}
func (nullSink) EnableCapability(string, string, bool) {}
func (nullSink) RaiseEvent(string, string) error       { return nil }
func (nullSink) SetAlarmMessage(string, string)        {}
func (nullSink) SetAvailable(string, bool)             {}

type testService struct {
	db     *storage.DB
	key    *storage.EncryptionKey
	mgr    *engine.Manager
	client *gizwits.Client
	cfg    *config.Config
}

func (s *testService) GetDB() *storage.DB                       { return s.db }
func (s *testService) GetEncryptionKey() *storage.EncryptionKey { return s.key }
func (s *testService) GetManager() *engine.Manager              { return s.mgr }
func (s *testService) GetGizwitsClient() *gizwits.Client        { return s.client }
func (s *testService) GetConfig() *config.Config                { return s.cfg }

func newTestServer(t *testing.T) (*Server, *testService) {
	t.Helper()
	dir := t.TempDir()

	db, err := storage.Open(filepath.Join(dir, "bridge.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	key, err := storage.LoadOrCreateKey(filepath.Join(dir, "bridge.key"))
	if err != nil {
		t.Fatal(err)
	}

	mgr := engine.NewManager(context.Background(), spa.DefaultRegistry(), stubClient{}, nullSink{}, nil, time.Hour)
	t.Cleanup(mgr.Stop)

	svc := &testService{
		db:     db,
		key:    key,
		mgr:    mgr,
		client: gizwits.NewClient(),
		cfg:    config.DefaultConfig(),
	}
	return NewServer(0, svc), svc
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestProvisionAndListDevices(t *testing.T) {
	srv, svc := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/devices", ProvisionRequest{
		DID:         "abc123",
		ProductName: "Hydrojet_Pro",
		DevAlias:    "Garden spa",
		Token:       "tok-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("provision status = %d: %s", rec.Code, rec.Body.String())
	}

	// The device is persisted with defaults and a sealed token.
	dev, err := svc.db.GetDevice("abc123")
	if err != nil || dev == nil {
		t.Fatalf("device not persisted: %v", err)
	}
	if dev.BaseURL != svc.cfg.Gizwits.BaseURL || dev.HeaterWatts != 2000 {
		t.Errorf("defaults not applied: %+v", dev)
	}
	if token, err := svc.key.OpenToken(dev.TokenEncrypted); err != nil || token != "tok-1" {
		t.Errorf("token seal round trip failed: %q %v", token, err)
	}

	// The manager picked it up.
	if m := svc.mgr.Monitor("abc123"); m == nil || m.Session().AdapterID() != "Hydrojet_Pro" {
		t.Error("device not managed after provisioning")
	}

	rec = doJSON(t, srv, "GET", "/api/devices", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var devices []DeviceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &devices); err != nil {
		t.Fatal(err)
	}
	if len(devices) != 1 || devices[0].DID != "abc123" {
		t.Errorf("devices = %+v", devices)
	}
}

func TestProvisionValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/devices", ProvisionRequest{ProductName: "Airjet"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing did/token accepted: %d", rec.Code)
	}
}

func TestGetDeviceNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, "GET", "/api/devices/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRemoveDevice(t *testing.T) {
	srv, svc := newTestServer(t)

	doJSON(t, srv, "POST", "/api/devices", ProvisionRequest{DID: "abc123", ProductName: "Airjet", Token: "tok"})

	rec := doJSON(t, srv, "DELETE", "/api/devices/abc123", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}
	if dev, _ := svc.db.GetDevice("abc123"); dev != nil {
		t.Error("device still persisted after removal")
	}
	if svc.mgr.Monitor("abc123") != nil {
		t.Error("device still managed after removal")
	}
}

func TestCommandRouting(t *testing.T) {
	srv, _ := newTestServer(t)

	doJSON(t, srv, "POST", "/api/devices", ProvisionRequest{DID: "abc123", ProductName: "Airjet", Token: "tok"})

	on := true
	rec := doJSON(t, srv, "POST", "/api/devices/abc123/command", CommandRequest{Command: "power", On: &on})
	if rec.Code != http.StatusOK {
		t.Errorf("command status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, "POST", "/api/devices/ghost/command", CommandRequest{Command: "power", On: &on})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown device status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/devices/abc123/command", CommandRequest{Command: "explode"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad command status = %d, want 400", rec.Code)
	}
}

func TestCommandRequestToCommand(t *testing.T) {
	on := true
	temp := 38.0
	tests := []struct {
		name    string
		req     CommandRequest
		want    spa.Command
		wantErr bool
	}{
		{"toggle", CommandRequest{Command: "power", On: &on}, spa.Toggle(spa.KindPower, true), false},
		{"toggle missing on", CommandRequest{Command: "filter"}, spa.Command{}, true},
		{"temp", CommandRequest{Command: "tempSet", Temp: &temp}, spa.SetTemp(38), false},
		{"temp missing value", CommandRequest{Command: "tempSet"}, spa.Command{}, true},
		{"wave level", CommandRequest{Command: "waveLevel", Level: "high"}, spa.SetWaveLevel(spa.WaveHigh), false},
		{"bad level", CommandRequest{Command: "waveLevel", Level: "turbo"}, spa.Command{}, true},
		{"unknown", CommandRequest{Command: "defrost"}, spa.Command{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.toCommand()
			if (err != nil) != tt.wantErr {
				t.Fatalf("toCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("toCommand() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSaveCredentials(t *testing.T) {
	srv, svc := newTestServer(t)

	doJSON(t, srv, "POST", "/api/devices", ProvisionRequest{DID: "abc123", ProductName: "Airjet", Token: "old"})

	rec := doJSON(t, srv, "POST", "/api/devices/abc123/credentials", CredentialsRequest{Token: "new-token"})
	if rec.Code != http.StatusOK {
		t.Fatalf("credentials status = %d: %s", rec.Code, rec.Body.String())
	}

	dev, _ := svc.db.GetDevice("abc123")
	if token, err := svc.key.OpenToken(dev.TokenEncrypted); err != nil || token != "new-token" {
		t.Errorf("stored token = %q, %v", token, err)
	}
	if got := svc.mgr.Monitor("abc123").Session().Credentials().Token; got != "new-token" {
		t.Errorf("live credentials not rotated: %q", got)
	}

	rec = doJSON(t, srv, "POST", "/api/devices/ghost/credentials", CredentialsRequest{Token: "x"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown device status = %d, want 404", rec.Code)
	}
}

func TestLogsAndVersion(t *testing.T) {
	srv, svc := newTestServer(t)

	svc.db.LogEvent(storage.EventSourceUser, storage.EventTypeInfo, "hello", nil)

	rec := doJSON(t, srv, "GET", "/api/logs?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logs status = %d", rec.Code)
	}
	var logs []storage.EventLog
	if err := json.Unmarshal(rec.Body.Bytes(), &logs); err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Message != "hello" {
		t.Errorf("logs = %+v", logs)
	}

	rec = doJSON(t, srv, "GET", "/api/version", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("version status = %d", rec.Code)
	}
	var v VersionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v.Version == "" {
		t.Error("empty version")
	}
}
