package gizwits

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mlindstad/spa-bridge/internal/spa"
)

func testCreds(baseURL string) Credentials {
	return Credentials{Token: "tok-123", BaseURL: baseURL, AppID: "app-456"}
}

func TestFetchLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/app/devdata/did-1/latest" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Gizwits-Application-Id"); got != "app-456" {
			t.Errorf("missing app id header, got %q", got)
		}
		if got := r.Header.Get("X-Gizwits-User-token"); got != "tok-123" {
			t.Errorf("missing token header, got %q", got)
		}
		w.Write([]byte(`{"did":"did-1","attr":{"power":1,"temp_now":36}}`))
	}))
	defer srv.Close()

	c := NewClient()
	raw, err := c.FetchLatest(context.Background(), "did-1", testCreds(srv.URL))
	if err != nil {
		t.Fatalf("FetchLatest() error: %v", err)
	}

	if v, ok := raw.Int("power"); !ok || v != 1 {
		t.Errorf("power = %d (ok=%v), want 1", v, ok)
	}
	if v, ok := raw.Float("temp_now"); !ok || v != 36 {
		t.Errorf("temp_now = %v (ok=%v), want 36", v, ok)
	}
}

func TestFetchLatestMissingAttr(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"did":"did-1"}`))
	}))
	defer srv.Close()

	c := NewClient()
	_, err := c.FetchLatest(context.Background(), "did-1", testCreds(srv.URL))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("want ErrMalformedResponse, got %v", err)
	}
}

func TestFetchLatestRefusesWithoutCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"empty", Credentials{}},
		{"no token", Credentials{BaseURL: "http://x", AppID: "a"}},
		{"no base url", Credentials{Token: "t", AppID: "a"}},
		{"no app id", Credentials{Token: "t", BaseURL: "http://x"}},
	}

	c := NewClient()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.FetchLatest(context.Background(), "did-1", tt.creds)
			if !errors.Is(err, ErrNoCredentials) {
				t.Fatalf("want ErrNoCredentials, got %v", err)
			}
		})
	}
}

func TestSendControl(t *testing.T) {
	var gotBody controlRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/app/control/did-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient()
	err := c.SendControl(context.Background(), "did-1", spa.Payload{"filter": 2}, testCreds(srv.URL))
	if err != nil {
		t.Fatalf("SendControl() error: %v", err)
	}
	if gotBody.Attrs["filter"] != 2 {
		t.Errorf("attrs = %v, want filter:2", gotBody.Attrs)
	}
}

func TestSendControlNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient()
	err := c.SendControl(context.Background(), "did-1", spa.Payload{"power": 1}, testCreds(srv.URL))
	if err == nil {
		t.Fatal("want error on 401, got nil")
	}
}

func TestFetchPresence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/app/bindings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"devices":[
			{"did":"did-1","product_name":"Airjet","is_online":true},
			{"did":"did-2","product_name":"Hydrojet_Pro","is_online":false}
		]}`))
	}))
	defer srv.Close()

	c := NewClient()

	online, err := c.FetchPresence(context.Background(), "did-1", testCreds(srv.URL))
	if err != nil || !online {
		t.Errorf("FetchPresence(did-1) = %v, %v; want true, nil", online, err)
	}

	online, err = c.FetchPresence(context.Background(), "did-2", testCreds(srv.URL))
	if err != nil || online {
		t.Errorf("FetchPresence(did-2) = %v, %v; want false, nil", online, err)
	}

	_, err = c.FetchPresence(context.Background(), "did-9", testCreds(srv.URL))
	if !errors.Is(err, ErrDeviceNotBound) {
		t.Errorf("FetchPresence(did-9) error = %v, want ErrDeviceNotBound", err)
	}
}

func TestVerifyCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"devices":[{"did":"did-1","is_online":true}]}`))
	}))
	defer srv.Close()

	c := NewClient()
	if err := c.VerifyCredentials(context.Background(), "did-1", testCreds(srv.URL)); err != nil {
		t.Errorf("VerifyCredentials(did-1) = %v, want nil", err)
	}
	if err := c.VerifyCredentials(context.Background(), "did-9", testCreds(srv.URL)); !errors.Is(err, ErrDeviceNotBound) {
		t.Errorf("VerifyCredentials(did-9) = %v, want ErrDeviceNotBound", err)
	}
}
