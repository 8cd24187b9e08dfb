package gizwits

import "errors"

// Credentials are the per-device API credentials. Every device carries
// its own token and regional base URL; there is no shared account
// session.
type Credentials struct {
	Token   string `json:"token"`
	BaseURL string `json:"base_url"`
	AppID   string `json:"app_id"`
}

// Complete reports whether all three fields are present. Fetch and
// control calls refuse to touch the network without a complete set.
func (c Credentials) Complete() bool {
	return c.Token != "" && c.BaseURL != "" && c.AppID != ""
}

var (
	// ErrNoCredentials means the device has no complete credential set.
	// This is a configuration failure, not a transport one: no network
	// call was attempted.
	ErrNoCredentials = errors.New("missing device credentials")

	// ErrMalformedResponse means the cloud answered but the expected
	// attr field was absent.
	ErrMalformedResponse = errors.New("malformed device data response")

	// ErrDeviceNotBound means the bindings list did not contain the
	// device.
	ErrDeviceNotBound = errors.New("device not found in bindings")
)

// Binding is one entry of the account's device bindings list.
type Binding struct {
	DID         string `json:"did"`
	ProductName string `json:"product_name"`
	DevAlias    string `json:"dev_alias"`
	IsOnline    bool   `json:"is_online"`
}

// deviceDataResponse is the /app/devdata/{did}/latest response shape.
type deviceDataResponse struct {
	DID       string                 `json:"did"`
	UpdatedAt int64                  `json:"updated_at"`
	Attr      map[string]interface{} `json:"attr"`
}

// bindingsResponse is the /app/bindings response shape.
type bindingsResponse struct {
	Devices []Binding `json:"devices"`
}

// controlRequest is the /app/control/{did} request body.
type controlRequest struct {
	Attrs map[string]float64 `json:"attrs"`
}
