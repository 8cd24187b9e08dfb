package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ServerPort int    `yaml:"server_port"`
	DataDir    string `yaml:"data_dir"`

	// Encryption key path (for vendor tokens)
	EncryptionKeyPath string `yaml:"encryption_key_path"`

	// Gizwits cloud settings
	Gizwits GizwitsConfig `yaml:"gizwits"`

	// MQTT broker settings
	MQTT MQTTConfig `yaml:"mqtt"`

	// Defaults applied to newly provisioned devices
	Device DeviceDefaults `yaml:"device_defaults"`
}

// GizwitsConfig holds vendor cloud settings
type GizwitsConfig struct {
	BaseURL             string `yaml:"base_url"`
	AppID               string `yaml:"app_id"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
}

// MQTTConfig holds broker settings; the sink is skipped when disabled
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BrokerURL   string `yaml:"broker_url"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// DeviceDefaults are the per-device settings used until overridden
type DeviceDefaults struct {
	HeaterWatts float64 `yaml:"heater_watts"`
	PumpWatts   float64 `yaml:"pump_watts"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".spa-bridge")

	return &Config{
		ServerPort:        8080,
		DataDir:           dataDir,
		EncryptionKeyPath: filepath.Join(dataDir, "encryption.key"),
		Gizwits: GizwitsConfig{
			BaseURL:             "https://euapi.gizwits.com",
			PollIntervalSeconds: 60,
		},
		MQTT: MQTTConfig{
			BrokerURL:   "tcp://localhost:1883",
			TopicPrefix: "spa",
		},
		Device: DeviceDefaults{
			HeaterWatts: 2000,
			PumpWatts:   60,
		},
	}
}

// Load reads configuration from a YAML file, overlaying the defaults.
// A missing file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server_port %d", c.ServerPort)
	}
	if c.Gizwits.PollIntervalSeconds <= 0 {
		return fmt.Errorf("invalid poll_interval_seconds %d", c.Gizwits.PollIntervalSeconds)
	}
	if c.MQTT.Enabled && c.MQTT.BrokerURL == "" {
		return fmt.Errorf("mqtt enabled without broker_url")
	}
	return nil
}

// Save writes configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// EnsureDataDir creates the data directory if it doesn't exist
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

// DatabasePath returns the path to the SQLite database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "spa-bridge.db")
}
