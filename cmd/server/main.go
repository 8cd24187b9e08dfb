package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mlindstad/spa-bridge/internal/config"
	"github.com/mlindstad/spa-bridge/internal/engine"
	"github.com/mlindstad/spa-bridge/internal/gizwits"
	"github.com/mlindstad/spa-bridge/internal/log"
	"github.com/mlindstad/spa-bridge/internal/mqtt"
	"github.com/mlindstad/spa-bridge/internal/spa"
	"github.com/mlindstad/spa-bridge/internal/storage"
	"github.com/mlindstad/spa-bridge/internal/web"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	jsonLogs := flag.Bool("json-logs", false, "Emit logs as JSON")
	flag.Parse()

	// Set up logging
	if *debug {
		log.SetDefaultLevel(log.LevelDebug)
	}
	log.SetDefaultJSONMode(*jsonLogs)

	log.Info("Starting spa bridge")

	// Load configuration
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Error("Failed to load config: %v", err)
			os.Exit(1)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Ensure data directory exists
	if err := cfg.EnsureDataDir(); err != nil {
		log.Error("Failed to create data directory: %v", err)
		os.Exit(1)
	}

	// Open database
	db, err := storage.Open(cfg.DatabasePath())
	if err != nil {
		log.Error("Failed to open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	log.Info("Database initialized at %s", cfg.DatabasePath())

	// Load encryption key
	encKey, err := storage.LoadOrCreateKey(cfg.EncryptionKeyPath)
	if err != nil {
		log.Error("Failed to load encryption key: %v", err)
		os.Exit(1)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Shutting down...")
		cancel()
	}()

	gizClient := gizwits.NewClient()
	registry := spa.DefaultRegistry()

	// The manager is declared before the MQTT sink so the set-topic
	// handler can route commands to it once it exists.
	var mgr *engine.Manager

	sinks := []engine.CapabilitySink{}

	var mqttSink *mqtt.Sink
	if cfg.MQTT.Enabled {
		mqttSink = mqtt.NewSink(mqtt.Options{
			BrokerURL:   cfg.MQTT.BrokerURL,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, func(deviceID string, cmd spa.Command) error {
			if mgr == nil {
				return nil
			}
			return mgr.SendCommand(ctx, deviceID, cmd)
		})
		if err := mqttSink.Connect(); err != nil {
			log.Error("MQTT connection failed: %v", err)
			os.Exit(1)
		}
		defer mqttSink.Close()
		sinks = append(sinks, mqttSink)
	}

	// Create service and web server; the WebSocket hub doubles as a
	// capability sink so the frontend sees live state.
	svc := &Service{
		cfg:       cfg,
		db:        db,
		encKey:    encKey,
		gizClient: gizClient,
	}
	webServer := web.NewServer(cfg.ServerPort, svc)
	sinks = append(sinks, web.NewBroadcastSink(webServer.GetHub()))

	interval := time.Duration(cfg.Gizwits.PollIntervalSeconds) * time.Second
	mgr = engine.NewManager(ctx, registry, gizClient, engine.NewFanout(sinks...), &dbRecorder{db: db}, interval)
	svc.mgr = mgr

	// Start monitors for every provisioned device.
	devices, err := db.GetAllDevices()
	if err != nil {
		log.Error("Failed to load devices: %v", err)
		os.Exit(1)
	}
	for _, d := range devices {
		token, err := encKey.OpenToken(d.TokenEncrypted)
		if err != nil {
			log.Warn("Device %s: failed to decrypt token, skipping: %v", d.DID, err)
			db.LogEvent(storage.EventSourceSystem, storage.EventTypeError,
				"Failed to decrypt stored token for "+d.DID, nil)
			continue
		}
		mgr.AddDevice(d.DID, d.ProductName,
			gizwits.Credentials{Token: token, BaseURL: d.BaseURL, AppID: d.AppID},
			engine.DeviceSettings{
				PowerControl:  d.PowerControl,
				FilterControl: d.FilterControl,
				WaveControl:   d.WaveControl,
				HeaterWatts:   d.HeaterWatts,
				PumpWatts:     d.PumpWatts,
			})
	}
	log.Info("Monitoring %d device(s)", len(devices))

	// Daily event log retention sweep.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := db.PruneEventLogs(time.Now().AddDate(0, 0, -30)); err != nil {
					log.Warn("Event log prune failed: %v", err)
				} else if n > 0 {
					log.Info("Pruned %d old event log entries", n)
				}
			}
		}
	}()

	// Start web server
	log.Info("Starting web server on port %d", cfg.ServerPort)
	if err := webServer.Run(ctx); err != nil {
		log.Error("Web server error: %v", err)
	}

	// Clean up
	mgr.Stop()
	log.Info("Shutdown complete")
}

// Service orchestrates the bridge components
type Service struct {
	cfg       *config.Config
	db        *storage.DB
	encKey    *storage.EncryptionKey
	gizClient *gizwits.Client
	mgr       *engine.Manager
}

// GetDB returns the database
func (s *Service) GetDB() *storage.DB {
	return s.db
}

// GetEncryptionKey returns the encryption key
func (s *Service) GetEncryptionKey() *storage.EncryptionKey {
	return s.encKey
}

// GetManager returns the device manager
func (s *Service) GetManager() *engine.Manager {
	return s.mgr
}

// GetGizwitsClient returns the vendor cloud client
func (s *Service) GetGizwitsClient() *gizwits.Client {
	return s.gizClient
}

// GetConfig returns the configuration
func (s *Service) GetConfig() *config.Config {
	return s.cfg
}

// dbRecorder persists cycle outcomes to SQLite.
type dbRecorder struct {
	db *storage.DB
}

func (r *dbRecorder) SaveSnapshot(deviceID, adapterID string, snap spa.Snapshot, powerEstimate float64) error {
	return r.db.SaveSnapshot(deviceID, adapterID, snap, powerEstimate)
}

func (r *dbRecorder) LogEvent(source, eventType, message string) {
	if err := r.db.LogEvent(storage.EventSource(source), storage.EventType(eventType), message, nil); err != nil {
		log.Debug("Failed to record event: %v", err)
	}
}
