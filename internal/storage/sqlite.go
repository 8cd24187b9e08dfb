package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mlindstad/spa-bridge/internal/spa"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and runs migrations
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// --- Devices ---

// SaveDevice inserts or updates a provisioned device
func (db *DB) SaveDevice(d *Device) error {
	now := time.Now()
	_, err := db.conn.Exec(`
		INSERT INTO devices (did, product_name, dev_alias, base_url, app_id, token_encrypted,
			power_control, filter_control, wave_control, heater_watts, pump_watts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(did) DO UPDATE SET
			product_name = excluded.product_name,
			dev_alias = excluded.dev_alias,
			base_url = excluded.base_url,
			app_id = excluded.app_id,
			token_encrypted = excluded.token_encrypted,
			power_control = excluded.power_control,
			filter_control = excluded.filter_control,
			wave_control = excluded.wave_control,
			heater_watts = excluded.heater_watts,
			pump_watts = excluded.pump_watts,
			updated_at = excluded.updated_at
	`, d.DID, d.ProductName, d.DevAlias, d.BaseURL, d.AppID, d.TokenEncrypted,
		d.PowerControl, d.FilterControl, d.WaveControl, d.HeaterWatts, d.PumpWatts, now, now)
	if err != nil {
		return fmt.Errorf("failed to save device: %w", err)
	}
	return nil
}

// GetDevice retrieves one device by id, or nil when not provisioned
func (db *DB) GetDevice(did string) (*Device, error) {
	row := db.conn.QueryRow(deviceColumns+" WHERE did = ?", did)
	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device %s: %w", did, err)
	}
	return d, nil
}

// GetAllDevices retrieves all provisioned devices
func (db *DB) GetAllDevices() ([]Device, error) {
	rows, err := db.conn.Query(deviceColumns + " ORDER BY did")
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, nil
}

// DeleteDevice removes a device and its cached state
func (db *DB) DeleteDevice(did string) error {
	if _, err := db.conn.Exec("DELETE FROM device_state WHERE did = ?", did); err != nil {
		return fmt.Errorf("failed to delete device state: %w", err)
	}
	if _, err := db.conn.Exec("DELETE FROM devices WHERE did = ?", did); err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	return nil
}

const deviceColumns = `SELECT did, product_name, dev_alias, base_url, app_id, token_encrypted,
	power_control, filter_control, wave_control, heater_watts, pump_watts, created_at, updated_at
	FROM devices`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var d Device
	var alias sql.NullString
	err := row.Scan(&d.DID, &d.ProductName, &alias, &d.BaseURL, &d.AppID, &d.TokenEncrypted,
		&d.PowerControl, &d.FilterControl, &d.WaveControl, &d.HeaterWatts, &d.PumpWatts,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.DevAlias = alias.String
	return &d, nil
}

// --- Device State ---

// SaveSnapshot stores the last published snapshot for a device
func (db *DB) SaveSnapshot(did, adapterID string, snap spa.Snapshot, powerEstimate float64) error {
	var errorsJSON []byte
	if len(snap.Errors) > 0 {
		var err error
		errorsJSON, err = json.Marshal(snap.Errors)
		if err != nil {
			return fmt.Errorf("failed to marshal error codes: %w", err)
		}
	}

	_, err := db.conn.Exec(`
		INSERT INTO device_state (did, adapter_id, power_on, heat_on, filter_on, wave_on, jet_on,
			wave_level, temp_now, temp_set, unit, heat_reached, errors, power_estimate, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(did) DO UPDATE SET
			adapter_id = excluded.adapter_id,
			power_on = excluded.power_on,
			heat_on = excluded.heat_on,
			filter_on = excluded.filter_on,
			wave_on = excluded.wave_on,
			jet_on = excluded.jet_on,
			wave_level = excluded.wave_level,
			temp_now = excluded.temp_now,
			temp_set = excluded.temp_set,
			unit = excluded.unit,
			heat_reached = excluded.heat_reached,
			errors = excluded.errors,
			power_estimate = excluded.power_estimate,
			updated_at = excluded.updated_at
	`, did, adapterID, snap.PowerOn, snap.HeatOn, snap.FilterOn, snap.WaveOn, snap.JetOn,
		string(snap.WaveLevel), snap.TempNow, snap.TempSet, string(snap.Unit), snap.HeatReached,
		errorsJSON, powerEstimate, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save device state: %w", err)
	}
	return nil
}

// GetDeviceState retrieves the cached state for one device, or nil
func (db *DB) GetDeviceState(did string) (*DeviceState, error) {
	row := db.conn.QueryRow(stateColumns+" WHERE did = ?", did)
	s, err := scanDeviceState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device state for %s: %w", did, err)
	}
	return s, nil
}

// GetAllDeviceStates retrieves the cached state of every device
func (db *DB) GetAllDeviceStates() ([]DeviceState, error) {
	rows, err := db.conn.Query(stateColumns + " ORDER BY did")
	if err != nil {
		return nil, fmt.Errorf("failed to query device states: %w", err)
	}
	defer rows.Close()

	var states []DeviceState
	for rows.Next() {
		s, err := scanDeviceState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device state: %w", err)
		}
		states = append(states, *s)
	}
	return states, nil
}

const stateColumns = `SELECT id, did, adapter_id, power_on, heat_on, filter_on, wave_on, jet_on,
	wave_level, temp_now, temp_set, unit, heat_reached, errors, power_estimate, updated_at
	FROM device_state`

func scanDeviceState(row rowScanner) (*DeviceState, error) {
	var s DeviceState
	var tempNow, tempSet sql.NullFloat64
	var errorsJSON sql.NullString
	err := row.Scan(&s.ID, &s.DID, &s.AdapterID, &s.PowerOn, &s.HeatOn, &s.FilterOn, &s.WaveOn,
		&s.JetOn, &s.WaveLevel, &tempNow, &tempSet, &s.Unit, &s.HeatReached, &errorsJSON,
		&s.PowerEstimate, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tempNow.Valid {
		s.TempNow = &tempNow.Float64
	}
	if tempSet.Valid {
		s.TempSet = &tempSet.Float64
	}
	if errorsJSON.Valid && errorsJSON.String != "" {
		if err := json.Unmarshal([]byte(errorsJSON.String), &s.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode error codes: %w", err)
		}
	}
	return &s, nil
}

// --- Event Log ---

// LogEvent records an event in the log
func (db *DB) LogEvent(source EventSource, eventType EventType, message string, details interface{}) error {
	var detailsJSON []byte
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to marshal event details: %w", err)
		}
	}

	_, err := db.conn.Exec(
		"INSERT INTO event_log (timestamp, source, event_type, message, details) VALUES (?, ?, ?, ?, ?)",
		time.Now(), source, eventType, message, detailsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to log event: %w", err)
	}

	return nil
}

// GetEventLogs retrieves events with optional filtering
func (db *DB) GetEventLogs(filter EventLogFilter) ([]EventLog, error) {
	query := "SELECT id, timestamp, source, event_type, message, details FROM event_log WHERE 1=1"
	args := []interface{}{}

	if filter.Source != nil {
		query += " AND source = ?"
		args = append(args, *filter.Source)
	}
	if filter.EventType != nil {
		query += " AND event_type = ?"
		args = append(args, *filter.EventType)
	}
	if filter.Since != nil {
		query += " AND timestamp >= ?"
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		query += " AND timestamp <= ?"
		args = append(args, *filter.Until)
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event logs: %w", err)
	}
	defer rows.Close()

	var logs []EventLog
	for rows.Next() {
		var log EventLog
		var details sql.NullString
		err := rows.Scan(&log.ID, &log.Timestamp, &log.Source, &log.EventType, &log.Message, &details)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event log: %w", err)
		}
		if details.Valid && details.String != "" {
			log.Details = json.RawMessage(details.String)
		}
		logs = append(logs, log)
	}

	return logs, nil
}

// PruneEventLogs removes old event logs
func (db *DB) PruneEventLogs(olderThan time.Time) (int64, error) {
	result, err := db.conn.Exec("DELETE FROM event_log WHERE timestamp < ?", olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune event logs: %w", err)
	}

	return result.RowsAffected()
}
