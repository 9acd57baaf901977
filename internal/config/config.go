package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Position and IMU source selectors.
const (
	GPSSourceGPSD = "gpsd"
	GPSSourceNMEA = "nmea"

	IMUSourceMPU9250 = "mpu9250"
	IMUSourceMock    = "mock"
)

// Config holds all application configuration values.
type Config struct {
	// Wing sensors
	ForeEndpoint     string
	MizzenEndpoint   string
	RequestTimeoutMS int

	// Cycle
	CycleIntervalMS int

	// Sinks
	LogFile       string
	ConsoleMirror bool
	SQLitePath    string

	// GPS
	GPSSource     string
	GPSDAddr      string
	GPSSerialPort string
	GPSBaudRate   int

	// IMU Hardware
	IMUSource  string
	IMUI2CBus  string
	IMUI2CAddr uint16
	MagI2CAddr uint16

	// IMU Sensor Ranges
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// MQTT
	MQTTBroker          string
	MQTTClientIDLogger  string
	MQTTClientIDWeb     string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string

	// Topics
	TopicTelemetry string

	// Metrics
	MetricsAddr string

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds
}

// Defaults returns a Config with every optional key set to its default.
func Defaults() *Config {
	return &Config{
		RequestTimeoutMS:      250,
		CycleIntervalMS:       50,
		LogFile:               "/tmp/saillog.log",
		ConsoleMirror:         true,
		GPSSource:             GPSSourceGPSD,
		GPSDAddr:              "127.0.0.1:2947",
		GPSBaudRate:           9600,
		IMUSource:             IMUSourceMPU9250,
		IMUI2CBus:             "1",
		IMUI2CAddr:            0x68,
		MagI2CAddr:            0x0C,
		MQTTClientIDLogger:    "sail-logger",
		MQTTClientIDWeb:       "sail-web",
		MQTTClientIDConsole:   "sail-console",
		MQTTClientIDDisplay:   "sail-display",
		TopicTelemetry:        "sail/telemetry",
		WebServerPort:         8080,
		DisplayI2CBus:         "1",
		DisplayUpdateInterval: 500,
	}
}

// RequestTimeout is the per-request bound for each wing sensor fetch.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// CycleInterval is the delay between the end of one cycle and the start of the next.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.CycleIntervalMS) * time.Millisecond
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
// Files ending in .yaml or .yml are read as a flat YAML mapping of the
// same keys; anything else uses the KEY=VALUE format.
func Load(configPath string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		return loadYAML(configPath)
	default:
		return loadKeyValue(configPath)
	}
}

func loadKeyValue(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadYAML(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid yaml config: %w", err)
	}

	// Sorted so the first reported error is stable.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cfg := Defaults()
	for _, key := range keys {
		v := raw[key]
		if v == nil {
			continue
		}
		if _, nested := v.(map[string]interface{}); nested {
			return nil, fmt.Errorf("config key %q: nested values are not supported", key)
		}
		if err := cfg.setValue(strings.ToUpper(key), fmt.Sprint(v)); err != nil {
			return nil, fmt.Errorf("config key %q: %w", key, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Wing sensors
	case "FORE_ENDPOINT":
		c.ForeEndpoint = value
	case "MIZZEN_ENDPOINT":
		c.MizzenEndpoint = value
	case "REQUEST_TIMEOUT_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_TIMEOUT_MS %q: %w", value, err)
		}
		c.RequestTimeoutMS = ms

	// Cycle
	case "CYCLE_INTERVAL_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CYCLE_INTERVAL_MS %q: %w", value, err)
		}
		c.CycleIntervalMS = ms

	// Sinks
	case "LOG_FILE":
		c.LogFile = value
	case "CONSOLE_MIRROR":
		mirror, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid CONSOLE_MIRROR %q: %w", value, err)
		}
		c.ConsoleMirror = mirror
	case "SQLITE_PATH":
		c.SQLitePath = value

	// GPS
	case "GPS_SOURCE":
		c.GPSSource = strings.ToLower(value)
	case "GPSD_ADDR":
		c.GPSDAddr = value
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// IMU Hardware
	case "IMU_SOURCE":
		c.IMUSource = strings.ToLower(value)
	case "IMU_I2C_BUS":
		c.IMUI2CBus = value
	case "IMU_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid IMU_I2C_ADDR %q: %w", value, err)
		}
		c.IMUI2CAddr = uint16(addr)
	case "MAG_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid MAG_I2C_ADDR %q: %w", value, err)
		}
		c.MagI2CAddr = uint16(addr)

	// IMU Sensor Ranges
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_LOGGER":
		c.MQTTClientIDLogger = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_TELEMETRY":
		c.TopicTelemetry = value

	// Metrics
	case "METRICS_ADDR":
		c.MetricsAddr = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.ForeEndpoint == "" {
		return fmt.Errorf("FORE_ENDPOINT is required")
	}
	if c.MizzenEndpoint == "" {
		return fmt.Errorf("MIZZEN_ENDPOINT is required")
	}
	if c.RequestTimeoutMS <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_MS must be positive, got %d", c.RequestTimeoutMS)
	}
	if c.CycleIntervalMS < 0 {
		return fmt.Errorf("CYCLE_INTERVAL_MS must not be negative, got %d", c.CycleIntervalMS)
	}
	if c.LogFile == "" {
		return fmt.Errorf("LOG_FILE is required")
	}

	switch c.GPSSource {
	case GPSSourceGPSD:
		if c.GPSDAddr == "" {
			return fmt.Errorf("GPSD_ADDR is required when GPS_SOURCE=gpsd")
		}
	case GPSSourceNMEA:
		if c.GPSSerialPort == "" {
			return fmt.Errorf("GPS_SERIAL_PORT is required when GPS_SOURCE=nmea")
		}
		if c.GPSBaudRate <= 0 {
			return fmt.Errorf("GPS_BAUD_RATE must be positive, got %d", c.GPSBaudRate)
		}
	default:
		return fmt.Errorf("GPS_SOURCE must be %q or %q, got %q", GPSSourceGPSD, GPSSourceNMEA, c.GPSSource)
	}

	switch c.IMUSource {
	case IMUSourceMPU9250:
		if c.IMUI2CBus == "" {
			return fmt.Errorf("IMU_I2C_BUS is required when IMU_SOURCE=mpu9250")
		}
	case IMUSourceMock:
	default:
		return fmt.Errorf("IMU_SOURCE must be %q or %q, got %q", IMUSourceMPU9250, IMUSourceMock, c.IMUSource)
	}

	if c.TopicTelemetry == "" {
		return fmt.Errorf("TOPIC_TELEMETRY is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
