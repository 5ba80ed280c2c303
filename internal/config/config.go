// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Transport names accepted by TRANSPORT.
const (
	TransportMock   = "mock"
	TransportSerial = "serial"
	TransportMQTT   = "mqtt"
	TransportIMU    = "imu"
)

// Config holds all application configuration values.
type Config struct {
	// Recording
	OutputDir           string
	MaxDevices          int
	UnknownDevicePolicy string // "drop" or "sentinel"
	AppendErrorPolicy   string // "skip" or "abort"
	DeviceLabelsFile    string
	CatalogPath         string // empty disables the session catalog

	// Transport
	Transport     string
	PollTimeoutMS int

	// Logging
	LogLevel  string
	LogFormat string

	// MQTT
	MQTTBroker           string
	MQTTClientIDRecorder string
	MQTTClientIDBridge   string
	MQTTClientIDWeb      string
	MQTTClientIDConsole  string
	MQTTClientIDDisplay  string

	// Topics
	TopicBridgeEvents   string
	TopicBridgeCommands string
	TopicLivePrefix     string
	LivePublish         bool

	// Serial bridge
	SerialPort     string
	SerialBaudRate int

	// Simulated devices
	MockDevices          int
	MockSampleIntervalMS int

	// Onboard IMUs, one entry per device in pairing order
	IMUSPIDevices []string
	IMUCSPins     []string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange        byte
	IMUSampleIntervalMS int

	// InfluxDB mirror
	InfluxEnabled bool
	InfluxURL     string
	InfluxToken   string
	InfluxOrg     string
	InfluxBucket  string

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds
}

// Package-level state for the singleton:
//   - globalConfig is unexported so it can only change through InitGlobal.
//   - configOnce makes InitGlobal run once.
//   - configMu guards reads in Get against the write in InitGlobal.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys the file does not set.
func Default() *Config {
	return &Config{
		OutputDir:             "data",
		MaxDevices:            2,
		UnknownDevicePolicy:   "drop",
		AppendErrorPolicy:     "skip",
		Transport:             TransportMock,
		PollTimeoutMS:         10,
		LogLevel:              "info",
		LogFormat:             "text",
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDRecorder:  "wearable-recorder",
		MQTTClientIDBridge:    "wearable-bridge-sim",
		MQTTClientIDWeb:       "wearable-web",
		MQTTClientIDConsole:   "wearable-console",
		MQTTClientIDDisplay:   "wearable-display",
		TopicBridgeEvents:     "wearable/bridge/events",
		TopicBridgeCommands:   "wearable/bridge/commands",
		TopicLivePrefix:       "wearable/live",
		SerialBaudRate:        115200,
		MockDevices:           2,
		MockSampleIntervalMS:  20,
		IMUAccelRange:         1,
		IMUGyroRange:          1,
		IMUSampleIntervalMS:   20,
		InfluxBucket:          "wearables",
		WebServerPort:         8080,
		DisplayI2CBus:         "1",
		DisplayUpdateInterval: 500,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default and validates the result.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
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

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error

	switch key {
	// Recording
	case "OUTPUT_DIR":
		c.OutputDir = value
	case "MAX_DEVICES":
		c.MaxDevices, err = parseInt(key, value, 1, 64)
	case "UNKNOWN_DEVICE_POLICY":
		if value != "drop" && value != "sentinel" {
			return fmt.Errorf("UNKNOWN_DEVICE_POLICY must be drop or sentinel, got %q", value)
		}
		c.UnknownDevicePolicy = value
	case "APPEND_ERROR_POLICY":
		if value != "skip" && value != "abort" {
			return fmt.Errorf("APPEND_ERROR_POLICY must be skip or abort, got %q", value)
		}
		c.AppendErrorPolicy = value
	case "DEVICE_LABELS_FILE":
		c.DeviceLabelsFile = value
	case "CATALOG_PATH":
		c.CatalogPath = value

	// Transport
	case "TRANSPORT":
		switch value {
		case TransportMock, TransportSerial, TransportMQTT, TransportIMU:
			c.Transport = value
		default:
			return fmt.Errorf("TRANSPORT must be mock, serial, mqtt or imu, got %q", value)
		}
	case "POLL_TIMEOUT_MS":
		c.PollTimeoutMS, err = parseInt(key, value, 1, 60000)

	// Logging
	case "LOG_LEVEL":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "warning", "error":
			c.LogLevel = value
		default:
			return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", value)
		}
	case "LOG_FORMAT":
		if value != "text" && value != "json" {
			return fmt.Errorf("LOG_FORMAT must be text or json, got %q", value)
		}
		c.LogFormat = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_RECORDER":
		c.MQTTClientIDRecorder = value
	case "MQTT_CLIENT_ID_BRIDGE":
		c.MQTTClientIDBridge = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_BRIDGE_EVENTS":
		c.TopicBridgeEvents = value
	case "TOPIC_BRIDGE_COMMANDS":
		c.TopicBridgeCommands = value
	case "TOPIC_LIVE_PREFIX":
		c.TopicLivePrefix = strings.TrimSuffix(value, "/")
	case "LIVE_PUBLISH":
		c.LivePublish, err = parseBool(key, value)

	// Serial bridge
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value, 1, 4000000)

	// Simulated devices
	case "MOCK_DEVICES":
		c.MockDevices, err = parseInt(key, value, 0, 64)
	case "MOCK_SAMPLE_INTERVAL_MS":
		c.MockSampleIntervalMS, err = parseInt(key, value, 1, 60000)

	// Onboard IMUs
	case "IMU_SPI_DEVICES":
		c.IMUSPIDevices = splitList(value)
	case "IMU_CS_PINS":
		c.IMUCSPins = splitList(value)
	case "IMU_ACCEL_RANGE":
		c.IMUAccelRange, err = parseRange(key, value)
	case "IMU_GYRO_RANGE":
		c.IMUGyroRange, err = parseRange(key, value)
	case "IMU_SAMPLE_INTERVAL_MS":
		c.IMUSampleIntervalMS, err = parseInt(key, value, 1, 60000)

	// InfluxDB mirror
	case "INFLUX_ENABLED":
		c.InfluxEnabled, err = parseBool(key, value)
	case "INFLUX_URL":
		c.InfluxURL = value
	case "INFLUX_TOKEN":
		c.InfluxToken = value
	case "INFLUX_ORG":
		c.InfluxOrg = value
	case "INFLUX_BUCKET":
		c.InfluxBucket = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 1, 65535)

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value, 1, 60000)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks the settings the selected transport and features need.
func (c *Config) validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}

	switch c.Transport {
	case TransportSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for TRANSPORT=serial")
		}
	case TransportMQTT:
		if c.MQTTBroker == "" {
			return fmt.Errorf("MQTT_BROKER is required for TRANSPORT=mqtt")
		}
		if c.TopicBridgeEvents == "" || c.TopicBridgeCommands == "" {
			return fmt.Errorf("TOPIC_BRIDGE_EVENTS and TOPIC_BRIDGE_COMMANDS are required for TRANSPORT=mqtt")
		}
	case TransportIMU:
		if len(c.IMUSPIDevices) == 0 {
			return fmt.Errorf("IMU_SPI_DEVICES is required for TRANSPORT=imu")
		}
		if len(c.IMUCSPins) != len(c.IMUSPIDevices) {
			return fmt.Errorf("IMU_CS_PINS has %d entries, IMU_SPI_DEVICES has %d", len(c.IMUCSPins), len(c.IMUSPIDevices))
		}
		if len(c.IMUSPIDevices) > c.MaxDevices {
			return fmt.Errorf("IMU_SPI_DEVICES lists %d devices, MAX_DEVICES is %d", len(c.IMUSPIDevices), c.MaxDevices)
		}
	}

	if c.LivePublish && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required when LIVE_PUBLISH is set")
	}
	if c.InfluxEnabled && (c.InfluxURL == "" || c.InfluxOrg == "" || c.InfluxBucket == "") {
		return fmt.Errorf("INFLUX_URL, INFLUX_ORG and INFLUX_BUCKET are required when INFLUX_ENABLED is set")
	}
	return nil
}

// PollTimeout is POLL_TIMEOUT_MS as a duration.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutMS) * time.Millisecond
}

// MockSampleInterval is MOCK_SAMPLE_INTERVAL_MS as a duration.
func (c *Config) MockSampleInterval() time.Duration {
	return time.Duration(c.MockSampleIntervalMS) * time.Millisecond
}

// IMUSampleInterval is IMU_SAMPLE_INTERVAL_MS as a duration.
func (c *Config) IMUSampleInterval() time.Duration {
	return time.Duration(c.IMUSampleIntervalMS) * time.Millisecond
}

// DisplayInterval is DISPLAY_UPDATE_INTERVAL as a duration.
func (c *Config) DisplayInterval() time.Duration {
	return time.Duration(c.DisplayUpdateInterval) * time.Millisecond
}

func parseInt(key, value string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, n)
	}
	return n, nil
}

// parseRange reads an MPU9250 full-scale selector. For accel 0-3 means
// ±2/4/8/16 g, for gyro ±250/500/1000/2000 °/s.
func parseRange(key, value string) (byte, error) {
	n, err := parseInt(key, value, 0, 3)
	return byte(n), err
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// InitGlobal initializes the global configuration from file.
// It only runs once, even if called multiple times.
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
