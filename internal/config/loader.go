package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "cloudia"
	configFile = "config.yaml"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/cloudia or $HOME/.config/cloudia
//   - macOS: $HOME/.config/cloudia (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\cloudia
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			// Fallback to USERPROFILE\AppData\Local if LOCALAPPDATA not set
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// DefaultPath returns the full path to the default configuration file.
func DefaultPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// ResolvePath returns path, or DefaultPath when path is empty.
func ResolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultPath()
}

// Load reads, defaults and validates the configuration file at path.
// An empty path loads DefaultPath.
func Load(path string) (*AppConfig, error) {
	path, err := ResolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes, defaults and validates YAML configuration data.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *AppConfig) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes the configuration to path.
// Performs an atomic write to prevent corruption on crash.
func (c *AppConfig) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// WriteExample writes an annotated example configuration to path.
func WriteExample(path string) error {
	return writeAtomic(path, []byte(exampleConfig))
}

func writeAtomic(path string, data []byte) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	// Create directory with user-only permissions (0700)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write to temporary file first (atomic write)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	// Atomic rename (this is atomic on all platforms)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

const exampleConfig = `# cloudia configuration file
#
# The API key below grants access to your LoRaWAN application. Keep this
# file readable by your user only.

version: 1

# LoRaWAN network server (The Things Stack MQTT integration)
lns:
  host: eu1.cloud.thethings.network
  port: 1883
  appid: my-cloudia-app
  appkey: NNSXS.XXXXXXXXXXXXXXXX
  qos: 0
  tls: false

# InfluxDB v2 sink. Remove this section to run without it.
influxdb:
  url: http://localhost:8086
  token: my-token
  org: my-org
  bucket: cloudia
  measurement: TH
  timeout: 10000 # milliseconds
  verify_ssl: true

# Live websocket feed for "cloudia-tool watch"
feed:
  enabled: true
  addr: ":8090"
  advertise: true
  instance: cloudia

log:
  level: info # debug, info, warn, error
  format: console # console or json

# Optional nicknames, keyed by dev_eui
devices:
  70B3D57ED005A1B2:
    nickname: Greenhouse
    location: North wall
`
