package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// CurrentVersion is the config file format version written by this release.
const CurrentVersion = 1

// AppConfig represents the entire configuration file.
type AppConfig struct {
	Version  int                `yaml:"version,omitempty"`
	LNS      *LNSConfig         `yaml:"lns"`
	InfluxDB *InfluxConfig      `yaml:"influxdb,omitempty"` // Optional: no Influx sink without it
	Feed     *FeedConfig        `yaml:"feed,omitempty"`
	Log      *LogConfig         `yaml:"log,omitempty"`
	Devices  map[string]*Device `yaml:"devices,omitempty"` // Keyed by upper-case dev_eui
}

// LNSConfig holds the LoRaWAN network server MQTT settings.
type LNSConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	AppID    string `yaml:"appid"`               // Application ID, also the MQTT username
	AppKey   string `yaml:"appkey"`              // API key, used as the MQTT password
	ClientID string `yaml:"client_id,omitempty"` // Empty picks a random ID
	QoS      byte   `yaml:"qos"`
	TLS      bool   `yaml:"tls"`
}

// InfluxConfig holds the InfluxDB v2 sink settings.
type InfluxConfig struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement,omitempty"`
	TimeoutMS   int    `yaml:"timeout"` // Milliseconds
	VerifySSL   bool   `yaml:"verify_ssl"`
}

// FeedConfig holds the live websocket feed settings.
type FeedConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`                // Listen address, e.g. ":8090"
	Advertise bool   `yaml:"advertise"`           // Announce the feed over mDNS
	Instance  string `yaml:"instance,omitempty"`  // mDNS instance name
	CertFile  string `yaml:"cert_file,omitempty"` // Serve wss:// when set with KeyFile
	KeyFile   string `yaml:"key_file,omitempty"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Device represents user-defined metadata for one sensor.
type Device struct {
	Nickname string `yaml:"nickname,omitempty"` // User-friendly name
	Location string `yaml:"location,omitempty"`
}

// Default values
const (
	DefaultMQTTPort      = 1883
	DefaultMQTTTLSPort   = 8883
	DefaultMeasurement   = "TH"
	DefaultInfluxTimeout = 10000
	DefaultFeedAddr      = ":8090"
	DefaultFeedInstance  = "cloudia"
)

// NewAppConfig creates an AppConfig with default values.
func NewAppConfig() *AppConfig {
	c := &AppConfig{Version: CurrentVersion}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills in every unset optional field.
func (c *AppConfig) ApplyDefaults() {
	if c.Version == 0 {
		c.Version = CurrentVersion
	}
	if c.LNS == nil {
		c.LNS = &LNSConfig{}
	}
	if c.LNS.Port == 0 {
		c.LNS.Port = DefaultMQTTPort
		if c.LNS.TLS {
			c.LNS.Port = DefaultMQTTTLSPort
		}
	}
	if c.InfluxDB != nil {
		if c.InfluxDB.Measurement == "" {
			c.InfluxDB.Measurement = DefaultMeasurement
		}
		if c.InfluxDB.TimeoutMS == 0 {
			c.InfluxDB.TimeoutMS = DefaultInfluxTimeout
		}
	}
	if c.Feed == nil {
		c.Feed = &FeedConfig{}
	}
	if c.Feed.Addr == "" {
		c.Feed.Addr = DefaultFeedAddr
	}
	if c.Feed.Instance == "" {
		c.Feed.Instance = DefaultFeedInstance
	}
	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	devices := make(map[string]*Device, len(c.Devices))
	for eui, d := range c.Devices {
		devices[strings.ToUpper(eui)] = d
	}
	c.Devices = devices
}

// Validate checks the configuration for missing or malformed values.
func (c *AppConfig) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if c.LNS == nil {
		return fmt.Errorf("lns: section missing")
	}
	if c.LNS.Host == "" {
		return fmt.Errorf("lns.host: required")
	}
	if c.LNS.Port <= 0 || c.LNS.Port > 65535 {
		return fmt.Errorf("lns.port: must be 1-65535, got %d", c.LNS.Port)
	}
	if c.LNS.AppID == "" {
		return fmt.Errorf("lns.appid: required")
	}
	if c.LNS.QoS > 2 {
		return fmt.Errorf("lns.qos: must be 0, 1 or 2, got %d", c.LNS.QoS)
	}

	if db := c.InfluxDB; db != nil {
		u, err := url.Parse(db.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("influxdb.url: invalid URL %q", db.URL)
		}
		if db.Org == "" || db.Bucket == "" {
			return fmt.Errorf("influxdb: org and bucket are required")
		}
		if db.TimeoutMS < 0 {
			return fmt.Errorf("influxdb.timeout: must be positive, got %d", db.TimeoutMS)
		}
	}

	if f := c.Feed; f != nil && (f.CertFile == "") != (f.KeyFile == "") {
		return fmt.Errorf("feed: cert_file and key_file must be set together")
	}

	return nil
}

// BrokerURL returns the MQTT broker URL for paho.
func (l *LNSConfig) BrokerURL() string {
	scheme := "tcp"
	if l.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, l.Host, l.Port)
}

// Timeout returns the InfluxDB request timeout.
func (i *InfluxConfig) Timeout() time.Duration {
	return time.Duration(i.TimeoutMS) * time.Millisecond
}

// DeviceName returns the configured nickname for devEUI, or devEUI itself.
func (c *AppConfig) DeviceName(devEUI string) string {
	if d, ok := c.Devices[strings.ToUpper(devEUI)]; ok && d.Nickname != "" {
		return d.Nickname
	}
	return devEUI
}
