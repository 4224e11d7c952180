// Package config provides configuration file handling for the cloudia binaries.
//
// The configuration is a YAML file with one section per collaborator:
//   - lns: MQTT connection to the LoRaWAN network server
//   - influxdb: optional time-series sink
//   - feed: live websocket feed and its mDNS advertisement
//   - log: log level and encoding
//   - devices: optional nicknames keyed by dev_eui
//
// A file holding only the lns and influxdb sections is valid; everything
// else has defaults.
//
// # Configuration File Location
//
// When no path is given the file is looked up in platform-appropriate
// locations:
//   - Linux: $XDG_CONFIG_HOME/cloudia/config.yaml or $HOME/.config/cloudia/config.yaml
//   - macOS: $HOME/.config/cloudia/config.yaml
//   - Windows: %LOCALAPPDATA%\cloudia\config.yaml
//
// # Usage Example
//
//	cfg, err := config.Load(flagConfig) // "" selects DefaultPath
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.LNS.BrokerURL())
//
// # Security
//
// The file holds the LNS API key and the InfluxDB token. Save and
// WriteExample create it with 0600 permissions.
package config
