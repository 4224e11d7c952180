package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudia/cloudia/internal/config"
	"github.com/cloudia/cloudia/internal/ui"
)

// Config command flags
var (
	configFile  string
	forceInit   bool
	showSecrets bool
	location    string
)

func init() {
	configCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to configuration file (default: platform config dir)")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configNicknameCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Create, inspect and edit the YAML configuration shared by the cloudia binaries.

The file holds the network server credentials and the InfluxDB token and
is created readable by your user only.`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ResolvePath(configFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an annotated example configuration",
	Example: `  # Create the default configuration file
  cloudia-tool config init

  # Replace an existing file
  cloudia-tool config init --config ./cloudia.yaml --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.ResolvePath(configFile)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.WriteExample(path); err != nil {
		return err
	}

	ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Configuration Created",
		ui.Param{Key: "Path", Value: path},
		ui.Param{Key: "Next", Value: "edit lns.appid and lns.appkey, then run 'cloudia-bridge serve'"},
	)
	return nil
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Load the configuration file, apply defaults and print the result.

The LNS API key and the InfluxDB token are masked unless --show-secrets is
given.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	configShowCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print credentials in clear text")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if !showSecrets {
		cfg.LNS.AppKey = maskSecret(cfg.LNS.AppKey)
		if cfg.InfluxDB != nil {
			cfg.InfluxDB.Token = maskSecret(cfg.InfluxDB.Token)
		}
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

var configNicknameCmd = &cobra.Command{
	Use:   "nickname <dev_eui> <name>",
	Short: "Set the display name of a sensor",
	Long: `Store a nickname for a sensor. The bridge attaches it to every record
written to the live feed and the log. An empty name removes the entry.`,
	Example: `  cloudia-tool config nickname 70B3D57ED005A1B2 Greenhouse --location "north wall"
  cloudia-tool config nickname 70B3D57ED005A1B2 ""`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigNickname,
}

func init() {
	configNicknameCmd.Flags().StringVar(&location, "location", "", "Optional free-text location")
}

func runConfigNickname(cmd *cobra.Command, args []string) error {
	path, err := config.ResolvePath(configFile)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	devEUI, name := strings.ToUpper(args[0]), args[1]
	if name == "" {
		delete(cfg.Devices, devEUI)
	} else {
		cfg.Devices[devEUI] = &config.Device{Nickname: name, Location: location}
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Device Updated",
		ui.Param{Key: "dev_eui", Value: devEUI},
		ui.Param{Key: "Name", Value: cfg.DeviceName(devEUI)},
	)
	return nil
}

// maskSecret keeps the first four characters of s.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
