// cmd/config.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chrisglass/windmobile/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Shows or initializes the windmobile configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cfg.Redis.Password != "" {
			cfg.Redis.Password = "********"
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Print(string(data))
		if err := cfg.Validate(); err != nil {
			warnColor.Printf("# invalid: %v\n", err)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [station-id...]",
	Short: "Writes a config file with defaults and the given favourite stations",
	Example: `  windmobile config init jdc-1001 jdc-1002`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		cfg := config.DefaultConfig()
		cfg.Stations = args
		if err := cfg.Save(path); err != nil {
			return err
		}
		goodColor.Printf("✓ wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing config file")
}
