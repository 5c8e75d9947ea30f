package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/marmos91/dittoiod/pkg/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var (
	initForce bool
	initPath  string
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := initPath
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		if err := config.InitConfigToPath(path, initForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (container %q, type %s, checksums %t)\n",
			cfg.Container.Name, cfg.Container.Type, cfg.Integrity.Checksum)
		return nil
	},
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema [output]",
	Short: "Write the JSON schema of the configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := configSchema()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		}
		if err := os.WriteFile(args[0], data, 0644); err != nil {
			return fmt.Errorf("failed to write schema file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Schema written to %s\n", args[0])
		return nil
	},
}

// configSchema reflects config.Config into an inlined JSON schema. Field
// names follow the mapstructure tags the loader uses.
func configSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "mapstructure",
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "dittoiod configuration"
	schema.Description = "Configuration schema for dittoiod"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

func init() {
	configInitCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")
	configInitCmd.Flags().StringVarP(&initPath, "output", "o", "", "path to write (default location if empty)")

	configCmd.AddCommand(configInitCmd, configValidateCmd, configSchemaCmd)
}
