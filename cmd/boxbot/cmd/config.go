package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/psantana5/boxbot/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration inspection",
	Long:  `Commands for inspecting the effective configuration after defaults, config file, BOXBOT_* environment variables and flags are merged.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().StringVarP(&configOutput, "output", "o", "yaml", "Output format: yaml, json")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	values := config.Settings(settings)
	out := cmd.OutOrStdout()

	switch {
	case isJSON(configOutput):
		data, err := json.MarshalIndent(values, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case configOutput == "yaml":
		data, err := yaml.Marshal(values)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		fmt.Fprint(out, string(data))
	default:
		return fmt.Errorf("unknown output format: %s", configOutput)
	}
	return nil
}
