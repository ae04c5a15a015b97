package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Dumps the merged configuration (defaults, config file, environment) as YAML. API keys are redacted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dump := *cfg
		if dump.Cohere.Key != "" {
			dump.Cohere.Key = "[redacted]"
		}

		out, err := yaml.Marshal(dump)
		if err != nil {
			return eris.Wrap(err, "marshal config")
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
