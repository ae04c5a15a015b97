package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Abaaza/MJDv8/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pricematch",
	Short: "Semantic price matching for bill-of-quantities workbooks",
	Long:  "Extracts line items from BOQ inquiry workbooks, embeds them alongside a reference price list, and matches each item to its best-priced catalog entry.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
