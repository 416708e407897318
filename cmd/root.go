package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rostermine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rostermine",
	Short: "Discover implicit scheduling constraints from historical rosters",
	Long:  "Mines staff assignment history for unwritten scheduling rules: weekly limits, weekday and work-type restrictions, and pairing patterns, each with a statistical confidence score.",
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
