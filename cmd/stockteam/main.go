package main

import (
	"os"

	"stockteam/internal/logger"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	logger.Init()
	rootCmd := &cobra.Command{
		Use:          "stockteam",
		Short:        "A team of research agents that decides whether to invest in a stock",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/stockteam/config.toml)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
