package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stockteam/internal/console"

	"github.com/spf13/cobra"
)

var (
	analyzeStream    bool
	analyzeNoHistory bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [stock...]",
	Short: "Run the investment team on a stock",
	Long: "Run the investment team on a stock. The words of the arguments form the stock name; " +
		"without arguments the configured default stock is analyzed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, !analyzeNoHistory)
		if err != nil {
			return err
		}
		defer a.close(context.WithoutCancel(ctx))

		svc, err := a.analysisService()
		if err != nil {
			return err
		}

		var opts []console.Option
		if analyzeStream {
			opts = append(opts, console.WithTokens())
		}
		renderer := console.New(os.Stdout, opts...)

		report, err := svc.Analyze(ctx, strings.Join(args, " "), renderer.Handle)
		if err != nil {
			return err
		}
		if !analyzeNoHistory {
			fmt.Fprintf(os.Stderr, "run %s saved\n", report.RunID)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVarP(&analyzeStream, "stream", "s", false, "stream model tokens as they arrive")
	analyzeCmd.Flags().BoolVar(&analyzeNoHistory, "no-history", false, "do not record the run")
}
