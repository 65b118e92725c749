package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"stockteam/internal/agent"
	"stockteam/internal/console"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs or print one transcript",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		a := &app{cfg: cfg}
		if err := a.openHistory(); err != nil {
			return err
		}
		defer a.close(context.Background())

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			run, err := a.store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			r := console.New(out)
			for _, m := range run.Messages {
				r.Handle(agent.Event{Type: agent.EventMessage, Source: m.Source, Data: m})
			}
			if run.Error != "" {
				r.Handle(agent.Event{Type: agent.EventError, Data: run.Error})
			} else if run.StopReason != "" {
				r.Handle(agent.Event{Type: agent.EventDone, Data: run.StopReason})
			}
			return nil
		}

		runs, err := a.store.ListRuns(ctx, historyLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTOCK\tSTATUS\tSTARTED\tSTOP REASON")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Stock, r.Status, r.CreatedAt.Local().Format(time.DateTime), r.StopReason)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
}
