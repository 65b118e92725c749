package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"stockteam/internal/research"

	"github.com/spf13/cobra"
)

var researchCmd = &cobra.Command{
	Use:   "research <topic> <stock...>",
	Short: "Run a single grounded research call",
	Long:  "Run a single grounded research call. Topics: " + strings.Join(topicNames(), ", ") + ".",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, ok := research.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown topic %q, want one of %s", args[0], strings.Join(topicNames(), ", "))
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.close(context.WithoutCancel(ctx))

		fmt.Fprintln(cmd.OutOrStdout(), a.researcher.Query(ctx, topic, strings.Join(args[1:], " ")))
		return nil
	},
}

func topicNames() []string {
	var names []string
	for _, t := range research.Topics() {
		names = append(names, t.Name)
	}
	return names
}
