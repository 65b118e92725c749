package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"stockteam/internal/analysis"
	"stockteam/internal/channels"
	"stockteam/internal/config"
	"stockteam/internal/gateway"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.close(context.WithoutCancel(ctx))

		if serveAddr != "" {
			a.cfg.Gateway.Addr = serveAddr
		}

		svc, err := a.analysisService()
		if err != nil {
			return err
		}

		chs, err := buildChannels(a.cfg, svc)
		if err != nil {
			return err
		}

		// Start channels in background.
		for _, ch := range chs {
			go func(c channels.Channel) {
				if err := c.Start(ctx); err != nil && ctx.Err() == nil {
					slog.Error("channel stopped", "name", c.Name(), "error", err)
				}
			}(ch)
		}

		var opts []gateway.Option
		opts = append(opts, gateway.WithRunStore(a.store))
		if a.cfg.Gateway.Token != "" {
			opts = append(opts, gateway.WithToken(a.cfg.Gateway.Token))
		}
		srv := gateway.NewServer(svc, chs, opts...)
		slog.Info("starting gateway", "addr", a.cfg.Gateway.Addr, "channels", len(chs), "backend", a.cfg.Research.Backend)
		return srv.ListenAndServe(ctx, a.cfg.Gateway.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "override gateway listen address")
}

func buildChannels(cfg *config.Config, analyzer analysis.Analyzer) ([]channels.Channel, error) {
	var chs []channels.Channel
	for name, ch := range cfg.Channels {
		if ch == nil || !ch.Enabled {
			continue
		}
		switch ch.Type {
		case "telegram":
			var opts []channels.TelegramOption
			if v, ok := ch.Settings["allowed_users"]; ok {
				allowedUsers, err := channels.ParseAllowedUsers(v)
				if err != nil {
					return nil, fmt.Errorf("channel %s: %w", name, err)
				}
				opts = append(opts, channels.WithAllowedUsers(allowedUsers))
			}
			if v := ch.Settings["webhook_url"]; v != "" {
				opts = append(opts, channels.WithWebhookURL(v))
			}
			chs = append(chs, channels.NewTelegram(ch.Settings["bot_token"], analyzer, opts...))
			slog.Info("channel registered", "name", name, "type", ch.Type)
		default:
			slog.Warn("unknown channel type", "name", name, "type", ch.Type)
		}
	}
	return chs, nil
}
