/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/musicclub/apiserver/config"
	"github.com/musicclub/apiserver/internal/logging"
	"github.com/musicclub/apiserver/internal/mq"
	"github.com/musicclub/apiserver/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// eventsCmd groups message queue tooling.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect published domain events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log role change events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		logger, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is none; nothing to watch")
		}
		defer queue.Close()

		events := mq.NewRoleEvents(queue, cfg.MQ.RoleEventsChannel)
		logger.Info("watching role events", zap.String("channel", cfg.MQ.RoleEventsChannel))
		err = events.Watch(ctx, func(_ context.Context, e types.RoleChangeEvent) error {
			logger.Info("role changed",
				zap.Int("user_id", e.UserID),
				zap.String("old_role", string(e.OldRole)),
				zap.String("new_role", string(e.NewRole)),
				zap.Int("changed_by", e.ChangedBy),
				zap.Time("changed_at", e.ChangedAt),
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)
}
