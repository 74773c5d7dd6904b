/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/whiskeyshelf/apiserver/config"
	"github.com/whiskeyshelf/apiserver/internal/mq"
	"github.com/whiskeyshelf/apiserver/internal/storage"
	"github.com/whiskeyshelf/apiserver/internal/worker"
)

// workerCmd runs the image cleanup consumer.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Delete whiskey images that are no longer referenced",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if cfg.MQ.Backend == config.MQBackendNone || cfg.MQ.Backend == "" {
			return errors.New("worker requires MQ_BACKEND to be rabbitmq or pubsub")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		objects, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("open broker: %w", err)
		}
		defer broker.Close()

		err = worker.NewImageCleanup(objects, slog.Default()).Run(ctx, broker)
		if errors.Is(err, context.Canceled) {
			slog.Info("worker stopped")
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
