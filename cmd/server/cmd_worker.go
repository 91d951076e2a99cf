package main

import (
	"context"
	"errors"

	"shoestore/internal/broker"
	"shoestore/internal/worker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// shoestore worker: consumes order events into the audit trail
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the order event audit worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot("worker")
		if err != nil {
			return err
		}
		defer a.close()

		rc, err := a.redis(false)
		if err != nil {
			return err
		}
		var catalog worker.CatalogInvalidator
		if rc != nil {
			defer rc.Close()
			catalog = rc
		}

		consumer := broker.NewConsumer(a.cfg.Kafka.Brokers, a.cfg.Kafka.TopicOrder, a.cfg.Kafka.ConsumerGroup)
		auditWorker := worker.NewAuditWorker(consumer, a.store, catalog)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- auditWorker.Start(ctx)
		}()

		go func() {
			waitForSignal()
			cancel()
		}()

		err = <-done
		if stopErr := auditWorker.Stop(); stopErr != nil {
			a.logger.Warn("Error stopping worker", zap.Error(stopErr))
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
