package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"khata/internal/amqp"
	"khata/internal/cli"
	"khata/internal/log"
	"khata/internal/services"
	"khata/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitRepository(logger, cfg)

	amqpClient := cli.InitAMQP(logger, cfg)

	var events services.EventPublisher
	if amqpClient != nil {
		events = amqpClient
	}
	ledger := services.NewLedgerService(repo, events, nil)
	defer ledger.Close()

	chequeWorker := worker.NewChequeWorker(ledger, cfg.ChequeScanInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return chequeWorker.Run(gctx)
	})

	if amqpClient != nil {
		// Audit log: consume the ledger's own events so operators can tail
		// one stream for everything the service records.
		g.Go(func() error {
			return amqpClient.Consume(gctx, amqp.Handlers{
				TransactionRecorded: func(msg *amqp.TransactionRecordedMessage) error {
					logger.Info("Transaction recorded",
						"transaction_id", msg.TransactionID,
						"obligation_id", msg.ObligationID,
						log.FieldAccountID, msg.AccountID,
						log.FieldTxKind, msg.Kind)
					return nil
				},
				ChequeEvent: func(msgType string, msg *amqp.ChequeEventMessage) error {
					logger.Info("Cheque event",
						"type", msgType,
						log.FieldCheque, msg.ChequeID,
						log.FieldAccountID, msg.AccountID,
						"due_date", msg.DueDate.Format("2006-01-02"))
					return nil
				},
			})
		})
	}

	logger.Info("Starting khata-worker",
		"scan_interval", cfg.ChequeScanInterval,
		"backend", cfg.DataBackend)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
