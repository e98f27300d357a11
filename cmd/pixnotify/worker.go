package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/pixauto-notifier/internal/config"
	"github.com/example/pixauto-notifier/internal/kafka/consumer"
	"github.com/example/pixauto-notifier/internal/kafka/producer"
	"github.com/example/pixauto-notifier/internal/kafka/publisher"
	"github.com/example/pixauto-notifier/internal/metrics"
	"github.com/example/pixauto-notifier/internal/server"
	"github.com/example/pixauto-notifier/internal/worker"
)

const drainTimeout = 30 * time.Second

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume payment callbacks from Kafka and notify customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context())
		},
	}
}

func runWorker(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateWorker(); err != nil {
		return err
	}
	log, err := setup(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	pipe, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := pipe.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close payment store")
		}
	}()

	prod, err := producer.New(cfg.Kafka.Brokers, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := prod.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka producer")
		}
	}()

	var outcomes worker.OutcomePublisher
	if cfg.Topics.Outcome != "" {
		outcomes = publisher.NewOutcomePublisher(prod, cfg.Topics.Outcome, log)
	}
	var dlq worker.DLQPublisher
	if cfg.Topics.DLQ != "" {
		dlq = publisher.NewDLQPublisher(prod, cfg.Topics.DLQ, log)
	}

	engine, err := worker.NewEngine(worker.Config{
		MsgMaxBytes: cfg.Worker.MsgMaxBytes,
		Concurrency: cfg.Worker.Concurrency,
	}, worker.Dependencies{
		Gate:             pipe.classifier,
		Pipeline:         pipe.orchestrator,
		OutcomePublisher: outcomes,
		DLQPublisher:     dlq,
		Logger:           log,
		Now:              time.Now,
	})
	if err != nil {
		return err
	}

	cons, err := consumer.New(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, cfg.Worker.CommitOnSuccessOnly, log)
	if err != nil {
		return err
	}

	ops := server.New(reg, log,
		server.Check{Name: "consumer", Probe: server.ReadyFunc(cons.IsReady)},
		server.Check{Name: "producer", Probe: server.ReadyFunc(prod.IsReady)},
		server.Check{Name: "payment_store", Probe: pipe.store.Ping},
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ops.Run(gctx, ":"+strconv.Itoa(cfg.App.Port))
	})
	g.Go(func() error {
		err := cons.Consume(gctx, []string{cfg.Topics.Callback}, worker.KafkaHandler(engine, cons))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	log.Info().
		Str("callback_topic", cfg.Topics.Callback).
		Str("consumer_group", cfg.Kafka.ConsumerGroup).
		Int("concurrency", cfg.Worker.Concurrency).
		Msg("pixauto worker started")

	runErr := g.Wait()

	if err := cons.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close kafka consumer")
	}
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := engine.Wait(drainCtx); err != nil {
		log.Warn().Err(err).Msg("in-flight callbacks did not finish before shutdown")
	}
	log.Info().Msg("pixauto worker stopped")
	return runErr
}
