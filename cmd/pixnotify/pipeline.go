package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	common "github.com/example/pixauto-notifier/internal/adapters/common"
	emailadapter "github.com/example/pixauto-notifier/internal/adapters/email"
	smsadapter "github.com/example/pixauto-notifier/internal/adapters/sms"
	"github.com/example/pixauto-notifier/internal/classifier"
	"github.com/example/pixauto-notifier/internal/config"
	"github.com/example/pixauto-notifier/internal/directory"
	"github.com/example/pixauto-notifier/internal/enrichment"
	"github.com/example/pixauto-notifier/internal/identity"
	"github.com/example/pixauto-notifier/internal/logger"
	"github.com/example/pixauto-notifier/internal/models"
	"github.com/example/pixauto-notifier/internal/notification"
	"github.com/example/pixauto-notifier/internal/providers/factory"
	"github.com/example/pixauto-notifier/internal/store/postgres"
)

// pipeline holds the collaborators shared by the worker and process commands.
type pipeline struct {
	store        *postgres.PaymentInfoStore
	classifier   *classifier.Classifier
	orchestrator *notification.Orchestrator
}

func setup(cfg *config.Config) (zerolog.Logger, error) {
	base, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("logger init: %w", err)
	}
	return *base, nil
}

func buildPipeline(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pipeline, error) {
	store, err := postgres.Open(ctx, cfg.Store.PostgresDSN, cfg.Store.MaxOpenConns, log)
	if err != nil {
		return nil, err
	}
	p, err := assemble(cfg, store, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return p, nil
}

func assemble(cfg *config.Config, store *postgres.PaymentInfoStore, log zerolog.Logger) (*pipeline, error) {
	extractor, err := identity.NewExtractor(store, log)
	if err != nil {
		return nil, err
	}

	dirTimeout := time.Duration(cfg.Directories.TimeoutMs) * time.Millisecond
	billing, err := directory.NewBillingClient(cfg.Directories.MobileBillingURL, dirTimeout, log)
	if err != nil {
		return nil, err
	}
	subscribers, err := directory.NewSubscriberClient(cfg.Directories.MobileSubscriberURL, dirTimeout, log)
	if err != nil {
		return nil, err
	}
	contracts, err := directory.NewContractClient(cfg.Directories.ResidentialURL, dirTimeout, log)
	if err != nil {
		return nil, err
	}
	enricher, err := enrichment.NewEnricher(billing, subscribers, contracts, log,
		enrichment.WithConcurrentLookups(cfg.Directories.ConcurrentLookups))
	if err != nil {
		return nil, err
	}

	dispatcher, err := buildDispatcher(cfg, log)
	if err != nil {
		return nil, err
	}

	cls := classifier.New(cfg.Templates)
	orch, err := notification.NewOrchestrator(cfg.Notification.CampaignID, notification.Dependencies{
		Extractor:  extractor,
		Enricher:   enricher,
		Classifier: cls,
		Dispatcher: dispatcher,
		Logger:     log,
		Now:        time.Now,
	})
	if err != nil {
		return nil, err
	}
	return &pipeline{store: store, classifier: cls, orchestrator: orch}, nil
}

func buildDispatcher(cfg *config.Config, log zerolog.Logger) (*notification.ChannelDispatcher, error) {
	timeout := time.Duration(cfg.Timeouts.ProviderTimeoutSeconds) * time.Second

	smsProvider, err := factory.SMS(cfg.Providers, timeout, log)
	if err != nil {
		return nil, fmt.Errorf("sms provider: %w", err)
	}
	sms, err := smsadapter.NewAdapter(smsProvider, log, smsadapter.WithSender(cfg.Providers.SMSGateway.Sender))
	if err != nil {
		return nil, err
	}

	emailProvider, err := factory.Email(cfg.Providers, log)
	if err != nil {
		return nil, fmt.Errorf("email provider: %w", err)
	}
	email, err := emailadapter.NewAdapter(emailProvider, log, emailadapter.WithFrom(cfg.Providers.SMTP.From))
	if err != nil {
		return nil, err
	}

	return notification.NewChannelDispatcher(map[models.Channel]common.Adapter{
		models.ChannelSMS:   sms,
		models.ChannelEmail: email,
	}, log)
}

func (p *pipeline) Close() error {
	return p.store.Close()
}
