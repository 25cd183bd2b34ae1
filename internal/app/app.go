// Package app builds the projectideas components from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jacentio/projectideas/internal/config"
	"github.com/jacentio/projectideas/internal/telemetry"
	"github.com/jacentio/projectideas/manager"
	"github.com/jacentio/projectideas/messaging"
	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/notify"
	"github.com/jacentio/projectideas/search"
	"github.com/jacentio/projectideas/store"
	"github.com/jacentio/projectideas/stream"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *telemetry.Metrics
	Backend  *store.DynamoBackend
	Store    *store.Store
	Manager  *manager.Manager
	Messages *messaging.Dispatcher
	// Streams is nil unless store.stream_renames is set.
	Streams  *stream.Handler
}

// Build wires every component. reg receives the metrics when they are
// enabled; it may be nil otherwise.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*App, error) {
	awsCfg, err := loadAWS(ctx, cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("failed load aws config: %w", err)
	}

	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled && reg != nil {
		metrics = telemetry.New(reg)
	}

	ddb := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
		}
	})
	backend := store.NewDynamoBackend(ddb, store.DynamoConfig{
		TablePrefix:     cfg.Store.TablePrefix,
		ConsistentReads: cfg.Store.ConsistentReads,
	})
	s := store.New(backend, model.Registry(), store.Config{PageSize: cfg.Store.PageSize},
		store.WithLogger(logger.Named("store")),
		store.WithMetrics(metrics),
	)
	logger.Info("store is initialized",
		zap.String("tablePrefix", cfg.Store.TablePrefix),
		zap.String("endpoint", cfg.AWS.Endpoint),
	)

	notifier, err := buildNotifier(awsCfg, cfg, logger.Named("notify"))
	if err != nil {
		return nil, fmt.Errorf("failed init notifications: %w", err)
	}
	dispatcher := messaging.New(s, notifier,
		messaging.WithLogger(logger.Named("messaging")),
		messaging.WithMetrics(metrics),
	)

	opts := []manager.Option{
		manager.WithMailer(notifier),
		manager.WithDispatcher(dispatcher),
		manager.WithLogger(logger.Named("manager")),
		manager.WithMetrics(metrics),
	}
	index, err := buildSearch(cfg.Search, logger.Named("search"))
	if err != nil {
		return nil, fmt.Errorf("failed init search: %w", err)
	}
	if index != nil {
		opts = append(opts, manager.WithSearchIndex(index), manager.WithSearcher(index))
		logger.Info("search is initialized", zap.String("provider", cfg.Search.Provider))
	}
	if cfg.Store.StreamRenames {
		opts = append(opts, manager.WithStreamedRenames())
	}
	m := manager.New(s, opts...)

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Backend:  backend,
		Store:    s,
		Manager:  m,
		Messages: dispatcher,
	}
	if cfg.Store.StreamRenames {
		a.Streams = stream.NewHandler(m, logger.Named("stream"))
	}
	return a, nil
}

// CreateTables provisions the DynamoDB tables. With stream renames enabled the
// users table gets a stream so username changes reach the stream handler.
func (a *App) CreateTables(ctx context.Context) error {
	return a.Backend.CreateTables(ctx, a.Store.Registry(), a.streamedContainers()...)
}

func (a *App) streamedContainers() []string {
	if a.Config.Store.StreamRenames {
		return []string{model.UsersContainer}
	}
	return nil
}

func loadAWS(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// notifier both mails and notifies.
type notifier interface {
	manager.Mailer
	messaging.Notifier
}

func buildNotifier(awsCfg aws.Config, cfg *config.Config, logger *zap.Logger) (notifier, error) {
	if cfg.Notify.QueueURL == "" {
		logger.Warn("notify.queue_url not set; notifications are disabled")
		return notify.Nop{}, nil
	}
	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
		}
	})
	return notify.NewPublisher(client, cfg.Notify.QueueURL, logger)
}

func buildSearch(cfg config.SearchConfig, logger *zap.Logger) (*search.Index, error) {
	sc := search.Config{
		URLs:        cfg.URLs,
		Username:    cfg.Username,
		Password:    cfg.Password,
		IndexPrefix: cfg.IndexPrefix,
	}
	switch cfg.Provider {
	case config.SearchElasticsearch:
		return search.NewElasticsearch(sc, logger)
	case config.SearchOpenSearch:
		return search.NewOpenSearch(sc, logger)
	}
	return nil, nil
}
