package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	cli "github.com/urfave/cli/v3"

	"github.com/sicko7947/taskflow"
	"github.com/sicko7947/taskflow/agent"
	"github.com/sicko7947/taskflow/config"
	"github.com/sicko7947/taskflow/engine"
	"github.com/sicko7947/taskflow/example/pipeline"
	"github.com/sicko7947/taskflow/mailbox"
	"github.com/sicko7947/taskflow/store"
	"github.com/sicko7947/taskflow/telemetry"
)

const (
	redisPingTimeout = 5 * time.Second
	tableWaitTimeout = 2 * time.Minute
)

// newTracer is replaced in tests
var newTracer = telemetry.NewTracer

// app holds everything built from the configuration
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  taskflow.SnapshotStore
	engine *engine.Engine
	agent  *agent.Agent

	closers []func(context.Context) error
}

// loadConfig reads the config file and applies the global flag overrides
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if level := cmd.String("log-level"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, cfg.Validate()
}

func newLogger(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// setup builds the store, history, engine and agent
func setup(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: newLogger(cfg.Log, os.Stdout),
	}

	tracer, shutdown, err := newTracer(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	a.store, err = newStore(ctx, cfg.Store, a.logger)
	if err != nil {
		a.close(context.WithoutCancel(ctx))
		return nil, err
	}

	history, err := a.newHistoryLog(ctx, cfg.History)
	if err != nil {
		a.close(context.WithoutCancel(ctx))
		return nil, err
	}

	engineOpts := []engine.EngineOption{
		engine.WithLogger(a.logger),
		engine.WithConfig(cfg.Engine.EngineConfig),
		engine.WithTracer(tracer),
	}
	if cfg.Engine.PersistSnapshots {
		engineOpts = append(engineOpts, engine.WithStore(a.store))
	}
	a.engine = engine.NewEngine(engineOpts...)

	agentOpts := []agent.Option{agent.WithLogger(a.logger)}
	if history != nil {
		agentOpts = append(agentOpts, agent.WithHistoryLog(history))
	}
	a.agent = agent.New(pipeline.New, a.engine, agentOpts...)

	a.logger.Info().
		Str("store", cfg.Store.Backend).
		Str("history", cfg.History.Backend).
		Bool("persist_snapshots", cfg.Engine.PersistSnapshots).
		Bool("tracing", cfg.Tracing.Enabled).
		Msg("Taskflow initialized")

	return a, nil
}

func newStore(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (taskflow.SnapshotStore, error) {
	if cfg.Backend != config.BackendDynamoDB {
		return store.NewMemoryStore(), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	if cfg.CreateTable {
		if err := store.CreateTable(ctx, client, cfg.Table, tableWaitTimeout); err != nil {
			return nil, fmt.Errorf("failed to create table %s: %w", cfg.Table, err)
		}
		logger.Info().Str("table", cfg.Table).Msg("DynamoDB table ready")
	}

	return store.NewDynamoDBStore(client, cfg.Table), nil
}

// newHistoryLog returns nil for the in-memory default
func (a *app) newHistoryLog(ctx context.Context, cfg config.HistoryConfig) (mailbox.HistoryLog[agent.Request, agent.Response], error) {
	if cfg.Backend != config.BackendRedis {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	return mailbox.NewRedisLog[agent.Request, agent.Response](client, cfg.RedisKey), nil
}

// close releases resources in reverse order of creation
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Error().Err(err).Msg("Failed to release resource")
		}
	}
}
