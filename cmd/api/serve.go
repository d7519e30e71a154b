package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"blackbox-backend/internal/ai"
	"blackbox-backend/internal/analytics"
	"blackbox-backend/internal/chat"
	"blackbox-backend/internal/config"
	"blackbox-backend/internal/db"
	"blackbox-backend/internal/server"
	"blackbox-backend/internal/settings"
	"blackbox-backend/internal/tasks"
)

const shutdownTimeout = 10 * time.Second

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "blackbox-api",
		Usage: "Serve the BLACKBOX dashboard API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				Sources: cli.EnvVars("BLACKBOX_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Address to listen on",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "seed-demo",
				Usage: "Start with the demo task board",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	// CLI flags override file and env
	if cmd.IsSet("addr") {
		cfg.Addr = cmd.String("addr")
	}
	if cmd.IsSet("debug") {
		cfg.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("seed-demo") {
		cfg.SeedDemoTasks = cmd.Bool("seed-demo")
	}

	if cfg.Debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	kv, events, closeDB, err := openStores(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeDB()

	client := ai.New(cfg.Completion.URL, cfg.Completion.APIKey, cfg.Completion.Model, cfg.Completion.Timeout)
	client.CustomerID = cfg.Completion.CustomerID

	defaults := settings.Defaults()
	defaults.AIModel = cfg.Completion.Model
	defaults.Temperature = cfg.Completion.Temperature
	defaults.MaxTokens = cfg.Completion.MaxTokens
	settingsSvc := settings.NewService(kv, defaults, ai.DefaultSystemPrompt)

	insights := ai.NewInsightGenerator(client, ai.Params{
		Model:       cfg.Completion.Model,
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.InsightMaxTokens,
	})

	taskStore := tasks.NewStore(insights)
	if cfg.SeedDemoTasks {
		taskStore.Seed(tasks.DemoTasks()...)
		slog.Info("seeded demo tasks", "count", taskStore.Len())
	}
	chatStore := chat.NewStore(client, settingsSvc)

	hub := analytics.NewHub()
	sampler := analytics.NewSampler(cfg.MetricsSchedule, hub)

	srv := server.New(cfg.Addr, cfg.AllowedOrigins, server.Deps{
		Tasks:     tasks.New(taskStore, insights, events),
		Chat:      chat.New(chatStore, client, settingsSvc, events),
		Settings:  &settings.Handler{Service: settingsSvc},
		Analytics: &analytics.Handler{Sink: events, Sampler: sampler, Hub: hub},
	})

	slog.Info("starting blackbox API",
		"addr", cfg.Addr,
		"store", cfg.Store.Driver,
		"model", cfg.Completion.Model,
		"completion_url", cfg.Completion.URL,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error { return sampler.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	slog.Info("waiting for in-flight completions")
	taskStore.Wait()
	chatStore.Wait()

	return err
}

// openStores returns the settings KV and the analytics sink for the
// configured driver. The memory driver needs no database.
func openStores(ctx context.Context, sc config.StoreConfig) (settings.KV, analytics.Sink, func(), error) {
	driver, dsn := sc.DSN()
	if driver == "" {
		return settings.NewMemoryKV(), analytics.NewMemorySink(0), func() {}, nil
	}

	database, err := db.Connect(driver, dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	slog.Info("connected to database", "driver", driver)

	kv, err := settings.NewSQLKV(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, nil, err
	}
	sink, err := analytics.NewSQLSink(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, nil, err
	}

	return kv, sink, func() { database.Close() }, nil
}
