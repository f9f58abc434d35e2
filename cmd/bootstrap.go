package cmd

import (
	"context"
	"fmt"

	"jsoncache/core/config"
	"jsoncache/core/database"
	"jsoncache/core/logger"
	"jsoncache/core/merge"
	"jsoncache/core/schema"
	"jsoncache/core/storage"
	"jsoncache/core/store"
	cachesync "jsoncache/feature/sync"

	"go.uber.org/zap"
)

// app bundles what every command needs once the cache is bootstrapped.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *store.Store
	engine  *merge.Engine
	service *cachesync.Service
}

// bootstrap loads the configuration and model, opens the store and migrates it.
// withStorage also creates the bucket client.
func bootstrap(ctx context.Context, withStorage bool) (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	opts, err := cfg.Cache.Options()
	if err != nil {
		return nil, err
	}

	model, err := schema.Load(cfg.Cache.ModelPath)
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(db, model, store.Options{DateFormat: opts.DateFormat, Logger: l})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	l.Info("Store ready",
		zap.String("model", model.Name),
		zap.String("driver", cfg.Database.Driver),
		zap.Int("entities", len(model.Entities)),
	)

	var client storage.Client
	if withStorage {
		if client, err = storage.NewClient(cfg.Storage); err != nil {
			st.Close()
			return nil, err
		}
	}

	engine := merge.New(st, opts, l)
	return &app{
		cfg:     cfg,
		logger:  l,
		store:   st,
		engine:  engine,
		service: cachesync.NewService(engine, st, client, cfg.Storage.Bucket, l),
	}, nil
}

func (a *app) close() {
	a.store.Close()
	_ = a.logger.Sync()
}
