package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/sworddrill/internal/config"
	"github.com/hyperjump/sworddrill/internal/indexer"
	"github.com/hyperjump/sworddrill/internal/keyword"
	"github.com/hyperjump/sworddrill/internal/search"
	"github.com/hyperjump/sworddrill/internal/storage"
)

// Components holds initialized services.
type Components struct {
	Storage  *storage.SQLiteStorage
	Index    *keyword.BleveIndex
	Engine   *search.Engine
	Importer *indexer.Importer
}

// Close releases the index and the database.
func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents opens storage and the full-text index. With
// freshIndex the index directory is removed first so it can be rebuilt.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, freshIndex bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	store.SetMaxOpenConns(cfg.Storage.MaxOpenConns)

	if freshIndex {
		if err := keyword.RemoveIndex(cfg.Storage.BleveIndexPath); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	index, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	engine := search.NewEngine(store, index,
		search.WithLogger(logger),
		search.WithResultLimit(cfg.Search.ResultLimit),
		search.WithMaxQueryLength(cfg.Search.MaxQueryLength),
	)
	c := &Components{
		Storage:  store,
		Index:    index,
		Engine:   engine,
		Importer: indexer.NewImporter(store, index, indexer.WithLogger(logger)),
	}

	if cfg.Search.PreloadAbbreviations {
		if err := engine.PreloadAbbreviations(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}
