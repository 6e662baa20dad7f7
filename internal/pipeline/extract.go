// Package pipeline wires the dump reader, extractor and graph builder into
// one extraction pass.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/dump"
	"github.com/dbsmedya/catalogsync/internal/extract"
	"github.com/dbsmedya/catalogsync/internal/graph"
	"github.com/dbsmedya/catalogsync/internal/logger"
	"github.com/dbsmedya/catalogsync/internal/snapshot"
)

// Result is everything one pass over the dump produced.
type Result struct {
	Read    *dump.Stats
	Rows    extract.Stats
	Indices *extract.Indices
	Graph   *graph.Graph
	Build   graph.BuildStats
}

// Scan reads the dump at cfg.Dump.Path once and returns the indices. A
// missing or unreadable dump fails before any row is processed.
func Scan(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Result, error) {
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithStage("extract")

	info, err := os.Stat(cfg.Dump.Path)
	if err != nil {
		return nil, fmt.Errorf("dump not readable: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("dump path %s is a directory", cfg.Dump.Path)
	}

	ex := extract.New(cfg.Legacy, log)
	reader := dump.NewReader(dump.Options{
		MaxLineBytes:     cfg.Dump.MaxLineBytes,
		ProgressInterval: cfg.Dump.ProgressIntervalLines,
	}, log, ex.Tables()...)

	read, err := reader.ReadFile(ctx, cfg.Dump.Path, ex.Handle)
	if err != nil {
		return nil, err
	}

	idx := ex.Indices()
	log.Infow("Dump indexed",
		"category_names", idx.Categories.Len(),
		"product_names", idx.Products.Len(),
		"links", idx.Adjacency.Pairs(),
		"skipped_rows", ex.Stats().Skipped(),
	)
	return &Result{Read: read, Rows: ex.Stats(), Indices: idx}, nil
}

// Extract scans the dump and reconstructs the category graph.
func Extract(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Result, error) {
	res, err := Scan(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewDefault()
	}
	res.Graph, res.Build = graph.NewBuilder(cfg.Legacy.ReservedCategoryNames, log.WithStage("reconstruct")).Build(res.Indices)
	return res, nil
}

// ExtractToSnapshot runs Extract and persists the graph to store. The
// snapshot is written only after the full pass succeeded.
func ExtractToSnapshot(ctx context.Context, cfg *config.Config, store snapshot.Store, log *logger.Logger) (*Result, error) {
	res, err := Extract(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := store.Save(ctx, res.Graph); err != nil {
		return nil, fmt.Errorf("failed to save snapshot to %s: %w", store.Location(), err)
	}
	return res, nil
}
