// Package ingest implements the stateful incremental ingestion pipeline:
// walk the corpus, classify each file by fingerprint, and load, chunk,
// embed, and index the files that are new or changed.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/corpus"
	"github.com/fyrsmithlabs/researchd/internal/vectorstore"
)

var tracer = otel.Tracer("researchd.ingest")

// Summary reports the outcome of one ingestion sweep.
type Summary struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

type fileStatus int

const (
	statusSkipped fileStatus = iota
	statusAdded
	statusUpdated
)

// Pipeline orchestrates loader, chunker, and store for a corpus directory,
// using the fingerprint tracker to decide add/update/skip per file.
//
// The pipeline assumes a single writer: two processes sweeping the same
// persisted store and record file concurrently is unsupported.
type Pipeline struct {
	loader  *corpus.Loader
	chunker *corpus.Chunker
	tracker *corpus.Tracker
	store   vectorstore.Store
	logger  *zap.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(loader *corpus.Loader, chunker *corpus.Chunker, tracker *corpus.Tracker, store vectorstore.Store, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		loader:  loader,
		chunker: chunker,
		tracker: tracker,
		store:   store,
		logger:  logger,
	}
}

// Ingest runs one sweep over the corpus directory, recursively.
//
// Per-file failures are logged and counted as skips without advancing the
// file's record entry, so they are retried on the next sweep. Structural
// failures (missing directory, walk failure) propagate. The ingestion
// record is persisted once after the walk.
//
// A second sweep over an unchanged corpus reports zero added and updated.
func (p *Pipeline) Ingest(ctx context.Context, dir string) (_ Summary, err error) {
	ctx, span := tracer.Start(ctx, "Pipeline.Ingest")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	span.SetAttributes(attribute.String("corpus_dir", dir))
	start := time.Now()

	info, err := os.Stat(dir)
	if err != nil {
		return Summary{}, fmt.Errorf("corpus directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Summary{}, fmt.Errorf("corpus path %s is not a directory", dir)
	}

	record := p.tracker.Load()
	var summary Summary

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories hold no corpus documents.
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !p.loader.Supported(path) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		switch p.processFile(ctx, path, record) {
		case statusAdded:
			summary.Added++
		case statusUpdated:
			summary.Updated++
		default:
			summary.Skipped++
		}
		return nil
	})
	if walkErr != nil {
		return summary, fmt.Errorf("walking corpus directory: %w", walkErr)
	}

	if err := p.tracker.Save(record); err != nil {
		return summary, fmt.Errorf("persisting ingestion record: %w", err)
	}

	sweepDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("added", summary.Added),
		attribute.Int("updated", summary.Updated),
		attribute.Int("skipped", summary.Skipped),
	)

	p.logger.Info("ingestion sweep finished",
		zap.String("dir", dir),
		zap.Int("added", summary.Added),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", time.Since(start)),
	)

	return summary, nil
}

// processFile classifies and, when needed, re-indexes a single file.
// Any failure is logged and reported as a skip; the record entry is only
// advanced after the file's vectors are fully added.
func (p *Pipeline) processFile(ctx context.Context, path string, record map[string]string) fileStatus {
	absPath, err := filepath.Abs(path)
	if err != nil {
		p.logger.Warn("resolving path failed", zap.String("path", path), zap.Error(err))
		filesProcessed.WithLabelValues("skipped").Inc()
		return statusSkipped
	}

	fpNow, err := corpus.Fingerprint(absPath)
	if err != nil {
		p.logger.Warn("fingerprinting failed", zap.String("path", absPath), zap.Error(err))
		filesProcessed.WithLabelValues("skipped").Inc()
		return statusSkipped
	}

	fpPrev, seen := record[absPath]
	if seen && fpPrev == fpNow {
		filesProcessed.WithLabelValues("skipped").Inc()
		return statusSkipped
	}

	status := p.reindexFile(ctx, absPath, fpNow, seen, record)
	switch status {
	case statusAdded:
		filesProcessed.WithLabelValues("added").Inc()
	case statusUpdated:
		filesProcessed.WithLabelValues("updated").Inc()
	default:
		filesProcessed.WithLabelValues("skipped").Inc()
	}
	return status
}

func (p *Pipeline) reindexFile(ctx context.Context, absPath, fpNow string, seen bool, record map[string]string) fileStatus {
	blocks := p.loader.Load(absPath)
	if len(blocks) == 0 {
		// Transient read failures are retried next sweep because the
		// record entry stays at its old value.
		p.logger.Warn("no text extracted, skipping", zap.String("path", absPath))
		return statusSkipped
	}

	info, err := os.Stat(absPath)
	if err != nil {
		p.logger.Warn("stat failed, skipping", zap.String("path", absPath), zap.Error(err))
		return statusSkipped
	}

	meta := corpus.FileMeta{
		DocID:      fpNow,
		FileName:   filepath.Base(absPath),
		FilePath:   absPath,
		ModifiedAt: info.ModTime(),
	}

	chunks, err := p.chunker.Chunk(blocks, meta)
	if err != nil {
		p.logger.Warn("chunking failed, skipping", zap.String("path", absPath), zap.Error(err))
		return statusSkipped
	}
	if len(chunks) == 0 {
		p.logger.Warn("no chunks produced, skipping", zap.String("path", absPath))
		return statusSkipped
	}

	if seen {
		// Mark the update as in-flight before deleting, so a crash between
		// delete and add leaves the file classified as changed on the next
		// sweep instead of silently under-indexed.
		record[absPath] = ""
		if err := p.tracker.Save(record); err != nil {
			p.logger.Warn("persisting pending-update marker failed, skipping",
				zap.String("path", absPath), zap.Error(err))
			return statusSkipped
		}

		// Stale vectors must be gone before new ones land.
		if err := p.store.DeleteByFilePath(ctx, absPath); err != nil {
			p.logger.Warn("deleting stale vectors failed, skipping",
				zap.String("path", absPath), zap.Error(err))
			return statusSkipped
		}
	}

	docs := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vectorstore.Document{
			ID:       chunk.ID,
			Content:  chunk.Text,
			Metadata: chunk.Metadata(),
		}
	}

	if _, err := p.store.AddDocuments(ctx, docs); err != nil {
		p.logger.Warn("indexing failed, skipping", zap.String("path", absPath), zap.Error(err))
		return statusSkipped
	}

	record[absPath] = fpNow
	chunksIndexed.Add(float64(len(chunks)))

	p.logger.Debug("file indexed",
		zap.String("path", absPath),
		zap.Int("chunks", len(chunks)),
		zap.Bool("update", seen),
	)

	if seen {
		return statusUpdated
	}
	return statusAdded
}
