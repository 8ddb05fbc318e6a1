package cache

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"semsearch/internal/domain"
)

// Status describes how a Resolve call satisfied its request.
type Status string

const (
	StatusHit     Status = "hit"
	StatusBuilt   Status = "built"
	StatusRebuilt Status = "rebuilt"
	StatusResumed Status = "resumed"
)

// Manager owns the manifest and checkpoint files for one corpus+model pair
// and orchestrates rebuilds through the embedder. It assumes a single
// writer; concurrent builds against the same corpus are not supported.
type Manager struct {
	embedder       domain.Embedder
	manifestPath   string
	checkpointPath string
	log            *zap.Logger
}

// NewManager creates a cache manager for the given corpus file. cacheDir
// overrides the default location (the corpus's own directory) when set.
func NewManager(embedder domain.Embedder, corpusPath, cacheDir string, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		embedder:       embedder,
		manifestPath:   ManifestPath(corpusPath, cacheDir),
		checkpointPath: CheckpointPath(corpusPath, cacheDir),
		log:            log,
	}
}

// Resolve returns a manifest valid for the given corpus state, building or
// rebuilding it as needed. On a build failure the checkpoint written by the
// embedder stays on disk so a later call can resume.
func (m *Manager) Resolve(ctx context.Context, chunks []domain.ChunkRecord, mtime time.Time, forceRebuild bool) (*Manifest, Status, error) {
	model := m.embedder.Model()
	existed := false
	if !forceRebuild {
		var manifest Manifest
		err := readJSON(m.manifestPath, &manifest)
		switch {
		case err == nil:
			existed = true
			if Valid(&manifest, len(chunks), mtime, model) {
				m.log.Debug("cache hit", zap.String("model", model), zap.Int("chunks", len(chunks)))
				return &manifest, StatusHit, nil
			}
			m.log.Info("cache stale, rebuilding",
				zap.String("model", model),
				zap.Int("cached_chunks", manifest.ChunkCount),
				zap.Int("live_chunks", len(chunks)))
		case errors.Is(err, os.ErrNotExist):
			// first build
		default:
			// Unreadable manifest is treated as stale rather than fatal;
			// a successful rebuild overwrites it. The log names the kind
			// so log consumers can tell self-heal from a first build.
			existed = true
			m.log.Warn("cache manifest unreadable, rebuilding",
				zap.String("kind", domain.KindMalformed.String()), zap.Error(err))
		}
	}

	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
		ids[i] = ch.ID
	}

	prefix := m.loadResumePrefix(len(chunks), model)
	resumed := len(prefix) > 0
	if resumed {
		m.log.Info("resuming from checkpoint", zap.Int("embedded", len(prefix)), zap.Int("total", len(chunks)))
	}

	sink := func(done [][]float64) error {
		cp := Checkpoint{
			Model:      model,
			ChunkCount: len(chunks),
			SavedAt:    time.Now().UTC(),
			Embeddings: append(append([][]float64{}, prefix...), done...),
		}
		return writeJSON(m.checkpointPath, &cp)
	}

	vectors, err := m.embedder.EmbedAll(ctx, texts[len(prefix):], sink)
	if err != nil {
		return nil, "", err
	}
	full := append(prefix, vectors...)
	if len(full) != len(chunks) {
		return nil, "", domain.Errf(domain.KindMalformed, "cache.Resolve",
			"embedded %d vectors for %d chunks", len(full), len(chunks))
	}

	manifest := &Manifest{
		Model:       model,
		ChunkCount:  len(chunks),
		SourceMtime: mtime.UnixNano(),
		CreatedAt:   time.Now().UTC(),
		ChunkIDs:    ids,
		Embeddings:  full,
	}
	if err := writeJSON(m.manifestPath, manifest); err != nil {
		return nil, "", err
	}
	if err := os.Remove(m.checkpointPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.log.Warn("removing checkpoint failed", zap.Error(err))
	}

	status := StatusBuilt
	switch {
	case resumed:
		status = StatusResumed
	case existed || forceRebuild:
		status = StatusRebuilt
	}
	m.log.Info("cache finalized", zap.String("status", string(status)), zap.Int("chunks", len(chunks)))
	return manifest, status, nil
}

// loadResumePrefix returns the embeddings of a compatible checkpoint, or
// nil when no checkpoint is usable. Stale or corrupted checkpoints are
// discarded.
func (m *Manager) loadResumePrefix(chunkCount int, model string) [][]float64 {
	var cp Checkpoint
	err := readJSON(m.checkpointPath, &cp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.log.Warn("checkpoint unreadable, discarding", zap.Error(err))
			_ = os.Remove(m.checkpointPath)
		}
		return nil
	}
	if !Resumable(&cp, chunkCount, model) {
		m.log.Info("checkpoint stale, discarding",
			zap.String("checkpoint_model", cp.Model), zap.Int("checkpoint_chunks", cp.ChunkCount))
		_ = os.Remove(m.checkpointPath)
		return nil
	}
	return cp.Embeddings
}
