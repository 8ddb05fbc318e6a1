package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// ManifestFilename and CheckpointFilename are fixed names written next to
// the corpus file (or into a configured cache directory).
const (
	ManifestFilename   = "embeddings.json"
	CheckpointFilename = "embeddings.checkpoint.json"
)

// Manifest is the durable embedding cache for one corpus+model pair.
// ChunkIDs[i] corresponds to Embeddings[i] in corpus load order.
type Manifest struct {
	Model       string      `json:"model"`
	ChunkCount  int         `json:"chunk_count"`
	SourceMtime int64       `json:"source_mtime"`
	CreatedAt   time.Time   `json:"created_at"`
	ChunkIDs    []string    `json:"chunk_ids"`
	Embeddings  [][]float64 `json:"embeddings"`
}

// Checkpoint is a strict prefix of an in-progress manifest, persisted so a
// failed build can resume.
type Checkpoint struct {
	Model      string      `json:"model"`
	ChunkCount int         `json:"chunk_count"`
	SavedAt    time.Time   `json:"saved_at"`
	Embeddings [][]float64 `json:"embeddings"`
}

// Valid reports whether m can be served for the live corpus state and the
// requested model. Any mismatch marks the manifest stale.
func Valid(m *Manifest, liveChunkCount int, liveMtime time.Time, model string) bool {
	if m == nil {
		return false
	}
	return m.Model == model &&
		m.ChunkCount == liveChunkCount &&
		m.SourceMtime == liveMtime.UnixNano() &&
		len(m.Embeddings) == m.ChunkCount &&
		len(m.ChunkIDs) == m.ChunkCount
}

// Resumable reports whether cp is a usable prefix for a build of
// chunkCount chunks with the given model.
func Resumable(cp *Checkpoint, chunkCount int, model string) bool {
	if cp == nil {
		return false
	}
	return cp.Model == model &&
		cp.ChunkCount == chunkCount &&
		len(cp.Embeddings) <= chunkCount
}

// ManifestPath returns the manifest location for a corpus file. When dir is
// empty the corpus's own directory is used.
func ManifestPath(corpusPath, dir string) string {
	if dir == "" {
		dir = filepath.Dir(corpusPath)
	}
	return filepath.Join(dir, ManifestFilename)
}

// CheckpointPath returns the checkpoint location for a corpus file.
func CheckpointPath(corpusPath, dir string) string {
	if dir == "" {
		dir = filepath.Dir(corpusPath)
	}
	return filepath.Join(dir, CheckpointFilename)
}

// writeJSON persists v atomically: write to a temp file in the target
// directory, then rename over the destination.
func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cache-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
