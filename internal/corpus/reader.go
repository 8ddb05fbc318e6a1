package corpus

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"semsearch/internal/domain"
)

// rawChunk mirrors one entry of the store's chunks array. Older store
// versions wrote chunk_index instead of chunkIndex, so both are accepted.
type rawChunk struct {
	ID            string         `json:"id"`
	Content       string         `json:"content"`
	DocumentID    string         `json:"documentId"`
	ChunkIndex    *int           `json:"chunkIndex"`
	ChunkIndexAlt *int           `json:"chunk_index"`
	Metadata      map[string]any `json:"metadata"`
}

type storeFile struct {
	Chunks []rawChunk `json:"chunks"`
}

// Load reads the corpus store file and returns its usable chunk records
// together with the file's modification time. Chunks with empty trimmed
// content are filtered out; a missing explicit index falls back to the
// chunk's position in the file.
func Load(path string) ([]domain.ChunkRecord, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, time.Time{}, domain.Errf(domain.KindNotFound, "corpus.Load", "corpus file not found: %s", path)
		}
		return nil, time.Time{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	var store storeFile
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, time.Time{}, domain.Errf(domain.KindMalformed, "corpus.Load", "parsing %s: %v", path, err)
	}

	records := make([]domain.ChunkRecord, 0, len(store.Chunks))
	for pos, raw := range store.Chunks {
		if strings.TrimSpace(raw.Content) == "" {
			continue
		}
		idx := pos
		switch {
		case raw.ChunkIndex != nil:
			idx = *raw.ChunkIndex
		case raw.ChunkIndexAlt != nil:
			idx = *raw.ChunkIndexAlt
		}
		records = append(records, domain.ChunkRecord{
			ID:         raw.ID,
			Content:    raw.Content,
			DocumentID: raw.DocumentID,
			ChunkIndex: idx,
			Metadata:   raw.Metadata,
		})
	}
	if len(records) == 0 {
		return nil, time.Time{}, domain.Errf(domain.KindEmpty, "corpus.Load", "corpus contains no usable chunks: %s", path)
	}
	return records, info.ModTime(), nil
}
