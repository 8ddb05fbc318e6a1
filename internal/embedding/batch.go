package embedding

import "math"

// BatchLimits caps outgoing embedding requests. Three constraints hold for
// every request: at most MaxBatchItems texts, at most MaxBatchChars
// cumulative characters, and each text truncated to MaxChunkChars.
type BatchLimits struct {
	MaxBatchItems int
	MaxBatchChars int
	MaxChunkChars int
}

// DefaultLimits are conservative for locally hosted embedding servers.
func DefaultLimits() BatchLimits {
	return BatchLimits{MaxBatchItems: 64, MaxBatchChars: 16000, MaxChunkChars: 4000}
}

func (l BatchLimits) withDefaults() BatchLimits {
	d := DefaultLimits()
	if l.MaxBatchItems <= 0 {
		l.MaxBatchItems = d.MaxBatchItems
	}
	if l.MaxBatchChars <= 0 {
		l.MaxBatchChars = d.MaxBatchChars
	}
	if l.MaxChunkChars <= 0 {
		l.MaxChunkChars = d.MaxChunkChars
	}
	return l
}

// PlanBatches greedily packs texts into request batches under the limits.
// Each text is truncated to MaxChunkChars first. A batch is closed when
// adding the next text would exceed the item or character budget. If the
// first candidate for a fresh batch alone exceeds the character budget it
// is still placed alone, so progress never starves.
func PlanBatches(texts []string, limits BatchLimits) [][]string {
	limits = limits.withDefaults()
	var batches [][]string
	var current []string
	chars := 0
	for _, text := range texts {
		t := Truncate(text, limits.MaxChunkChars)
		if len(current) > 0 && (len(current) >= limits.MaxBatchItems || chars+len(t) > limits.MaxBatchChars) {
			batches = append(batches, current)
			current = nil
			chars = 0
		}
		current = append(current, t)
		chars += len(t)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// Truncate cuts text to at most max characters without splitting a rune.
func Truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

// Normalize scales vec to unit L2 norm in place and returns it.
// Zero vectors are returned unchanged.
func Normalize(vec []float64) []float64 {
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
