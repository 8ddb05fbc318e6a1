package synthesis

import (
	"fmt"
	"strings"

	"semsearch/internal/domain"
)

// strictGrounding is the system prompt for hosted providers. Large models
// follow the citation discipline reliably.
const strictGrounding = `You answer questions using only the provided context chunks.
Rules:
- Every factual claim must cite its source as [source N] using the chunk numbers given.
- If sources conflict, say so explicitly and present both versions.
- If the context does not contain enough information to answer, state that plainly. Do not guess or use outside knowledge.`

// antiHedge is the system prompt for the local small-model family. Small
// local models over-refuse under the strict prompt, so refusals are
// forbidden outright.
const antiHedge = `You answer questions using only the provided context chunks.
Rules:
- Every factual claim must cite its source as [source N] using the chunk numbers given.
- Never reply that there is insufficient information. Instead describe whatever relevant material the context does contain, with citations.
- Do not use outside knowledge.`

// systemPrompt selects the grounding template for a provider family.
func systemPrompt(f Family) string {
	if f == FamilyLocal {
		return antiHedge
	}
	return strictGrounding
}

// buildUserPrompt concatenates the ranked chunks into an annotated context
// block followed by the question. Each chunk is labeled with its source
// number, document, and retrieval score.
func buildUserPrompt(query string, results []domain.RetrievalResult) string {
	var b strings.Builder
	b.WriteString("Context:\n\n")
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "[source %d] (document %s, score %.4f)\n%s\n",
			r.Rank, r.Chunk.DocumentID, r.Score, r.Chunk.Content)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	return b.String()
}
