package corpus

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// previewLen is the maximum preview length in runes, before the ellipsis.
const previewLen = 200

// Chunker splits text blocks into overlapping chunks, preferring natural
// boundaries (paragraph, then sentence, then word) before a hard cut at
// the length limit. Mid-sentence truncation harms embedding quality.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewChunker creates a chunker with the given maximum chunk length and
// overlap, both in characters.
func NewChunker(maxChars, overlapChars int) *Chunker {
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(maxChars),
			textsplitter.WithChunkOverlap(overlapChars),
			textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
		),
	}
}

// Chunk splits the blocks into chunks tagged with file metadata.
//
// No chunk spans two blocks; page boundaries are chunk boundaries.
// Whitespace-only candidates are dropped. Chunk IDs are deterministic
// for the same (fingerprint, page, index) triple, so chunking unchanged
// content twice yields identical sequences.
func (c *Chunker) Chunk(blocks []TextBlock, meta FileMeta) ([]Chunk, error) {
	var chunks []Chunk
	for _, block := range blocks {
		parts, err := c.splitter.SplitText(block.Text)
		if err != nil {
			return nil, fmt.Errorf("splitting page %d of %s: %w", block.Page, meta.FilePath, err)
		}
		for idx, part := range parts {
			if strings.TrimSpace(part) == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				ID:         fmt.Sprintf("%s_%d_%d", meta.DocID, block.Page, idx),
				Text:       part,
				FileName:   meta.FileName,
				FilePath:   meta.FilePath,
				Page:       block.Page,
				Index:      idx,
				Preview:    preview(part),
				ModifiedAt: meta.ModifiedAt,
			})
		}
	}
	return chunks, nil
}

// preview returns the first previewLen runes, with an ellipsis when truncated.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen]) + "..."
}
