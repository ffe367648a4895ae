// Package corpus provides document loading, chunking, and change tracking
// for the ingestion pipeline.
package corpus

import "time"

// TextBlock is one page (or whole file, for non-paginated formats) of
// extracted raw text. Pages are 1-based; non-paginated sources use page 1.
type TextBlock struct {
	Page int
	Text string
}

// FileMeta describes the source file a set of chunks was derived from.
type FileMeta struct {
	// DocID is the file's content fingerprint at load time. Chunk IDs are
	// derived from it, so updated content yields new chunk IDs.
	DocID string

	// FileName is the base name of the source file.
	FileName string

	// FilePath is the absolute path of the source file.
	FilePath string

	// ModifiedAt is the source file's modification time.
	ModifiedAt time.Time
}

// Chunk is a bounded slice of a TextBlock's text, the atomic unit stored
// and retrieved. Consecutive chunks from the same block overlap to
// preserve context across boundaries.
type Chunk struct {
	// ID is deterministic for the same (fingerprint, page, index) triple.
	ID string

	// Text is the chunk content.
	Text string

	FileName string
	FilePath string

	// Page is the 1-based page the chunk was extracted from.
	Page int

	// Index is the chunk's zero-based position within its page.
	Index int

	// Preview is the first ~200 characters of the text.
	Preview string

	ModifiedAt time.Time
}

// Metadata returns the chunk's vector store metadata.
func (c Chunk) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"file_name":   c.FileName,
		"file_path":   c.FilePath,
		"page":        c.Page,
		"chunk_index": c.Index,
		"preview":     c.Preview,
		"modified_at": c.ModifiedAt.UTC().Format(time.RFC3339),
	}
}
