package vectorstore

// Metadata keys shared by every indexed vector.
const (
	MetaFileName   = "file_name"
	MetaFilePath   = "file_path"
	MetaPage       = "page"
	MetaChunkIndex = "chunk_index"
	MetaPreview    = "preview"
	MetaModifiedAt = "modified_at"
	MetaID         = "id"
)

// Document represents a chunk to be stored in the vector store.
type Document struct {
	// ID is the unique, deterministic identifier for the chunk.
	ID string

	// Content is the chunk text.
	Content string

	// Metadata contains additional key-value pairs for filtering
	// (file_name, file_path, page, chunk_index, preview, modified_at).
	Metadata map[string]interface{}
}

// SearchResult represents a similarity search result.
type SearchResult struct {
	// ID is the chunk identifier.
	ID string

	// Content is the chunk text.
	Content string

	// Score is the cosine similarity (1 = identical).
	Score float32

	// Metadata contains the chunk metadata.
	Metadata map[string]interface{}
}
