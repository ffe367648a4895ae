// Package vectorstore defines the interface for vector storage operations.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrConnectionFailed indicates the remote store could not be reached.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

// collectionNameRe restricts collection names to a safe charset, since the
// chromem backend uses the name as a directory component on disk.
var collectionNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,62}$`)

// ValidateCollectionName validates a collection name.
func ValidateCollectionName(name string) error {
	if !collectionNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// Store is the interface for vector storage operations.
//
// The store owns one named collection of (id, embedding, text, metadata)
// rows and persists it across process restarts. Implementations embed
// queries through the Embedder they were constructed with.
//
// Implementations:
//   - ChromemStore: embedded chromem-go (default)
//   - QdrantStore: external Qdrant gRPC client
type Store interface {
	// AddDocuments adds documents to the collection.
	//
	// Document IDs must be unique within the collection; adding a duplicate
	// id is rejected. Callers are responsible for deleting a file's vectors
	// before re-adding updated ones.
	//
	// Returns the IDs of added documents.
	AddDocuments(ctx context.Context, docs []Document) ([]string, error)

	// Query performs similarity search and returns up to limit results
	// ranked best-first. Scores are cosine similarity, 1 = identical.
	//
	// Querying an empty collection returns an empty slice, not an error.
	Query(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// DeleteByFilePath removes every vector whose metadata file_path equals
	// the given path. A path with no matching vectors is a no-op.
	DeleteByFilePath(ctx context.Context, filePath string) error

	// Count returns the number of vectors in the collection.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}
