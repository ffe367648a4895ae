package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/retrieval"
	"github.com/fyrsmithlabs/researchd/internal/vectorstore"
)

// fakeStore serves canned results so that threshold and truncation
// behavior can be tested with exact scores.
type fakeStore struct {
	results   []vectorstore.SearchResult
	err       error
	lastLimit int
}

func (f *fakeStore) AddDocuments(ctx context.Context, docs []vectorstore.Document) ([]string, error) {
	return nil, nil
}

func (f *fakeStore) Query(ctx context.Context, query string, limit int) ([]vectorstore.SearchResult, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.results) {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func (f *fakeStore) DeleteByFilePath(ctx context.Context, filePath string) error { return nil }
func (f *fakeStore) Count(ctx context.Context) (int, error)                      { return len(f.results), nil }
func (f *fakeStore) Close() error                                                { return nil }

func scored(id string, score float32) vectorstore.SearchResult {
	return vectorstore.SearchResult{
		ID:      id,
		Content: "content " + id,
		Score:   score,
		Metadata: map[string]interface{}{
			vectorstore.MetaFileName: "doc.txt",
			vectorstore.MetaFilePath: "/corpus/doc.txt",
			vectorstore.MetaPage:     1,
			vectorstore.MetaPreview:  "content " + id,
		},
	}
}

func TestRetrieve_FiltersBelowThreshold(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{
		scored("a", 0.95),
		scored("b", 0.85),
		scored("c", 0.40),
	}}
	svc := retrieval.NewService(store, 3, 0.8, zap.NewNop())

	results, err := svc.Retrieve(context.Background(), "query", retrieval.Options{})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
}

func TestRetrieve_TruncatesToTopK(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{
		scored("a", 0.99),
		scored("b", 0.95),
		scored("c", 0.92),
		scored("d", 0.91),
	}}
	svc := retrieval.NewService(store, 2, 0.8, zap.NewNop())

	results, err := svc.Retrieve(context.Background(), "query", retrieval.Options{})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
}

func TestRetrieve_OrderedByDescendingScore(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{
		scored("low", 0.81),
		scored("high", 0.97),
		scored("mid", 0.88),
	}}
	svc := retrieval.NewService(store, 3, 0.8, zap.NewNop())

	results, err := svc.Retrieve(context.Background(), "query", retrieval.Options{})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "high", results[0].ID)
	assert.Equal(t, "mid", results[1].ID)
	assert.Equal(t, "low", results[2].ID)
}

func TestRetrieve_EmptyIsValid(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{scored("a", 0.10)}}
	svc := retrieval.NewService(store, 3, 0.8, zap.NewNop())

	results, err := svc.Retrieve(context.Background(), "query", retrieval.Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_Oversamples(t *testing.T) {
	store := &fakeStore{}
	svc := retrieval.NewService(store, 3, 0.8, zap.NewNop())

	_, err := svc.Retrieve(context.Background(), "query", retrieval.Options{})
	require.NoError(t, err)
	assert.Equal(t, 20, store.lastLimit)

	_, err = svc.Retrieve(context.Background(), "query", retrieval.Options{TopK: 10})
	require.NoError(t, err)
	assert.Equal(t, 50, store.lastLimit)
}

func TestRetrieve_Overrides(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{
		scored("a", 0.95),
		scored("b", 0.50),
	}}
	svc := retrieval.NewService(store, 3, 0.8, zap.NewNop())

	// An explicit zero threshold lets everything through.
	results, err := svc.Retrieve(context.Background(), "query",
		retrieval.Options{}.WithMinScore(0))
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = svc.Retrieve(context.Background(), "query",
		retrieval.Options{TopK: 1}.WithMinScore(0))
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	svc := retrieval.NewService(&fakeStore{}, 3, 0.8, zap.NewNop())

	_, err := svc.Retrieve(context.Background(), "   ", retrieval.Options{})
	assert.ErrorIs(t, err, retrieval.ErrEmptyQuery)
}

func TestRetrieve_StoreErrorPropagates(t *testing.T) {
	store := &fakeStore{err: errors.New("backend down")}
	svc := retrieval.NewService(store, 3, 0.8, zap.NewNop())

	_, err := svc.Retrieve(context.Background(), "query", retrieval.Options{})
	assert.Error(t, err)
}

func TestRetrieve_MetadataMapping(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{{
		ID:      "fp_2_0",
		Content: "chunk text",
		Score:   0.9,
		Metadata: map[string]interface{}{
			vectorstore.MetaFileName: "faq.pdf",
			vectorstore.MetaFilePath: "/corpus/faq.pdf",
			vectorstore.MetaPage:     float64(2),
			vectorstore.MetaPreview:  "chunk text",
		},
	}}}
	svc := retrieval.NewService(store, 3, 0.8, zap.NewNop())

	results, err := svc.Retrieve(context.Background(), "query", retrieval.Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "faq.pdf", results[0].FileName)
	assert.Equal(t, "/corpus/faq.pdf", results[0].FilePath)
	assert.Equal(t, 2, results[0].Page)
	assert.Equal(t, "chunk text", results[0].Preview)
}
