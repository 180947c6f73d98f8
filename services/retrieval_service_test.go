package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/astrolozee/consult/models"
)

// fakeRetriever maps query strings to canned results.
type fakeRetriever struct {
	results map[string][]models.KnowledgeDocument
	err     error
	calls   atomic.Int32
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, _ int) ([]models.KnowledgeDocument, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func doc(text string) models.KnowledgeDocument {
	return models.KnowledgeDocument{Text: text, Metadata: map[string]interface{}{"source": text}}
}

func TestDedupDocumentsKeepsFirstOccurrence(t *testing.T) {
	docs := DedupDocuments([]models.KnowledgeDocument{
		doc("saturn"), doc("mars"), doc("saturn"), doc("jupiter"),
	})

	require.Len(t, docs, 3)
	assert.Equal(t, "saturn", docs[0].Text)
	assert.Equal(t, "mars", docs[1].Text)
	assert.Equal(t, "jupiter", docs[2].Text)
}

func TestRetrieveMergedDeduplicatesAcrossQueries(t *testing.T) {
	retriever := &fakeRetriever{results: map[string][]models.KnowledgeDocument{
		"question": {doc("saturn"), doc("mars")},
		"context":  {doc("mars"), doc("venus")},
	}}

	docs, err := RetrieveMerged(context.Background(), retriever, "question", "context", 5)
	require.NoError(t, err)

	require.Len(t, docs, 3)
	// question results first, then context results, rank order preserved
	assert.Equal(t, "saturn", docs[0].Text)
	assert.Equal(t, "mars", docs[1].Text)
	assert.Equal(t, "venus", docs[2].Text)
	assert.Equal(t, int32(2), retriever.calls.Load())
}

func TestRetrieveMergedSkipsContextQueryWhenAbsent(t *testing.T) {
	retriever := &fakeRetriever{results: map[string][]models.KnowledgeDocument{
		"question": {doc("saturn")},
	}}

	docs, err := RetrieveMerged(context.Background(), retriever, "question", "", 5)
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, int32(1), retriever.calls.Load(), "context lookup must be skipped, not run empty")
}

func TestRetrieveMergedPropagatesFailure(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("chroma unavailable")}

	_, err := RetrieveMerged(context.Background(), retriever, "question", "context", 5)
	require.Error(t, err)
}

func TestPackRetrievedBlock(t *testing.T) {
	assert.Empty(t, PackRetrievedBlock(nil))

	block := PackRetrievedBlock([]models.KnowledgeDocument{doc("first snippet"), doc("second snippet")})
	assert.Equal(t, "first snippet\n\nsecond snippet", block)
}
