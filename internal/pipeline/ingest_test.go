package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphmind/internal/graph"
	"graphmind/pkg/errors"
)

func newTestIngestor(extractor *fakeExtractor, store *fakeStore) *Ingestor {
	ingestor := NewIngestor(extractor, &fakeEmbedder{vec: []float32{0.1, 0.2}}, store, 0)
	ingestor.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return ingestor
}

func TestIngest_NoEntitiesPersistsNothing(t *testing.T) {
	extractor := &fakeExtractor{summary: "empty"}
	store := &fakeStore{}
	ingestor := newTestIngestor(extractor, store)

	nodes, edges, err := ingestor.Ingest(context.Background(), graph.Episode{Name: "Empty", Content: "   "})
	require.NoError(t, err)
	assert.Zero(t, nodes)
	assert.Zero(t, edges)
	assert.Empty(t, store.nodes)
	assert.Empty(t, store.edges)
}

func TestIngest_MaterializationDefaults(t *testing.T) {
	refTime := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	extractor := &fakeExtractor{
		entities: []CandidateEntity{
			{Name: "John Doe", Type: "person", Description: "a software engineer"},
			{Name: "Microsoft"}, // no type, no description
		},
		summary: "John works at Microsoft.",
	}
	store := &fakeStore{}
	ingestor := newTestIngestor(extractor, store)

	nodes, edges, err := ingestor.Ingest(context.Background(), graph.Episode{
		Name:              "Demo",
		Content:           "John Doe is a software engineer who works at Microsoft.",
		SourceDescription: "conversation",
		ReferenceTime:     &refTime,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, nodes)
	assert.Zero(t, edges)
	require.Len(t, store.nodes, 2)

	john := store.nodes[0]
	assert.NotEmpty(t, john.ID)
	assert.Equal(t, "John Doe", john.Name)
	assert.Equal(t, "person", john.Type)
	assert.Equal(t, "a software engineer", john.Summary)
	assert.Equal(t, refTime, john.ValidFrom)
	assert.Equal(t, "Demo", john.Attributes["episode_name"])
	assert.Equal(t, "conversation", john.Attributes["source_description"])
	assert.Equal(t, "John works at Microsoft.", john.Attributes["episode_summary"])
	assert.Equal(t, []float32{0.1, 0.2}, john.Embedding)

	microsoft := store.nodes[1]
	assert.Equal(t, "entity", microsoft.Type)
	assert.Empty(t, microsoft.Summary)
	assert.NotEqual(t, john.ID, microsoft.ID)
}

func TestIngest_ValidFromDefaultsToNow(t *testing.T) {
	extractor := &fakeExtractor{
		entities: []CandidateEntity{{Name: "Ada"}},
		summary:  "s",
	}
	store := &fakeStore{}
	ingestor := newTestIngestor(extractor, store)

	_, _, err := ingestor.Ingest(context.Background(), graph.Episode{Name: "E", Content: "Ada."})
	require.NoError(t, err)
	require.Len(t, store.nodes, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), store.nodes[0].ValidFrom)
}

func TestIngest_EdgeResolutionIsCaseInsensitive(t *testing.T) {
	extractor := &fakeExtractor{
		entities: []CandidateEntity{
			{Name: "John Doe"},
			{Name: "Microsoft"},
		},
		rels: []CandidateRelationship{
			{SourceEntity: "JOHN DOE", TargetEntity: "microsoft", Type: "works_at", Confidence: 0.95},
		},
		summary: "s",
	}
	store := &fakeStore{}
	ingestor := newTestIngestor(extractor, store)

	_, edges, err := ingestor.Ingest(context.Background(), graph.Episode{Name: "Demo", Content: "text"})
	require.NoError(t, err)
	assert.Equal(t, 1, edges)
	require.Len(t, store.edges, 1)

	edge := store.edges[0]
	assert.Equal(t, "works_at", edge.Type)
	assert.Equal(t, store.nodes[0].ID, edge.SourceID)
	assert.Equal(t, store.nodes[1].ID, edge.TargetID)
	assert.Equal(t, 0.95, edge.Attributes["confidence"])
}

func TestIngest_DropsUnresolvedAndSelfLoopEdges(t *testing.T) {
	extractor := &fakeExtractor{
		entities: []CandidateEntity{
			{Name: "Alice"},
			{Name: "Acme"},
		},
		rels: []CandidateRelationship{
			{SourceEntity: "Alice", TargetEntity: "Nobody", Type: "knows"},    // unresolved target
			{SourceEntity: "Ghost", TargetEntity: "Acme", Type: "owns"},      // unresolved source
			{SourceEntity: "Alice", TargetEntity: "alice", Type: "is"},       // self loop
			{SourceEntity: "Alice", TargetEntity: "Acme"},                    // valid, defaults
		},
		summary: "s",
	}
	store := &fakeStore{}
	ingestor := newTestIngestor(extractor, store)

	_, edges, err := ingestor.Ingest(context.Background(), graph.Episode{Name: "Demo", Content: "text"})
	require.NoError(t, err)
	assert.Equal(t, 1, edges)
	require.Len(t, store.edges, 1)
	assert.Equal(t, "related_to", store.edges[0].Type)
	assert.Equal(t, 0.8, store.edges[0].Attributes["confidence"])
}

func TestIngest_TransportFailurePropagates(t *testing.T) {
	extractor := &fakeExtractor{}
	store := &fakeStore{}
	ingestor := newTestIngestor(extractor, store)

	_, _, err := ingestor.Ingest(context.Background(), graph.Episode{Name: "Bad", Content: "boom"})
	require.Error(t, err)
	assert.Empty(t, store.nodes)
}

func TestIngest_EdgeWriteFailureLeavesNodes(t *testing.T) {
	extractor := &fakeExtractor{
		entities: []CandidateEntity{{Name: "A"}, {Name: "B"}},
		rels:     []CandidateRelationship{{SourceEntity: "A", TargetEntity: "B"}},
		summary:  "s",
	}
	store := &fakeStore{edgesErr: errTransport}
	ingestor := newTestIngestor(extractor, store)

	nodes, edges, err := ingestor.Ingest(context.Background(), graph.Episode{Name: "Demo", Content: "text"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeGraph))
	// No rollback: the node batch stays committed
	assert.Equal(t, 2, nodes)
	assert.Zero(t, edges)
	assert.Len(t, store.nodes, 2)
}

func TestIngest_SummaryFallbackTruncates(t *testing.T) {
	long := strings.Repeat("x", 500)
	extractor := &fakeExtractor{
		entities:   []CandidateEntity{{Name: "A"}},
		summaryErr: errTransport,
	}
	store := &fakeStore{}
	ingestor := newTestIngestor(extractor, store)

	_, _, err := ingestor.Ingest(context.Background(), graph.Episode{Name: "Long", Content: long})
	require.NoError(t, err)
	require.Len(t, store.nodes, 1)
	summary, _ := store.nodes[0].Attributes["episode_summary"].(string)
	assert.Len(t, summary, DefaultSummaryLimit)
}

func TestIngest_SummaryTruncationKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("é", 500)
	extractor := &fakeExtractor{
		entities:   []CandidateEntity{{Name: "A"}},
		summaryErr: errTransport,
	}
	store := &fakeStore{}
	ingestor := newTestIngestor(extractor, store)

	_, _, err := ingestor.Ingest(context.Background(), graph.Episode{Name: "Accented", Content: long})
	require.NoError(t, err)
	require.Len(t, store.nodes, 1)
	summary, _ := store.nodes[0].Attributes["episode_summary"].(string)
	assert.True(t, utf8.ValidString(summary))
	assert.Equal(t, DefaultSummaryLimit, utf8.RuneCountInString(summary))
}

func TestIngest_EmbeddingFailureIsNonFatal(t *testing.T) {
	extractor := &fakeExtractor{
		entities: []CandidateEntity{{Name: "A"}},
		summary:  "s",
	}
	store := &fakeStore{}
	ingestor := NewIngestor(extractor, &fakeEmbedder{err: errTransport}, store, 0)

	nodes, _, err := ingestor.Ingest(context.Background(), graph.Episode{Name: "Demo", Content: "text"})
	require.NoError(t, err)
	assert.Equal(t, 1, nodes)
	assert.Nil(t, store.nodes[0].Embedding)
}

func TestIngestAll_StopsAtFailingEpisode(t *testing.T) {
	extractor := &fakeExtractor{
		entities: []CandidateEntity{{Name: "A"}},
		summary:  "s",
	}
	store := &fakeStore{}
	ingestor := newTestIngestor(extractor, store)

	episodes := []graph.Episode{
		{Name: "first", Content: "fine"},
		{Name: "second", Content: "boom"},
		{Name: "third", Content: "never reached"},
	}
	nodes, _, err := ingestor.IngestAll(context.Background(), episodes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second")
	assert.Equal(t, 1, nodes)
	// The third episode is never attempted
	assert.Equal(t, 2, extractor.entityCalls)
}
