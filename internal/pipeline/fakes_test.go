package pipeline

import (
	"context"
	"strings"

	"graphmind/internal/graph"
)

// fakeExtractor is a canned-response Extractor. Content containing "boom"
// fails entity extraction to simulate a transport error.
type fakeExtractor struct {
	entities    []CandidateEntity
	entitiesErr error
	rels        []CandidateRelationship
	relsErr     error
	summary     string
	summaryErr  error
	reply       string
	replyErr    error

	entityCalls int
}

func (f *fakeExtractor) ExtractEntities(_ context.Context, content string) ([]CandidateEntity, error) {
	f.entityCalls++
	if strings.Contains(content, "boom") {
		return nil, errTransport
	}
	return f.entities, f.entitiesErr
}

func (f *fakeExtractor) ExtractRelationships(context.Context, string, []CandidateEntity) ([]CandidateRelationship, error) {
	return f.rels, f.relsErr
}

func (f *fakeExtractor) GenerateSummary(context.Context, string, int) (string, error) {
	return f.summary, f.summaryErr
}

func (f *fakeExtractor) GenerateText(context.Context, string) (string, error) {
	return f.reply, f.replyErr
}

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

// fakeStore records writes and serves canned search results
type fakeStore struct {
	nodes []graph.Node
	edges []graph.Edge

	nodesErr error
	edgesErr error

	keywordResults []graph.SearchResult
	keywordErr     error
	vectorResults  []graph.SearchResult
	vectorErr      error

	entities []graph.Node
	facts    []graph.Fact

	pingErr error

	keywordCalls int
	vectorCalls  int
}

func (f *fakeStore) CreateNodes(_ context.Context, nodes []graph.Node) error {
	if f.nodesErr != nil {
		return f.nodesErr
	}
	f.nodes = append(f.nodes, nodes...)
	return nil
}

func (f *fakeStore) CreateEdges(_ context.Context, edges []graph.Edge) error {
	if f.edgesErr != nil {
		return f.edgesErr
	}
	f.edges = append(f.edges, edges...)
	return nil
}

func (f *fakeStore) SearchNodesByName(_ context.Context, _ string, limit int) ([]graph.SearchResult, error) {
	f.keywordCalls++
	if f.keywordErr != nil {
		return nil, f.keywordErr
	}
	if len(f.keywordResults) > limit {
		return f.keywordResults[:limit], nil
	}
	return f.keywordResults, nil
}

func (f *fakeStore) SearchNodesByVector(_ context.Context, _ []float32, limit int) ([]graph.SearchResult, error) {
	f.vectorCalls++
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	if len(f.vectorResults) > limit {
		return f.vectorResults[:limit], nil
	}
	return f.vectorResults, nil
}

func (f *fakeStore) FindEntities(context.Context, string, string, int) ([]graph.Node, error) {
	return f.entities, nil
}

func (f *fakeStore) FindFacts(context.Context, string, string, string, int) ([]graph.Fact, error) {
	return f.facts, nil
}

func (f *fakeStore) Ping(context.Context) error {
	return f.pingErr
}

type fakeError string

func (e fakeError) Error() string { return string(e) }

const errTransport = fakeError("connection refused")
