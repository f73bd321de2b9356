package graph

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// These tests require a running Neo4j instance at bolt://localhost:7687
// with user neo4j / password password. Run with -short to skip.

func TestRepository_CreateNodesAndSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver, "neo4j")
	marker := "it-" + time.Now().Format("20060102150405")

	nodes := []Node{
		{
			ID:        uuid.New().String(),
			Type:      "person",
			Name:      "John Doe " + marker,
			Summary:   "a software engineer",
			CreatedAt: time.Now().UTC(),
			ValidFrom: time.Now().UTC(),
			Attributes: map[string]interface{}{
				"episode_name": "integration",
			},
		},
		{
			ID:        uuid.New().String(),
			Type:      "organization",
			Name:      "Microsoft " + marker,
			CreatedAt: time.Now().UTC(),
			ValidFrom: time.Now().UTC(),
		},
	}

	defer cleanupMarker(t, driver, marker)

	if err := repo.CreateNodes(ctx, nodes); err != nil {
		t.Fatalf("CreateNodes failed: %v", err)
	}

	results, err := repo.SearchNodesByName(ctx, marker, 10)
	if err != nil {
		t.Fatalf("SearchNodesByName failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	for _, result := range results {
		if result.Score != 1.0 {
			t.Errorf("Expected default score 1.0, got %f", result.Score)
		}
	}

	// Case-insensitive containment
	results, err = repo.SearchNodesByName(ctx, "JOHN DOE "+marker, 10)
	if err != nil {
		t.Fatalf("SearchNodesByName failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result for uppercase query, got %d", len(results))
	}
}

func TestRepository_CreateEdgesRejectsDanglingReferences(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver, "neo4j")
	marker := "it-" + time.Now().Format("20060102150405")

	node := Node{
		ID:        uuid.New().String(),
		Type:      "person",
		Name:      "Lonely " + marker,
		CreatedAt: time.Now().UTC(),
		ValidFrom: time.Now().UTC(),
	}

	defer cleanupMarker(t, driver, marker)

	if err := repo.CreateNodes(ctx, []Node{node}); err != nil {
		t.Fatalf("CreateNodes failed: %v", err)
	}

	edges := []Edge{
		{
			ID:        uuid.New().String(),
			Type:      "knows",
			SourceID:  node.ID,
			TargetID:  "does-not-exist",
			Name:      "knows",
			CreatedAt: time.Now().UTC(),
			ValidFrom: time.Now().UTC(),
		},
	}

	if err := repo.CreateEdges(ctx, edges); err == nil {
		t.Fatal("Expected error for edge with dangling target")
	}
}

func TestRepository_FindFactsReturnsEndpointSnapshots(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver, "neo4j")
	marker := "it-" + time.Now().Format("20060102150405")

	source := Node{
		ID: uuid.New().String(), Type: "person", Name: "John " + marker,
		CreatedAt: time.Now().UTC(), ValidFrom: time.Now().UTC(),
	}
	target := Node{
		ID: uuid.New().String(), Type: "organization", Name: "Microsoft " + marker,
		CreatedAt: time.Now().UTC(), ValidFrom: time.Now().UTC(),
	}

	defer cleanupMarker(t, driver, marker)

	if err := repo.CreateNodes(ctx, []Node{source, target}); err != nil {
		t.Fatalf("CreateNodes failed: %v", err)
	}
	edge := Edge{
		ID: uuid.New().String(), Type: "works_at",
		SourceID: source.ID, TargetID: target.ID, Name: "works_at",
		CreatedAt: time.Now().UTC(), ValidFrom: time.Now().UTC(),
	}
	if err := repo.CreateEdges(ctx, []Edge{edge}); err != nil {
		t.Fatalf("CreateEdges failed: %v", err)
	}

	facts, err := repo.FindFacts(ctx, "John "+marker, "Microsoft "+marker, "works_at", 10)
	if err != nil {
		t.Fatalf("FindFacts failed: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("Expected 1 fact, got %d", len(facts))
	}
	if facts[0].Source.Name != source.Name || facts[0].Target.Name != target.Name {
		t.Errorf("Endpoint snapshots not populated: %+v", facts[0])
	}
}

func TestRepository_EnsureIndexesIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver, "neo4j")
	for i := 0; i < 2; i++ {
		if err := repo.EnsureIndexes(ctx, 1536); err != nil {
			t.Fatalf("EnsureIndexes run %d failed: %v", i+1, err)
		}
	}
}

func createTestDriver() (neo4j.DriverWithContext, error) {
	uri := "bolt://localhost:7687"
	user := "neo4j"
	password := "password"

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}

	return driver, nil
}

func cleanupMarker(t *testing.T, driver neo4j.DriverWithContext, marker string) {
	t.Helper()
	ctx := context.Background()
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)
	_, _ = session.Run(ctx,
		"MATCH (n:Entity) WHERE n.name CONTAINS $marker DETACH DELETE n",
		map[string]interface{}{"marker": marker})
}
