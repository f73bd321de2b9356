package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "graphmind/pkg/errors"
	"graphmind/pkg/logger"
)

// Repository handles all Neo4j database operations
type Repository struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext, database string) *Repository {
	return &Repository{
		driver:   driver,
		database: database,
		logger:   logger.Get(),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

// Ping verifies store connectivity without mutating state
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.driver.VerifyConnectivity(ctx); err != nil {
		target := r.driver.Target()
		return apperrors.NewGraphConnectionFailed(target.String(), err)
	}
	return nil
}

func (r *Repository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: r.database,
	})
}

// EnsureIndexes creates the store indexes. Every statement uses IF NOT EXISTS
// so re-running on an already initialized database is a no-op.
func (r *Repository) EnsureIndexes(ctx context.Context, embeddingDimension int) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (n:Entity) REQUIRE n.id IS UNIQUE`,
		`CREATE INDEX entity_name IF NOT EXISTS FOR (n:Entity) ON (n.name)`,
		`CREATE INDEX entity_type IF NOT EXISTS FOR (n:Entity) ON (n.type)`,
		`CREATE INDEX relationship_type IF NOT EXISTS FOR ()-[r:RELATES]-() ON (r.type)`,
		// OPTIONS does not accept query parameters, so the dimension is inlined
		fmt.Sprintf(`CREATE VECTOR INDEX entity_embedding IF NOT EXISTS
			FOR (n:Entity) ON (n.embedding)
			OPTIONS {indexConfig: {
				`+"`vector.dimensions`"+`: %d,
				`+"`vector.similarity_function`"+`: 'cosine'
			}}`, embeddingDimension),
	}

	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	r.logger.Info("Graph indexes ensured",
		zap.Int("embedding_dimension", embeddingDimension),
	)
	return nil
}
