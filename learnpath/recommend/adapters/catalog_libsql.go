package adapters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/learnpath/learnpath/recommend/service"
)

// CatalogStore persists content nodes and role vectors in libsql. It serves
// similarity search from an in-memory snapshot that is rebuilt after writes.
type CatalogStore struct {
	db        *sql.DB
	dimension int
	logger    zerolog.Logger

	mu       sync.Mutex
	snapshot *service.FlatIndex
}

// NewCatalogStore creates a new libsql catalog store. The schema must be
// migrated already.
func NewCatalogStore(db *sql.DB, dimension int, logger zerolog.Logger) *CatalogStore {
	return &CatalogStore{
		db:        db,
		dimension: dimension,
		logger:    logger.With().Str("component", "catalog_store").Logger(),
	}
}

// UpsertNodes inserts or replaces content nodes in one transaction
func (s *CatalogStore) UpsertNodes(ctx context.Context, nodes []service.ContentNode) error {
	for _, n := range nodes {
		if n.ID == "" {
			return fmt.Errorf("content node id is required")
		}
		if len(n.Vector) != s.dimension {
			return fmt.Errorf("%w: content node %q has %d dimensions, expected %d",
				service.ErrDimensionMismatch, n.ID, len(n.Vector), s.dimension)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT OR REPLACE INTO content_nodes (id, primary_skill, node_type, vector, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	for _, n := range nodes {
		vecJSON, err := json.Marshal(n.Vector)
		if err != nil {
			return fmt.Errorf("failed to marshal vector for %q: %w", n.ID, err)
		}
		meta := n.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %q: %w", n.ID, err)
		}
		nodeType, _ := meta[service.MetaNodeType].(string)
		if nodeType == "" {
			nodeType = service.DefaultNodeType
		}
		if _, err := tx.ExecContext(ctx, query, n.ID, n.PrimarySkill, nodeType, string(vecJSON), string(metaJSON)); err != nil {
			return fmt.Errorf("failed to save content node %q: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit content nodes: %w", err)
	}
	s.invalidate()
	return nil
}

// UpsertRoles inserts or replaces role vectors in one transaction
func (s *CatalogStore) UpsertRoles(ctx context.Context, roles map[string]service.Vector) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for id, vec := range roles {
		if len(vec) != s.dimension {
			return fmt.Errorf("%w: role vector %q has %d dimensions, expected %d",
				service.ErrDimensionMismatch, id, len(vec), s.dimension)
		}
		vecJSON, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("failed to marshal role vector %q: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO role_vectors (role_id, vector, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
			id, string(vecJSON)); err != nil {
			return fmt.Errorf("failed to save role vector %q: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit role vectors: %w", err)
	}
	return nil
}

// RecordImport stores an audit row for a catalog import and returns its id
func (s *CatalogStore) RecordImport(ctx context.Context, source string, nodeCount, roleCount int) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO catalog_imports (id, source, node_count, role_count) VALUES (?, ?, ?, ?)`,
		id, source, nodeCount, roleCount)
	if err != nil {
		return "", fmt.Errorf("failed to record import: %w", err)
	}
	return id, nil
}

// Lookup implements service.RoleVectorLookup
func (s *CatalogStore) Lookup(ctx context.Context, roleID string) (service.Vector, error) {
	var vecJSON string
	err := s.db.QueryRowContext(ctx, `SELECT vector FROM role_vectors WHERE role_id = ?`, roleID).Scan(&vecJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", service.ErrRoleNotFound, roleID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query role vector: %w", err)
	}

	var vec service.Vector
	if err := json.Unmarshal([]byte(vecJSON), &vec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal role vector %q: %w", roleID, err)
	}
	return vec, nil
}

// Search implements service.SimilaritySearch
func (s *CatalogStore) Search(ctx context.Context, query service.Vector, topK int) ([]service.ContentNode, error) {
	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	return idx.Search(ctx, query, topK)
}

// CountNodes returns the number of stored content nodes
func (s *CatalogStore) CountNodes(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_nodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count content nodes: %w", err)
	}
	return n, nil
}

// index returns the search snapshot, loading it on first use
func (s *CatalogStore) index(ctx context.Context) (*service.FlatIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot != nil {
		return s.snapshot, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, primary_skill, vector, metadata FROM content_nodes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query content nodes: %w", err)
	}
	defer rows.Close()

	idx := service.NewFlatIndex(s.dimension)
	for rows.Next() {
		var (
			node     service.ContentNode
			vecJSON  string
			metaJSON string
		)
		if err := rows.Scan(&node.ID, &node.PrimarySkill, &vecJSON, &metaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan content node: %w", err)
		}
		if err := json.Unmarshal([]byte(vecJSON), &node.Vector); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vector for %q: %w", node.ID, err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &node.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for %q: %w", node.ID, err)
		}
		if err := idx.Upsert(ctx, node); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating content nodes: %w", err)
	}

	s.logger.Debug().Int("nodes", idx.Len()).Msg("loaded catalog search snapshot")
	s.snapshot = idx
	return idx, nil
}

func (s *CatalogStore) invalidate() {
	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()
}

var (
	_ service.SimilaritySearch = (*CatalogStore)(nil)
	_ service.RoleVectorLookup = (*CatalogStore)(nil)
)
