package adapters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/learnpath/learnpath/recommend/service"
)

const chromemSkillKey = "primary_skill"

// errNoTextEmbedding is returned if chromem is asked to embed text. Content
// nodes always arrive with precomputed vectors.
var errNoTextEmbedding = errors.New("content nodes must carry precomputed embeddings")

// chromemPayload is the JSON document content. chromem normalizes stored
// embeddings, so the raw vector travels here next to the metadata.
type chromemPayload struct {
	Vector   service.Vector `json:"vector"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ChromemSearch implements service.SimilaritySearch using chromem-go.
// Node metadata and the unnormalized vector are stored as the document
// content so they survive the string-only chromem metadata map.
type ChromemSearch struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimension  int
	logger     zerolog.Logger
}

// NewChromemSearch opens a chromem collection. An empty dir keeps the
// database in memory.
func NewChromemSearch(dir, collection string, dimension int, logger zerolog.Logger) (*ChromemSearch, error) {
	var (
		db  *chromem.DB
		err error
	)
	if dir == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create vector dir: %w", err)
		}
		db, err = chromem.NewPersistentDB(dir, false)
		if err != nil {
			return nil, fmt.Errorf("create chromem db: %w", err)
		}
	}

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errNoTextEmbedding
	}
	col, err := db.GetOrCreateCollection(collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemSearch{
		db:         db,
		collection: col,
		dimension:  dimension,
		logger:     logger.With().Str("component", "chromem_search").Str("collection", collection).Logger(),
	}, nil
}

// AddNodes stores content nodes with their embeddings
func (s *ChromemSearch) AddNodes(ctx context.Context, nodes []service.ContentNode) error {
	docs := make([]chromem.Document, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			return fmt.Errorf("content node id is required")
		}
		if len(n.Vector) != s.dimension {
			return fmt.Errorf("%w: content node %q has %d dimensions, expected %d",
				service.ErrDimensionMismatch, n.ID, len(n.Vector), s.dimension)
		}
		content, err := json.Marshal(chromemPayload{Vector: n.Vector, Metadata: n.Metadata})
		if err != nil {
			return fmt.Errorf("marshal payload for %q: %w", n.ID, err)
		}
		docs = append(docs, chromem.Document{
			ID:        n.ID,
			Content:   string(content),
			Embedding: toFloat32(n.Vector),
			Metadata:  map[string]string{chromemSkillKey: n.PrimarySkill},
		})
	}

	if len(docs) == 0 {
		return nil
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	s.logger.Debug().Int("nodes", len(docs)).Msg("indexed content nodes")
	return nil
}

// Search implements service.SimilaritySearch
func (s *ChromemSearch) Search(ctx context.Context, query service.Vector, topK int) ([]service.ContentNode, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, expected %d",
			service.ErrDimensionMismatch, len(query), s.dimension)
	}

	// Cap limit to collection size to avoid chromem error
	limit := topK
	if count := s.collection.Count(); limit > count {
		limit = count
	}
	if limit <= 0 {
		return []service.ContentNode{}, nil
	}

	results, err := s.collection.QueryEmbedding(ctx, toFloat32(query), limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	nodes := make([]service.ContentNode, 0, len(results))
	for _, r := range results {
		var payload chromemPayload
		if r.Content != "" {
			if err := json.Unmarshal([]byte(r.Content), &payload); err != nil {
				return nil, fmt.Errorf("unmarshal payload for %q: %w", r.ID, err)
			}
		}
		if len(payload.Vector) != s.dimension {
			return nil, fmt.Errorf("%w: stored vector for %q has %d dimensions, expected %d",
				service.ErrDimensionMismatch, r.ID, len(payload.Vector), s.dimension)
		}
		nodes = append(nodes, service.ContentNode{
			ID:           r.ID,
			PrimarySkill: r.Metadata[chromemSkillKey],
			Vector:       payload.Vector,
			Metadata:     payload.Metadata,
		})
	}
	return nodes, nil
}

// Delete removes content nodes by ID
func (s *ChromemSearch) Delete(ctx context.Context, ids ...string) error {
	return s.collection.Delete(ctx, nil, nil, ids...)
}

// Count returns total indexed node count
func (s *ChromemSearch) Count() int {
	return s.collection.Count()
}

func toFloat32(v service.Vector) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

var _ service.SimilaritySearch = (*ChromemSearch)(nil)
