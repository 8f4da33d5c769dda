package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/goccy/go-json"
)

// FlatIndex implements SimilaritySearch using brute-force cosine search
// over an in-memory catalog. This is the simplest implementation and serves
// as a baseline and test double for the real index backends.
type FlatIndex struct {
	dimension int
	mu        sync.RWMutex
	nodes     map[string]ContentNode
}

// NewFlatIndex creates a new flat content index
func NewFlatIndex(dimension int) *FlatIndex {
	return &FlatIndex{
		dimension: dimension,
		nodes:     make(map[string]ContentNode),
	}
}

// Upsert adds or replaces a content node
func (f *FlatIndex) Upsert(ctx context.Context, node ContentNode) error {
	if node.ID == "" {
		return fmt.Errorf("content node id is required")
	}
	if len(node.Vector) != f.dimension {
		return dimensionError(fmt.Sprintf("content node %q", node.ID), f.dimension, len(node.Vector))
	}

	f.mu.Lock()
	f.nodes[node.ID] = cloneNode(node)
	f.mu.Unlock()

	return nil
}

// Search performs k-NN search using brute force
func (f *FlatIndex) Search(ctx context.Context, query Vector, topK int) ([]ContentNode, error) {
	if len(query) != f.dimension {
		return nil, dimensionError("query vector", f.dimension, len(query))
	}
	if topK <= 0 {
		return []ContentNode{}, nil
	}

	type candidate struct {
		node       ContentNode
		similarity float64
	}

	f.mu.RLock()
	candidates := make([]candidate, 0, len(f.nodes))
	for _, node := range f.nodes {
		candidates = append(candidates, candidate{node: node, similarity: cosineSimilarity(query, node.Vector)})
	}
	f.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Similarity descending, id ascending on ties so results are stable
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].similarity != candidates[j].similarity {
			return candidates[i].similarity > candidates[j].similarity
		}
		return candidates[i].node.ID < candidates[j].node.ID
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}

	results := make([]ContentNode, topK)
	for i := 0; i < topK; i++ {
		results[i] = cloneNode(candidates[i].node)
	}

	return results, nil
}

// Delete removes a content node
func (f *FlatIndex) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	delete(f.nodes, id)
	f.mu.Unlock()
	return nil
}

// Len returns the number of indexed nodes
func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.nodes)
}

// LoadContentFile reads a JSON array of content nodes into the index
func (f *FlatIndex) LoadContentFile(ctx context.Context, path string) (int, error) {
	nodes, err := ReadContentFile(path)
	if err != nil {
		return 0, err
	}
	for _, node := range nodes {
		if err := f.Upsert(ctx, node); err != nil {
			return 0, err
		}
	}
	return len(nodes), nil
}

// ReadContentFile decodes a JSON array of content nodes
func ReadContentFile(path string) ([]ContentNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}
	var nodes []ContentNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("failed to decode content file %s: %w", path, err)
	}
	return nodes, nil
}

func cloneNode(node ContentNode) ContentNode {
	out := node
	out.Vector = node.Vector.Clone()
	if node.Metadata != nil {
		out.Metadata = make(map[string]any, len(node.Metadata))
		for k, v := range node.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
