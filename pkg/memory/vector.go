// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import "context"

// VectorStore is a collection-oriented nearest-neighbour index.
type VectorStore interface {
	// EnsureCollection creates the collection unless it already exists.
	EnsureCollection(ctx context.Context, name string, vectorSize uint64) error
	// DeleteCollection removes the collection and its points. Deleting a
	// missing collection is not an error.
	DeleteCollection(ctx context.Context, name string) error
	// Upsert adds or replaces points by ID.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns up to limit points scoring at least scoreThreshold,
	// best first.
	Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error)
}

// Point is one stored vector with its payload. IDs are UUIDs.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// SearchResult is one search hit.
type SearchResult struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
	Point Point   `json:"point"`
}

// Embedder converts text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
