// Package rag answers questions about the video by retrieving the most
// similar indexed moments and synthesizing a response with timestamps.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"irisai/core"
	"irisai/embedding"
	"irisai/storage"
)

// ErrUnavailable reports that the vector index cannot be reached. Callers
// surface it as a distinct "service unavailable" condition instead of a
// generic failure.
var ErrUnavailable = errors.New("vector database not available")

// Engine is the question-answering read path. It never writes to the store.
type Engine struct {
	store    storage.VectorStore
	embedder embedding.Embedder
	synth    Synthesizer
	topK     int
}

func NewEngine(store storage.VectorStore, embedder embedding.Embedder, synth Synthesizer, topK int) *Engine {
	if topK <= 0 {
		topK = 5
	}
	if synth == nil {
		synth = TemplateSynthesizer{}
	}
	return &Engine{store: store, embedder: embedder, synth: synth, topK: topK}
}

// Ask retrieves the moments most similar to the question and synthesizes an
// answer. An empty index is a normal outcome and yields the empty-context
// answer; only an unreachable index is an error.
func (e *Engine) Ask(ctx context.Context, question string) (*core.AskResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is required")
	}
	if err := e.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	vector, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := e.store.Search(ctx, vector, e.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	items := make([]core.ContextItem, 0, len(hits))
	timestamps := make([]int64, 0, len(hits))
	for _, h := range hits {
		items = append(items, core.ContextItem{
			Description: h.Description,
			Timestamp:   h.Timestamp,
			Datetime:    core.ISOTime(h.Timestamp),
			Distance:    h.Distance,
		})
		timestamps = append(timestamps, h.Timestamp)
	}

	return &core.AskResponse{
		Question:   question,
		Answer:     e.synth.Synthesize(ctx, question, items),
		Timestamps: timestamps,
		Context:    items,
	}, nil
}
