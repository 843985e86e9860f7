// Package ingest consumes frame events and turns them into indexed moments.
package ingest

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"irisai/analyzer"
	"irisai/core"
	"irisai/embedding"
	"irisai/storage"
)

// Pipeline processes one frame event into at most one persisted moment.
type Pipeline struct {
	store    storage.VectorStore
	embedder embedding.Embedder
	analyzer analyzer.FrameAnalyzer
}

func NewPipeline(store storage.VectorStore, embedder embedding.Embedder, fa analyzer.FrameAnalyzer) *Pipeline {
	return &Pipeline{store: store, embedder: embedder, analyzer: fa}
}

// ErrSkipped marks frames that were dropped rather than failed: nothing was
// written and nothing needs retrying.
var ErrSkipped = fmt.Errorf("frame skipped")

// ProcessFrame analyzes, embeds, and upserts a single frame. A frame whose
// analysis produces no description is skipped without touching the index.
// Upsert is idempotent: re-delivery of a timestamp overwrites its moment.
func (p *Pipeline) ProcessFrame(ctx context.Context, msg core.FrameMessage) error {
	frame, err := base64.StdEncoding.DecodeString(msg.FrameData)
	if err != nil {
		return fmt.Errorf("decode frame data: %w", err)
	}

	description, err := p.analyzer.Describe(ctx, frame, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("analyze frame: %w", err)
	}
	if description == "" {
		return ErrSkipped
	}

	vector, err := p.embedder.Embed(ctx, description)
	if err != nil {
		return fmt.Errorf("embed description: %w", err)
	}

	m := core.NewMoment(msg.Timestamp, description, vector)
	if err := p.store.Upsert(ctx, m); err != nil {
		return fmt.Errorf("store moment: %w", err)
	}
	log.Printf("Frame stored: %s", m)
	return nil
}
