package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"irisai/analyzer"
	"irisai/core"
	"irisai/embedding"
	"irisai/storage"
)

type emptyAnalyzer struct{}

func (emptyAnalyzer) Describe(context.Context, []byte, int64) (string, error) { return "", nil }

type failingAnalyzer struct{}

func (failingAnalyzer) Describe(context.Context, []byte, int64) (string, error) {
	return "", errors.New("vision model unreachable")
}

func newTestPipeline(fa analyzer.FrameAnalyzer) (*Pipeline, *storage.MemoryStore) {
	store := storage.NewMemoryStore("video_frames")
	return NewPipeline(store, embedding.NewLocalEmbedder(256), fa), store
}

func TestProcessFrameStoresMoment(t *testing.T) {
	p, store := newTestPipeline(analyzer.NewStubAnalyzer())
	ctx := context.Background()

	frame := base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))
	if err := p.ProcessFrame(ctx, core.FrameMessage{Timestamp: 10, FrameData: frame}); err != nil {
		t.Fatalf("ProcessFrame() failed: %v", err)
	}

	count, _ := store.Count(ctx)
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestProcessFrameIdempotent(t *testing.T) {
	p, store := newTestPipeline(analyzer.NewStubAnalyzer())
	ctx := context.Background()

	msg := core.FrameMessage{Timestamp: 10}
	if err := p.ProcessFrame(ctx, msg); err != nil {
		t.Fatalf("ProcessFrame() failed: %v", err)
	}
	if err := p.ProcessFrame(ctx, msg); err != nil {
		t.Fatalf("ProcessFrame() re-delivery failed: %v", err)
	}

	count, _ := store.Count(ctx)
	if count != 1 {
		t.Errorf("Count() = %d after re-delivery of the same timestamp, want 1", count)
	}
}

func TestProcessFrameSkipsEmptyDescription(t *testing.T) {
	p, store := newTestPipeline(emptyAnalyzer{})
	ctx := context.Background()

	err := p.ProcessFrame(ctx, core.FrameMessage{Timestamp: 10})
	if !errors.Is(err, ErrSkipped) {
		t.Fatalf("ProcessFrame() = %v, want ErrSkipped", err)
	}

	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("Count() = %d after skipped frame, want 0", count)
	}
}

func TestProcessFrameAnalyzerFailureWritesNothing(t *testing.T) {
	p, store := newTestPipeline(failingAnalyzer{})
	ctx := context.Background()

	if err := p.ProcessFrame(ctx, core.FrameMessage{Timestamp: 10}); err == nil {
		t.Fatal("expected error from failing analyzer")
	}

	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("Count() = %d after analyzer failure, want 0", count)
	}
}

func TestProcessFrameRejectsBadBase64(t *testing.T) {
	p, store := newTestPipeline(analyzer.NewStubAnalyzer())
	ctx := context.Background()

	err := p.ProcessFrame(ctx, core.FrameMessage{Timestamp: 10, FrameData: "not-base64!!!"})
	if err == nil {
		t.Fatal("expected error for malformed frame data")
	}
	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("Count() = %d after malformed frame, want 0", count)
	}
}
