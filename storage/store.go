// Package storage holds the vector index the ingestion pipeline writes to
// and the query pipeline reads from.
package storage

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"irisai/config"
	"irisai/core"
	"irisai/embedding"
)

// Hit is one nearest-neighbor result. Distance is ascending: lower means
// more similar.
type Hit struct {
	Timestamp   int64
	Description string
	Distance    float64
}

// VectorStore abstracts the storage backend. Upsert must be idempotent for
// a given moment id; Search returns up to topK hits ordered by ascending
// distance. Implementations handle their own internal consistency, writers
// and readers may run concurrently.
type VectorStore interface {
	Upsert(ctx context.Context, m core.Moment) error
	Search(ctx context.Context, vector []float32, topK int) ([]Hit, error)
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Name() string
	Close(ctx context.Context) error
}

// NewStore builds the backend selected by cfg.Store, falling back to the
// in-memory store when the backend cannot be reached. Queries against a
// degraded deployment still work, they just start from an empty index.
func NewStore(cfg *config.Config) VectorStore {
	switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
	case "pgvector":
		s, err := NewPgVectorStore(cfg)
		if err != nil {
			log.Printf("Warning: failed to initialize pgvector store (%v), falling back to memory store", err)
			return NewMemoryStore(cfg.Collection)
		}
		return s
	case "milvus":
		s, err := NewMilvusStore(cfg)
		if err != nil {
			log.Printf("Warning: failed to initialize Milvus store (%v), falling back to memory store", err)
			return NewMemoryStore(cfg.Collection)
		}
		return s
	default:
		return NewMemoryStore(cfg.Collection)
	}
}

// ---------------- Memory implementation (default and fallback) ----------------

type memoryEntry struct {
	moment core.Moment
	seq    int64 // first-insert order, kept across overwrites
}

// MemoryStore keeps moments in process memory. Ties in distance break on
// insertion order so repeated queries stay deterministic.
type MemoryStore struct {
	mu      sync.RWMutex
	name    string
	byID    map[string]int // id -> index into entries
	entries []memoryEntry
	nextSeq int64
}

func NewMemoryStore(name string) *MemoryStore {
	if name == "" {
		name = "video_frames"
	}
	return &MemoryStore{name: name, byID: map[string]int{}}
}

func (s *MemoryStore) Name() string { return s.name }

func (s *MemoryStore) Upsert(_ context.Context, m core.Moment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.byID[m.ID]; ok {
		s.entries[i].moment = m
		return nil
	}
	s.byID[m.ID] = len(s.entries)
	s.entries = append(s.entries, memoryEntry{moment: m, seq: s.nextSeq})
	s.nextSeq++
	return nil
}

func (s *MemoryStore) Search(_ context.Context, vector []float32, topK int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	type scored struct {
		hit Hit
		seq int64
	}
	scores := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		d := 1 - embedding.Cosine(vector, e.moment.Embedding)
		scores = append(scores, scored{
			hit: Hit{Timestamp: e.moment.Timestamp, Description: e.moment.Description, Distance: d},
			seq: e.seq,
		})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].hit.Distance != scores[j].hit.Distance {
			return scores[i].hit.Distance < scores[j].hit.Distance
		}
		return scores[i].seq < scores[j].seq
	})
	if topK > len(scores) {
		topK = len(scores)
	}
	hits := make([]Hit, 0, topK)
	for _, sc := range scores[:topK] {
		hits = append(hits, sc.hit)
	}
	return hits, nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close(_ context.Context) error { return nil }
