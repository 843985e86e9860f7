package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"irisai/config"
	"irisai/core"
)

// MilvusStore persists moments in a Milvus collection keyed by the frame id.
type MilvusStore struct {
	mc   client.Client
	coll string
	dim  int
}

func NewMilvusStore(cfg *config.Config) (*MilvusStore, error) {
	mc, err := client.NewClient(context.Background(), client.Config{
		Address:  cfg.MilvusAddr,
		Username: cfg.MilvusUsername,
		Password: cfg.MilvusPassword,
		APIKey:   cfg.MilvusAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}

	s := &MilvusStore{mc: mc, coll: cfg.Collection, dim: cfg.EmbeddingDim}
	if err := s.ensureSchemaAndIndex(); err != nil {
		mc.Close()
		return nil, err
	}
	return s, nil
}

func (s *MilvusStore) ensureSchemaAndIndex() error {
	ctx := context.Background()
	has, err := s.mc.HasCollection(ctx, s.coll)
	if err != nil {
		return err
	}
	if !has {
		schema := entity.NewSchema()
		schema.WithField(entity.NewField().WithName("id").WithIsPrimaryKey(true).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64))
		schema.WithField(entity.NewField().WithName("ts").WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("description").WithDataType(entity.FieldTypeVarChar).WithMaxLength(4096))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))

		if err := s.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return fmt.Errorf("new hnsw index: %w", err)
	}
	if err := s.mc.CreateIndex(ctx, s.coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := s.mc.LoadCollection(ctx, s.coll, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

func (s *MilvusStore) Name() string { return s.coll }

func (s *MilvusStore) Upsert(ctx context.Context, m core.Moment) error {
	_, err := s.mc.Upsert(ctx, s.coll, "",
		entity.NewColumnVarChar("id", []string{m.ID}),
		entity.NewColumnInt64("ts", []int64{m.Timestamp}),
		entity.NewColumnVarChar("description", []string{m.Description}),
		entity.NewColumnFloatVector("vector", s.dim, [][]float32{m.Embedding}),
	)
	if err != nil {
		return fmt.Errorf("upsert moment %s: %w", m.ID, err)
	}
	return nil
}

func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}
	sp, _ := entity.NewIndexHNSWSearchParam(74)
	res, err := s.mc.Search(ctx, s.coll, []string{}, "", []string{"ts", "description"},
		[]entity.Vector{entity.FloatVector(vector)}, "vector", entity.COSINE, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("search moments: %w", err)
	}

	var hits []Hit
	for _, r := range res {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			var h Hit
			if c, ok := cols["ts"].(*entity.ColumnInt64); ok {
				if data := c.Data(); i < len(data) {
					h.Timestamp = data[i]
				}
			}
			if c, ok := cols["description"].(*entity.ColumnVarChar); ok {
				if data := c.Data(); i < len(data) {
					h.Description = data[i]
				}
			}
			// COSINE scores are similarities, flip to a distance.
			h.Distance = 1 - float64(r.Scores[i])
			hits = append(hits, h)
		}
	}
	return hits, nil
}

func (s *MilvusStore) Count(ctx context.Context) (int64, error) {
	stats, err := s.mc.GetCollectionStatistics(ctx, s.coll)
	if err != nil {
		return 0, fmt.Errorf("collection statistics: %w", err)
	}
	n, err := strconv.ParseInt(stats["row_count"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse row_count: %w", err)
	}
	return n, nil
}

func (s *MilvusStore) Ping(ctx context.Context) error {
	_, err := s.mc.HasCollection(ctx, s.coll)
	return err
}

func (s *MilvusStore) Close(_ context.Context) error {
	return s.mc.Close()
}
