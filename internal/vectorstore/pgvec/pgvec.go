package pgvec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/zgai/chatlibrary/internal/providers/embed"
	"github.com/zgai/chatlibrary/internal/vectorstore"
)

type row struct {
	VectorID  string          `gorm:"column:vector_id;primaryKey"`
	Content   string          `gorm:"column:content"`
	Metadata  datatypes.JSON  `gorm:"column:metadata"`
	Embedding pgvector.Vector `gorm:"column:embedding"`
}

func (row) TableName() string { return "chunk_embeddings" }

// Store keeps chunk embeddings in a pgvector column and searches them with
// cosine distance. Alternative to the Qdrant backend for single-Postgres
// deployments.
type Store struct {
	db       *gorm.DB
	embedder embed.Embedder
}

// New prepares the chunk_embeddings table. The column dimension must match
// the configured embedder, so the table is created by hand instead of
// AutoMigrate.
func New(db *gorm.DB, embedder embed.Embedder, dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid embedding dimension")
	}
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, err
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunk_embeddings (
		vector_id text PRIMARY KEY,
		content text,
		metadata jsonb,
		embedding vector(%d))`, dimension)
	if err := db.Exec(ddl).Error; err != nil {
		return nil, err
	}
	return &Store{db: db, embedder: embedder}, nil
}

func (s *Store) Add(ctx context.Context, entries []vectorstore.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]row, len(entries))
	for i, e := range entries {
		vec, err := s.embedder.Embed(ctx, e.Content)
		if err != nil {
			return fmt.Errorf("embed entry %s: %w", e.ID, err)
		}
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		rows[i] = row{
			VectorID:  e.ID,
			Content:   e.Content,
			Metadata:  datatypes.JSON(meta),
			Embedding: pgvector.NewVector(vec),
		}
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

func (s *Store) Search(ctx context.Context, query string, topK int, threshold float32) ([]vectorstore.Passage, error) {
	if topK <= 0 {
		topK = 5
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	var hits []struct {
		Content  string
		Metadata datatypes.JSON
		Score    float32
	}
	err = s.db.WithContext(ctx).Raw(
		`SELECT content, metadata, 1 - (embedding <=> ?) AS score
		 FROM chunk_embeddings
		 ORDER BY embedding <=> ?
		 LIMIT ?`,
		pgvector.NewVector(vec), pgvector.NewVector(vec), topK,
	).Scan(&hits).Error
	if err != nil {
		return nil, err
	}

	passages := make([]vectorstore.Passage, 0, len(hits))
	for _, h := range hits {
		if h.Score < threshold {
			continue
		}
		meta := map[string]any{}
		if len(h.Metadata) > 0 {
			_ = json.Unmarshal(h.Metadata, &meta)
		}
		passages = append(passages, vectorstore.Passage{Content: h.Content, Metadata: meta, Score: h.Score})
	}
	return passages, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("vector_id IN ?", ids).Delete(&row{}).Error
}
