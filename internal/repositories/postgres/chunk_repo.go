package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/zgai/chatlibrary/internal/models"
)

type ChunkRepository interface {
	// InsertBatch writes all chunk rows of one document in a single
	// statement; either every row lands or the error fails the document.
	InsertBatch(ctx context.Context, chunks []models.DocumentChunk) error
	ListByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

type chunkRepo struct {
	db *gorm.DB
}

func NewChunkRepo(db *gorm.DB) ChunkRepository {
	return &chunkRepo{db: db}
}

func (r *chunkRepo) InsertBatch(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&chunks).Error
}

func (r *chunkRepo) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	var rows []models.DocumentChunk
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&rows).Error
	return rows, err
}

func (r *chunkRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	return r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&models.DocumentChunk{}).Error
}
