package models

import "time"

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusProcessed  DocumentStatus = "PROCESSED"
	StatusFailed     DocumentStatus = "FAILED"
)

// Document tracks one uploaded file through the ingestion pipeline.
// Status moves PROCESSING -> PROCESSED|FAILED. Deletion is physical: the row
// is removed rather than flagged, so no terminal status exists for it.
type Document struct {
	ID               string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID           string         `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	DocumentName     string         `gorm:"column:document_name;type:text" json:"document_name"`
	OriginalFilename string         `gorm:"column:original_filename;type:text" json:"original_filename"`
	FilePath         string         `gorm:"column:file_path;type:text" json:"file_path"`
	FileType         string         `gorm:"column:file_type;type:text" json:"file_type"`
	FileSize         int64          `gorm:"column:file_size;type:bigint" json:"file_size"`
	ContentType      string         `gorm:"column:content_type;type:text" json:"content_type"`
	Status           DocumentStatus `gorm:"column:status;type:text;index" json:"status"`
	ErrorMessage     string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	TotalChunks      int            `gorm:"column:total_chunks;type:integer" json:"total_chunks"`
	TotalPages       int            `gorm:"column:total_pages;type:integer" json:"total_pages"`
	EmbeddingModel   string         `gorm:"column:embedding_model;type:text" json:"embedding_model"`

	UploadedAt  time.Time  `gorm:"column:uploaded_at;type:timestamptz" json:"uploaded_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at;type:timestamptz" json:"processed_at,omitempty"`
}

func (Document) TableName() string { return "documents" }
