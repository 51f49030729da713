package models

import "gorm.io/datatypes"

// Metadata keys carried on every chunk. MetaVectorID correlates the row
// with its entry in the vector index and is required for deletion.
const (
	MetaVectorID    = "vectorId"
	MetaFilename    = "filename"
	MetaUserID      = "userId"
	MetaContentType = "contentType"
)

type DocumentChunk struct {
	ID         string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DocumentID string         `gorm:"column:document_id;type:uuid;index" json:"document_id"`
	ChunkIndex int            `gorm:"column:chunk_index;type:integer" json:"chunk_index"`
	Content    string         `gorm:"column:content;type:text" json:"content"`
	TokenCount int            `gorm:"column:token_count;type:integer" json:"token_count"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
}

func (DocumentChunk) TableName() string { return "document_chunks" }
