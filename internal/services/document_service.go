package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/zgai/chatlibrary/internal/chunker"
	"github.com/zgai/chatlibrary/internal/models"
	"github.com/zgai/chatlibrary/internal/providers/extract"
	pgrepo "github.com/zgai/chatlibrary/internal/repositories/postgres"
	"github.com/zgai/chatlibrary/internal/storage"
	"github.com/zgai/chatlibrary/internal/utils"
	"github.com/zgai/chatlibrary/internal/vectorstore"
)

type DocumentService interface {
	// Upload validates and stores the file, persists the document row with
	// status PROCESSING and hands the id to the background queue. It
	// returns before any extraction or indexing has run.
	Upload(ctx context.Context, userID, filename, contentType string, size int64, r io.Reader) (*models.Document, error)

	// ProcessDocument runs the background stage for one document. Errors
	// are recorded on the row, never returned across the async boundary.
	ProcessDocument(ctx context.Context, documentID string)

	List(ctx context.Context, userID string) ([]models.Document, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	Open(ctx context.Context, id string) (*models.Document, io.ReadCloser, error)
	PreviewContent(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
}

type documentService struct {
	docs      pgrepo.DocumentRepository
	chunks    pgrepo.ChunkRepository
	uploader  storage.Uploader
	extractor extract.Extractor
	splitter  chunker.Splitter
	store     vectorstore.Store
	enqueue   func(documentID string)
	log       *logrus.Logger

	allowedExts    map[string]struct{}
	embeddingModel string
}

func NewDocumentService(
	docs pgrepo.DocumentRepository,
	chunks pgrepo.ChunkRepository,
	uploader storage.Uploader,
	extractor extract.Extractor,
	splitter chunker.Splitter,
	store vectorstore.Store,
	enqueue func(documentID string),
	log *logrus.Logger,
	allowedExts []string,
	embeddingModel string,
) DocumentService {
	allowed := make(map[string]struct{}, len(allowedExts))
	for _, e := range allowedExts {
		allowed[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}
	return &documentService{
		docs:           docs,
		chunks:         chunks,
		uploader:       uploader,
		extractor:      extractor,
		splitter:       splitter,
		store:          store,
		enqueue:        enqueue,
		log:            log,
		allowedExts:    allowed,
		embeddingModel: embeddingModel,
	}
}

func (s *documentService) Upload(ctx context.Context, userID, filename, contentType string, size int64, r io.Reader) (*models.Document, error) {
	const op = "DocumentService.Upload"

	if userID == "" || filename == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and filename are required", nil)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if _, ok := s.allowedExts[ext]; !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, "unsupported file type ."+ext, nil)
	}

	// The file must be durable before the document row exists; a row must
	// never reference bytes that are not on disk yet.
	objectName := uuid.NewString() + "." + ext
	storedPath, err := s.uploader.Upload(ctx, objectName, contentType, r)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to store file", err)
	}

	doc := &models.Document{
		ID:               uuid.NewString(),
		UserID:           userID,
		DocumentName:     filename,
		OriginalFilename: filename,
		FilePath:         storedPath,
		FileType:         ext,
		FileSize:         size,
		ContentType:      contentType,
		Status:           models.StatusProcessing,
		EmbeddingModel:   s.embeddingModel,
		UploadedAt:       time.Now().UTC(),
	}
	if err := s.docs.Insert(ctx, doc); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to persist document", err)
	}

	s.enqueue(doc.ID)
	return doc, nil
}

func (s *documentService) ProcessDocument(ctx context.Context, documentID string) {
	log := s.log.WithFields(logrus.Fields{"component": "pipeline", "document_id": documentID})

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		log.WithError(err).Error("document vanished before processing")
		return
	}

	if err := s.process(ctx, doc); err != nil {
		log.WithError(err).Error("document processing failed")
		doc.Status = models.StatusFailed
		doc.ErrorMessage = err.Error()
		if uerr := s.docs.Update(ctx, doc); uerr != nil {
			log.WithError(uerr).Error("failed to record FAILED status")
		}
		return
	}

	log.WithField("total_chunks", doc.TotalChunks).Info("document processed")
}

func (s *documentService) process(ctx context.Context, doc *models.Document) error {
	f, err := s.uploader.Open(ctx, doc.FilePath)
	if err != nil {
		return err
	}
	text, pages, err := s.extractor.Extract(ctx, f, doc.OriginalFilename)
	f.Close()
	if err != nil {
		return err
	}

	pieces := s.splitter.Split(text)
	if len(pieces) == 0 {
		return extract.ErrNoContent
	}

	rows := make([]models.DocumentChunk, len(pieces))
	entries := make([]vectorstore.Entry, len(pieces))
	for i, p := range pieces {
		vectorID := uuid.NewString()
		meta := map[string]any{
			models.MetaVectorID:    vectorID,
			models.MetaFilename:    doc.OriginalFilename,
			models.MetaUserID:      doc.UserID,
			models.MetaContentType: doc.ContentType,
			"documentId":           doc.ID,
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		rows[i] = models.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			ChunkIndex: p.Index,
			Content:    p.Content,
			TokenCount: p.TokenCount,
			Metadata:   datatypes.JSON(metaJSON),
		}
		entries[i] = vectorstore.Entry{ID: vectorID, Content: p.Content, Metadata: meta}
	}

	// Chunk rows land as one batch before indexing. On an index failure the
	// rows stay behind and the document goes FAILED: at-least-once, no
	// automatic rollback.
	if err := s.chunks.InsertBatch(ctx, rows); err != nil {
		return err
	}
	if err := s.store.Add(ctx, entries); err != nil {
		return err
	}

	now := time.Now().UTC()
	doc.Status = models.StatusProcessed
	doc.TotalChunks = len(rows)
	doc.TotalPages = pages
	doc.ProcessedAt = &now
	return s.docs.Update(ctx, doc)
}

func (s *documentService) List(ctx context.Context, userID string) ([]models.Document, error) {
	const op = "DocumentService.List"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rows, err := s.docs.ListByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list documents", err)
	}
	return rows, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*models.Document, error) {
	const op = "DocumentService.Get"

	doc, err := s.docs.GetByID(ctx, id)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "document not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load document", err)
	}
	return doc, nil
}

func (s *documentService) Open(ctx context.Context, id string) (*models.Document, io.ReadCloser, error) {
	const op = "DocumentService.Open"

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.uploader.Open(ctx, doc.FilePath)
	if err != nil {
		return nil, nil, utils.E(utils.CodeNotFound, op, "stored file is missing", err)
	}
	return doc, f, nil
}

func (s *documentService) PreviewContent(ctx context.Context, id string) (string, error) {
	const op = "DocumentService.PreviewContent"

	doc, f, err := s.Open(ctx, id)
	if err != nil {
		return "", err
	}
	defer f.Close()

	text, _, err := s.extractor.Extract(ctx, f, doc.OriginalFilename)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to extract preview", err)
	}
	return text, nil
}

// Delete fans out across the vector index, the chunk table, the file store
// and the document row, in that order. The index goes first so a crash
// mid-way leaves unindexed rows rather than an index pointing at nothing;
// there is no transaction spanning the three stores.
func (s *documentService) Delete(ctx context.Context, id string) error {
	const op = "DocumentService.Delete"
	log := s.log.WithFields(logrus.Fields{"component": "deletion", "document_id": id})

	doc, err := s.docs.GetByID(ctx, id)
	if errors.Is(err, utils.ErrNotFound) {
		return utils.E(utils.CodeNotFound, op, "document not found", err)
	}
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to load document", err)
	}

	chunks, err := s.chunks.ListByDocument(ctx, id)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to load chunks", err)
	}

	var vectorIDs []string
	for _, c := range chunks {
		var meta map[string]any
		if err := json.Unmarshal(c.Metadata, &meta); err != nil {
			continue
		}
		if v, ok := meta[models.MetaVectorID].(string); ok && v != "" {
			vectorIDs = append(vectorIDs, v)
		}
	}

	// Best-effort: orphaned vectors are preferable to blocking cleanup.
	if len(vectorIDs) > 0 {
		if err := s.store.Delete(ctx, vectorIDs); err != nil {
			log.WithError(err).Warn("vector index delete failed, continuing")
		}
	}

	if err := s.chunks.DeleteByDocument(ctx, id); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete chunks", err)
	}

	if err := s.uploader.Delete(ctx, doc.FilePath); err != nil {
		log.WithError(err).Warn("file delete failed, continuing")
	}

	if err := s.docs.DeleteByID(ctx, id); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete document row", err)
	}
	return nil
}
