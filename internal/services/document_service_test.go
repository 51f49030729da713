package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zgai/chatlibrary/internal/chunker"
	"github.com/zgai/chatlibrary/internal/models"
	pgrepo "github.com/zgai/chatlibrary/internal/repositories/postgres"
	"github.com/zgai/chatlibrary/internal/utils"
)

type docFixture struct {
	svc      DocumentService
	docs     pgrepo.DocumentRepository
	chunks   pgrepo.ChunkRepository
	uploader *fakeUploader
	store    *fakeStore
	enqueued []string
}

func newDocFixture(t *testing.T, extractor fakeExtractor) *docFixture {
	t.Helper()
	db := testDB(t)
	f := &docFixture{
		docs:     pgrepo.NewDocumentRepo(db),
		chunks:   pgrepo.NewChunkRepo(db),
		uploader: newFakeUploader(),
		store:    newFakeStore(),
	}
	f.svc = NewDocumentService(
		f.docs, f.chunks, f.uploader, extractor,
		chunker.NewTokenSplitter(10), f.store,
		func(id string) { f.enqueued = append(f.enqueued, id) },
		testLogger(),
		[]string{"pdf", "txt", "md"},
		"nomic-embed-text",
	)
	return f
}

const multiSentence = "Alpha one sentence here. Beta two sentence here. Gamma three sentence here. Delta four sentence here."

func TestUpload_RejectsUnsupportedExtension(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{})
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, "user-1", "malware.exe", "application/octet-stream", 4, strings.NewReader("data"))
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	// The rejection happens before any side effect.
	assert.Equal(t, 0, f.uploader.count())
	assert.Empty(t, f.enqueued)
	rows, err := f.docs.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpload_StoresFileAndEnqueues(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{})
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, "user-1", "notes.txt", "text/plain", 5, strings.NewReader("hello"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusProcessing, doc.Status)
	assert.Equal(t, "notes.txt", doc.OriginalFilename)
	assert.Equal(t, "txt", doc.FileType)
	assert.Equal(t, "nomic-embed-text", doc.EmbeddingModel)
	assert.Equal(t, 1, f.uploader.count())
	require.Equal(t, []string{doc.ID}, f.enqueued)

	// The row is already visible while processing is pending.
	got, err := f.svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
}

func TestProcessDocument_Success(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: multiSentence, pages: 3})
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, "user-1", "notes.txt", "text/plain", 10, strings.NewReader("raw bytes"))
	require.NoError(t, err)

	f.svc.ProcessDocument(ctx, doc.ID)

	got, err := f.svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessed, got.Status)
	assert.Empty(t, got.ErrorMessage)
	assert.Equal(t, 3, got.TotalPages)
	require.NotNil(t, got.ProcessedAt)

	rows, err := f.chunks.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, got.TotalChunks, len(rows))
	assert.Equal(t, len(rows), f.store.indexed(), "every chunk row has an index entry")

	seen := map[string]bool{}
	for i, row := range rows {
		assert.Equal(t, i, row.ChunkIndex, "chunk indices are contiguous from zero")
		assert.NotEmpty(t, row.Content)

		var meta map[string]any
		require.NoError(t, json.Unmarshal(row.Metadata, &meta))
		vectorID, _ := meta[models.MetaVectorID].(string)
		require.NotEmpty(t, vectorID)
		assert.False(t, seen[vectorID], "vector ids are unique per chunk")
		seen[vectorID] = true

		entry, ok := f.store.entries[vectorID]
		require.True(t, ok, "row metadata points at a live index entry")
		assert.Equal(t, row.Content, entry.Content)
		assert.Equal(t, "notes.txt", meta[models.MetaFilename])
		assert.Equal(t, "user-1", meta[models.MetaUserID])
		assert.Equal(t, doc.ID, meta["documentId"])
	}
}

func TestProcessDocument_EmptyExtraction(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: "   "})
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, "user-1", "empty.txt", "text/plain", 0, strings.NewReader(""))
	require.NoError(t, err)

	f.svc.ProcessDocument(ctx, doc.ID)

	got, err := f.svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)

	rows, err := f.chunks.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 0, f.store.indexed())
}

func TestProcessDocument_IndexFailure(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: multiSentence})
	f.store.addErr = errors.New("index unreachable")
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, "user-1", "notes.txt", "text/plain", 10, strings.NewReader("raw"))
	require.NoError(t, err)

	f.svc.ProcessDocument(ctx, doc.ID)

	got, err := f.svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "index unreachable")

	// Chunk rows land before indexing and stay behind on failure.
	rows, err := f.chunks.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, rows)
}

func TestDelete_RemovesEverything(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: multiSentence})
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, "user-1", "notes.txt", "text/plain", 10, strings.NewReader("raw"))
	require.NoError(t, err)
	f.svc.ProcessDocument(ctx, doc.ID)

	rows, err := f.chunks.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	require.NoError(t, f.svc.Delete(ctx, doc.ID))

	assert.Equal(t, 0, f.store.indexed(), "all vectors removed from the index")
	assert.Equal(t, len(rows), len(f.store.deleted))
	assert.Equal(t, 0, f.uploader.count())

	rows, err = f.chunks.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = f.svc.Get(ctx, doc.ID)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestDelete_SecondCallNotFound(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: multiSentence})
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, "user-1", "notes.txt", "text/plain", 10, strings.NewReader("raw"))
	require.NoError(t, err)
	f.svc.ProcessDocument(ctx, doc.ID)

	require.NoError(t, f.svc.Delete(ctx, doc.ID))
	err = f.svc.Delete(ctx, doc.ID)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestDelete_ToleratesIndexFailure(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: multiSentence})
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, "user-1", "notes.txt", "text/plain", 10, strings.NewReader("raw"))
	require.NoError(t, err)
	f.svc.ProcessDocument(ctx, doc.ID)

	f.store.deleteErr = errors.New("index unreachable")
	require.NoError(t, f.svc.Delete(ctx, doc.ID), "a dead index must not block cleanup")

	rows, err := f.chunks.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 0, f.uploader.count())
	_, err = f.svc.Get(ctx, doc.ID)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestPreviewContent(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: "extracted preview"})
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, "user-1", "notes.txt", "text/plain", 3, strings.NewReader("raw"))
	require.NoError(t, err)

	text, err := f.svc.PreviewContent(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "extracted preview", text)
}

func TestList_OrderedNewestFirst(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{})
	ctx := context.Background()

	first, err := f.svc.Upload(ctx, "user-1", "a.txt", "text/plain", 1, strings.NewReader("a"))
	require.NoError(t, err)
	second, err := f.svc.Upload(ctx, "user-1", "b.txt", "text/plain", 1, strings.NewReader("b"))
	require.NoError(t, err)
	// Force distinct timestamps regardless of clock granularity.
	second.UploadedAt = first.UploadedAt.Add(1)
	require.NoError(t, f.docs.Update(ctx, second))

	rows, err := f.svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ID)
	assert.Equal(t, first.ID, rows[1].ID)

	rows, err = f.svc.List(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
