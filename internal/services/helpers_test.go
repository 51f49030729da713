package services

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zgai/chatlibrary/internal/models"
	"github.com/zgai/chatlibrary/internal/vectorstore"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Document{},
		&models.DocumentChunk{},
		&models.ConversationHistory{},
		&models.ConversationMessage{},
	))
	return db
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeUploader keeps files in a map, mirroring the LocalDisk contract.
type fakeUploader struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{files: map[string][]byte{}}
}

func (f *fakeUploader) Upload(_ context.Context, objectName, _ string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[objectName] = b
	return objectName, nil
}

func (f *fakeUploader) Open(_ context.Context, storedPath string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.files[storedPath]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeUploader) Delete(_ context.Context, storedPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, storedPath)
	f.deleted = append(f.deleted, storedPath)
	return nil
}

func (f *fakeUploader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

// fakeExtractor ignores the file bytes and returns canned text.
type fakeExtractor struct {
	text  string
	pages int
	err   error
}

func (f fakeExtractor) Extract(context.Context, io.Reader, string) (string, int, error) {
	return f.text, f.pages, f.err
}

// fakeStore is an in-memory stand-in for the vector index.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]vectorstore.Entry
	deleted []string

	searchCalls  int
	searchResult []vectorstore.Passage

	addErr    error
	searchErr error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]vectorstore.Entry{}}
}

func (f *fakeStore) Add(_ context.Context, entries []vectorstore.Entry) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		f.entries[e.ID] = e
	}
	return nil
}

func (f *fakeStore) Search(context.Context, string, int, float32) ([]vectorstore.Passage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	return f.searchResult, f.searchErr
}

func (f *fakeStore) Delete(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for _, id := range ids {
		delete(f.entries, id)
	}
	return nil
}

func (f *fakeStore) indexed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// fakeProvider replays canned fragments over the streaming contract. With
// blockOnCtx set it produces nothing until the context is cancelled.
type fakeProvider struct {
	fragments  []string
	err        error
	blockOnCtx bool

	mu         sync.Mutex
	lastSystem string
}

func (p *fakeProvider) StreamChat(ctx context.Context, systemPrompt, _, _ string) (<-chan string, <-chan error) {
	p.mu.Lock()
	p.lastSystem = systemPrompt
	p.mu.Unlock()

	out := make(chan string, len(p.fragments)+1)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		if p.blockOnCtx {
			<-ctx.Done()
			return
		}
		for _, f := range p.fragments {
			out <- f
		}
		if p.err != nil {
			errs <- p.err
		}
	}()
	return out, errs
}

func (p *fakeProvider) Close() error { return nil }

func (p *fakeProvider) systemPromptSeen() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSystem
}
