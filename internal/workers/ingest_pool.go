package workers

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// IngestPool runs the background stage of the ingestion pipeline on a
// bounded set of workers. Each document is enqueued exactly once at submit
// time, so no two jobs for the same document run concurrently.
type IngestPool struct {
	Process    func(ctx context.Context, documentID string)
	NumWorkers int
	QueueSize  int
	Logger     *logrus.Logger

	base context.Context
	jobs chan string
	wg   sync.WaitGroup
	once sync.Once
}

func (p *IngestPool) Start(ctx context.Context) error {
	if p.Process == nil {
		return errors.New("IngestPool missing dependency: Process must be set")
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 4
	}
	if p.QueueSize <= 0 {
		p.QueueSize = 128
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	// Workers stop on Shutdown alone. The processing context is detached
	// from ctx so a shutdown signal cannot cancel queued work: a document
	// taken off the queue either finishes or records FAILED.
	p.base = context.WithoutCancel(ctx)
	p.jobs = make(chan string, p.QueueSize)

	for i := 0; i < p.NumWorkers; i++ {
		p.wg.Add(1)
		go p.run(i + 1)
	}
	return nil
}

// Enqueue hands a document id to the pool. It blocks when the queue is full
// rather than dropping work; upload handlers run on their own goroutines.
func (p *IngestPool) Enqueue(documentID string) {
	p.jobs <- documentID
}

// Shutdown stops intake, then waits for the workers to drain the queue.
func (p *IngestPool) Shutdown() {
	p.once.Do(func() { close(p.jobs) })
	p.wg.Wait()
}

func (p *IngestPool) run(n int) {
	defer p.wg.Done()
	log := p.Logger.WithFields(logrus.Fields{"component": "ingest-pool", "worker": n})

	for id := range p.jobs {
		log.WithField("document_id", id).Debug("processing document")
		p.Process(p.base, id)
	}
}
