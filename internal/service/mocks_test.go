package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bugrelay/internal/models"
	"bugrelay/pkg/ingest"
)

// memStore is an in-memory QueueStore with the same ordering semantics as
// the SQLite store.
type memStore struct {
	mu         sync.Mutex
	subs       map[string]models.PendingSubmission
	failSave   error
	failDelete error
}

func newMemStore() *memStore {
	return &memStore{subs: make(map[string]models.PendingSubmission)}
}

func (m *memStore) SaveSubmission(ctx context.Context, sub *models.PendingSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.subs[sub.ID] = *sub
	return nil
}

func (m *memStore) GetAllSubmissions(ctx context.Context) ([]*models.PendingSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.PendingSubmission, 0, len(m.subs))
	for _, sub := range m.subs {
		copied := sub
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) DeleteSubmission(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return m.failDelete
	}
	delete(m.subs, id)
	return nil
}

func (m *memStore) CountSubmissions(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs), nil
}

func (m *memStore) get(id string) (models.PendingSubmission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	return sub, ok
}

// fakeProbe is a manually switchable connectivity probe.
type fakeProbe struct {
	mu     sync.Mutex
	online bool
	cbs    map[int]func()
	nextID int
}

func newFakeProbe(online bool) *fakeProbe {
	return &fakeProbe{online: online, cbs: make(map[int]func())}
}

func (p *fakeProbe) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

func (p *fakeProbe) OnBecameOnline(cb func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.cbs[id] = cb
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.cbs, id)
	}
}

func (p *fakeProbe) setOnline(online bool) {
	p.mu.Lock()
	wasOnline := p.online
	p.online = online
	var cbs []func()
	if online && !wasOnline {
		for _, cb := range p.cbs {
			cbs = append(cbs, cb)
		}
	}
	p.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
}

func (p *fakeProbe) callbackCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cbs)
}

// fakeSubmitter records attempt order and returns scripted outcomes.
type fakeSubmitter struct {
	mu    sync.Mutex
	fn    func(sub *models.PendingSubmission) ingest.Result
	calls []string
}

func (f *fakeSubmitter) Attempt(ctx context.Context, sub *models.PendingSubmission) ingest.Result {
	f.mu.Lock()
	f.calls = append(f.calls, sub.ID)
	fn := f.fn
	f.mu.Unlock()

	if fn == nil {
		return ingest.Result{Status: ingest.StatusDelivered, ReportID: fmt.Sprintf("remote-%s", sub.ID)}
	}
	return fn(sub)
}

func (f *fakeSubmitter) callIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// blockingSubmitter parks every attempt until released, signalling when the
// first attempt has started.
type blockingSubmitter struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	inner   fakeSubmitter
}

func newBlockingSubmitter() *blockingSubmitter {
	return &blockingSubmitter{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingSubmitter) Attempt(ctx context.Context, sub *models.PendingSubmission) ingest.Result {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.inner.Attempt(ctx, sub)
}
