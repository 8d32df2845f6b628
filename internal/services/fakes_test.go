package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"shopup-backend/internal/models"
	"shopup-backend/internal/repositories"
	"shopup-backend/pkg/auth"
	"shopup-backend/pkg/kvstore"
)

type fakeProductRepo struct {
	products map[string]models.Product
	err      error
	calls    int
}

func newFakeProductRepo(products ...models.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: make(map[string]models.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.products[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (r *fakeProductRepo) GetByIDs(_ context.Context, ids []string) ([]models.Product, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) ListActive(_ context.Context, _ models.ProductFilter) ([]models.Product, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Product
	for _, p := range r.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

type publishedEvent struct {
	topic string
	key   string
	value interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, key: key, value: value})
	return p.err
}

func (p *recordingPublisher) Events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

// brokenStore reads from an embedded Memory store but refuses writes.
type brokenStore struct {
	*kvstore.Memory
	readErr error
}

var errStoreDown = errors.New("store unavailable")

func (b *brokenStore) Get(ctx context.Context, key string) ([]byte, error) {
	if b.readErr != nil {
		return nil, b.readErr
	}
	return b.Memory.Get(ctx, key)
}

func (b *brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errStoreDown
}

func (b *brokenStore) Delete(context.Context, string) error {
	return errStoreDown
}

func (b *brokenStore) Update(context.Context, string, time.Duration, kvstore.UpdateFunc) error {
	return errStoreDown
}

type fakeSessions struct {
	sessions  map[string]*models.Session
	err       error
	signedOut []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]*models.Session)}
}

func (f *fakeSessions) add(token, userID string) *fakeSessions {
	f.sessions[token] = &models.Session{AccessToken: token, User: models.SessionUser{ID: userID, Email: userID + "@example.com"}}
	return f
}

func (f *fakeSessions) GetSession(_ context.Context, token string) (*models.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[token]
	if !ok {
		return nil, auth.ErrNoSession
	}
	return s, nil
}

func (f *fakeSessions) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	delete(f.sessions, token)
	return nil
}
