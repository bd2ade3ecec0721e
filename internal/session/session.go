// Package session holds the per-visitor state that the storefront operations
// act on. A session's operations are serialized through the event loop, so
// the state inside a Session is only ever touched by one goroutine at a time.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rafian-git/storefront-state/internal/cart"
	"github.com/rafian-git/storefront-state/internal/catalog"
	"github.com/rafian-git/storefront-state/internal/favorites"
	"github.com/rafian-git/storefront-state/internal/models"
	"github.com/rafian-git/storefront-state/internal/money"
	"github.com/rafian-git/storefront-state/internal/queue"
	"github.com/rafian-git/storefront-state/internal/selected"
	"github.com/rafian-git/storefront-state/internal/store"
	"github.com/rafian-git/storefront-state/internal/summary"
)

var (
	ErrUnknownSession = errors.New("unknown session")
	// ErrCatalogUnavailable is returned by Catalog when the listing could not
	// be loaded at startup.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

type Session struct {
	ID        string
	Cart      *cart.Cart
	Favorites *favorites.Favorites
	Selected  *selected.Selected
	Summary   *summary.View

	engine     *catalog.Engine
	catalogErr error
}

// Catalog returns the session's filter/sort engine.
func (s *Session) Catalog() (*catalog.Engine, error) {
	if s.engine == nil {
		return nil, s.catalogErr
	}
	return s.engine, nil
}

func CartKey(id string) string      { return "session/" + id + "/cart" }
func FavoritesKey(id string) string { return "session/" + id + "/favorites" }
func SelectedKey(id string) string  { return "session/" + id + "/selected" }

// DefaultIdleTTL is how long a session stays live without a request.
const DefaultIdleTTL = 30 * time.Minute

// Manager creates sessions and runs their operations on the event loop.
// Sessions idle for longer than the idle TTL are evicted; their durable
// collections stay in the store and a later request reattaches them.
type Manager struct {
	backend    store.Backend
	q          *queue.Queue
	items      []models.CatalogItem
	catalogErr error
	fee        int64
	format     money.Formatter
	idleTTL    time.Duration
	now        func() time.Time
	log        *zap.Logger

	mu        sync.Mutex
	sessions  map[string]*Session
	lastSeen  map[string]time.Time
	lastSweep time.Time
}

type Option func(*Manager)

// WithCatalog sets the snapshot every session's engine starts from.
func WithCatalog(items []models.CatalogItem) Option {
	return func(m *Manager) { m.items = items; m.catalogErr = nil }
}

// WithCatalogError marks the listing as unavailable for every session.
func WithCatalogError(err error) Option {
	return func(m *Manager) { m.items = nil; m.catalogErr = err }
}

func WithShippingFee(fee int64) Option {
	return func(m *Manager) { m.fee = fee }
}

func WithFormatter(f money.Formatter) Option {
	return func(m *Manager) { m.format = f }
}

// WithIdleTTL sets how long an unused session is kept live.
func WithIdleTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.idleTTL = d
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

func NewManager(backend store.Backend, q *queue.Queue, opts ...Option) *Manager {
	m := &Manager{
		backend:    backend,
		q:          q,
		catalogErr: ErrCatalogUnavailable,
		fee:        summary.DefaultShippingFee,
		format:     money.Default(),
		idleTTL:    DefaultIdleTTL,
		now:        time.Now,
		log:        zap.NewNop(),
		sessions:   map[string]*Session{},
		lastSeen:   map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastSweep = m.now()
	return m
}

// Create issues a new session id.
func (m *Manager) Create() *Session {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	s := m.build(id)
	m.sessions[id] = s
	m.lastSeen[id] = m.now()
	m.log.Info("session created", zap.String("session_id", id))
	return s
}

// Attach returns the live session for id. A well-formed id that is not live
// in this process is reattached to its durable collections, so carts survive
// restarts.
func (m *Manager) Attach(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.Wrapf(ErrUnknownSession, "%q", id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	m.lastSeen[id] = m.now()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	s := m.build(id)
	m.sessions[id] = s
	m.log.Debug("session reattached", zap.String("session_id", id))
	return s, nil
}

// Forget drops the live state for id. Durable collections are kept.
func (m *Manager) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forgetLocked(id)
}

// Sweep evicts every session idle for longer than the idle TTL and returns
// how many were dropped.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictLocked(m.now())
}

// sweepLocked evicts idle sessions at most once per idle TTL.
func (m *Manager) sweepLocked() {
	now := m.now()
	if now.Sub(m.lastSweep) <= m.idleTTL {
		return
	}
	m.evictLocked(now)
}

func (m *Manager) evictLocked(now time.Time) int {
	m.lastSweep = now
	n := 0
	for id, seen := range m.lastSeen {
		if now.Sub(seen) > m.idleTTL {
			m.forgetLocked(id)
			n++
		}
	}
	if n > 0 {
		m.log.Info("idle sessions evicted", zap.Int("count", n), zap.Int("live", len(m.sessions)))
	}
	return n
}

func (m *Manager) forgetLocked(id string) {
	if s, ok := m.sessions[id]; ok {
		s.Summary.Deactivate()
		delete(m.sessions, id)
	}
	delete(m.lastSeen, id)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Do runs fn on the session's event loop and waits for it.
func (m *Manager) Do(ctx context.Context, id string, fn func(ctx context.Context, s *Session)) error {
	s, err := m.Attach(id)
	if err != nil {
		return err
	}
	return m.q.Submit(ctx, id, func() { fn(ctx, s) })
}

func (m *Manager) build(id string) *Session {
	log := m.log.With(zap.String("session_id", id))
	s := &Session{
		ID:         id,
		Cart:       cart.New(store.NewCollection[models.CartEntry](m.backend, CartKey(id), log), log),
		Favorites:  favorites.New(store.NewCollection[models.FavoriteEntry](m.backend, FavoritesKey(id), log), log),
		Selected:   selected.New(store.NewRecord[models.ProductRef](m.backend, SelectedKey(id), log), log),
		Summary:    summary.NewView(m.fee, m.format),
		catalogErr: m.catalogErr,
	}
	if m.catalogErr == nil {
		s.engine = catalog.NewEngine(m.items, catalog.WithLogger(log))
	}
	return s
}
