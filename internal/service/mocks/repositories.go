package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SergeiKhy/linkpay/internal/models"
	"github.com/SergeiKhy/linkpay/internal/repository"
)

// MockStore shared in-memory state behind the repository mocks.
// A single mutex makes every operation atomic, mirroring the transactional
// guarantees of the real Postgres layer.
type MockStore struct {
	mu sync.Mutex

	links      map[string]*models.Link
	linksByID  map[int64]*models.Link
	nextLinkID int64

	uniquePairs map[string]bool
	clicks      map[string]*models.ClickEvent

	linkStats  map[int64]*models.LinkStats
	publishers map[int64]*models.PublisherLedger
	platform   models.PlatformLedger

	// FailPosts makes the next N PostRevenue calls fail with a transient error
	FailPosts int
}

func NewMockStore() *MockStore {
	return &MockStore{
		links:       make(map[string]*models.Link),
		linksByID:   make(map[int64]*models.Link),
		nextLinkID:  1,
		uniquePairs: make(map[string]bool),
		clicks:      make(map[string]*models.ClickEvent),
		linkStats:   make(map[int64]*models.LinkStats),
		publishers:  make(map[int64]*models.PublisherLedger),
	}
}

func pairKey(linkID int64, ip string) string {
	return fmt.Sprintf("%d|%s", linkID, ip)
}

// MockLinkRepository implements repository.LinkRepository for testing
type MockLinkRepository struct {
	store *MockStore
}

func NewMockLinkRepository(store *MockStore) *MockLinkRepository {
	return &MockLinkRepository{store: store}
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if _, exists := m.store.links[link.ShortCode]; exists {
		return repository.ErrCodeExists
	}

	link.ID = m.store.nextLinkID
	m.store.nextLinkID++
	m.store.links[link.ShortCode] = link
	m.store.linksByID[link.ID] = link
	m.store.linkStats[link.ID] = &models.LinkStats{
		LinkID:    link.ID,
		ShortCode: link.ShortCode,
	}
	return nil
}

func (m *MockLinkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	link, exists := m.store.links[code]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	return link, nil
}

func (m *MockLinkRepository) GetByID(ctx context.Context, id int64) (*models.Link, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	link, exists := m.store.linksByID[id]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	return link, nil
}

func (m *MockLinkRepository) Delete(ctx context.Context, code string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	link, exists := m.store.links[code]
	if !exists {
		return repository.ErrLinkNotFound
	}
	delete(m.store.links, code)
	delete(m.store.linksByID, link.ID)
	return nil
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu    sync.RWMutex
	cache map[string]*models.Link
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]*models.Link),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.cache[key]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	return link, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, link *models.Link, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = link
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

// MockClickRepository implements repository.ClickRepository for testing.
// CreateClick resolves uniqueness and bumps traffic counters under the
// store mutex, the same atomicity the real transactional insert provides.
type MockClickRepository struct {
	store *MockStore
}

func NewMockClickRepository(store *MockStore) *MockClickRepository {
	return &MockClickRepository{store: store}
}

func (m *MockClickRepository) CreateClick(ctx context.Context, click *models.ClickEvent) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	stats, exists := m.store.linkStats[click.LinkID]
	if !exists {
		return repository.ErrLinkNotFound
	}

	key := pairKey(click.LinkID, click.IPAddress)
	click.IsUnique = !m.store.uniquePairs[key]
	m.store.uniquePairs[key] = true

	stored := *click
	m.store.clicks[click.ID] = &stored

	stats.Clicks++
	if click.IsUnique {
		stats.UniqueVisitors++
	}
	now := click.ClickedAt
	stats.LastClickedAt = &now

	pub := m.publisherLocked(click.PublisherID)
	pub.LifetimeClicks++
	if click.IsUnique {
		pub.LifetimeUniqueVisitors++
	}

	return nil
}

func (m *MockClickRepository) GetByID(ctx context.Context, id string) (*models.ClickEvent, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	click, exists := m.store.clicks[id]
	if !exists {
		return nil, repository.ErrClickNotFound
	}
	stored := *click
	return &stored, nil
}

func (m *MockClickRepository) UpdateSessionCounters(ctx context.Context, id string, in *models.SessionUpdateInput) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	click, exists := m.store.clicks[id]
	if !exists {
		return repository.ErrClickNotFound
	}
	click.SessionDuration = in.SessionDuration
	click.PagesViewed = in.PagesViewed
	click.Ad.Impressions = in.AdImpressions
	click.Ad.Clicks = in.AdClicks
	return nil
}

func (m *MockClickRepository) publisherLocked(publisherID int64) *models.PublisherLedger {
	pub, exists := m.store.publishers[publisherID]
	if !exists {
		pub = &models.PublisherLedger{PublisherID: publisherID}
		m.store.publishers[publisherID] = pub
	}
	return pub
}

// MockLedgerRepository implements repository.LedgerRepository for testing
type MockLedgerRepository struct {
	store *MockStore
}

func NewMockLedgerRepository(store *MockStore) *MockLedgerRepository {
	return &MockLedgerRepository{store: store}
}

func (m *MockLedgerRepository) PostRevenue(ctx context.Context, post *repository.RevenuePost) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if m.store.FailPosts > 0 {
		m.store.FailPosts--
		return fmt.Errorf("transient store failure")
	}

	if post.Delta < 0 {
		return repository.ErrNegativeDelta
	}

	click, exists := m.store.clicks[post.ClickID]
	if !exists {
		return repository.ErrClickNotFound
	}
	if click.Earned != post.ExpectedEarned {
		return repository.ErrStaleEarned
	}

	stats, exists := m.store.linkStats[post.LinkID]
	if !exists {
		return repository.ErrLinkNotFound
	}

	click.Earned += post.Delta
	stats.Earnings += post.Delta

	pub, exists := m.store.publishers[post.PublisherID]
	if !exists {
		pub = &models.PublisherLedger{PublisherID: post.PublisherID}
		m.store.publishers[post.PublisherID] = pub
	}
	pub.TotalEarnings += post.PublisherShare
	pub.PendingBalance += post.PublisherShare

	m.store.platform.TotalRevenue += post.Delta
	m.store.platform.PlatformShare += post.PlatformShare
	m.store.platform.PublisherPayouts += post.PublisherShare

	return nil
}

func (m *MockLedgerRepository) GetLinkStats(ctx context.Context, shortCode string) (*models.LinkStats, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	link, exists := m.store.links[shortCode]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	stats := *m.store.linkStats[link.ID]
	return &stats, nil
}

func (m *MockLedgerRepository) GetPublisherLedger(ctx context.Context, publisherID int64) (*models.PublisherLedger, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	pub, exists := m.store.publishers[publisherID]
	if !exists {
		return &models.PublisherLedger{PublisherID: publisherID}, nil
	}
	ledger := *pub
	return &ledger, nil
}

func (m *MockLedgerRepository) GetPlatformLedger(ctx context.Context) (*models.PlatformLedger, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	ledger := m.store.platform
	return &ledger, nil
}

// MockSessionLocker implements repository.SessionLocker for testing
type MockSessionLocker struct {
	mu    sync.Mutex
	locks map[string]bool
}

func NewMockSessionLocker() *MockSessionLocker {
	return &MockSessionLocker{locks: make(map[string]bool)}
}

func (m *MockSessionLocker) Acquire(ctx context.Context, clickID string, ttl time.Duration) (func(), bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locks[clickID] {
		return nil, false, nil
	}
	m.locks[clickID] = true

	release := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.locks, clickID)
	}
	return release, true, nil
}
