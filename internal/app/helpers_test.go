package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"story-endings/internal/config"
	"story-endings/internal/logging"
	"story-endings/internal/model"
	"story-endings/internal/platform/database"
	"story-endings/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.New(context.Background(), config.DriverSQLite, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, repository.NewTaxonomyRepository(db).Seed(
		context.Background(),
		[]string{"Drama", "Horror"},
		[]string{"Twist", "Happy"},
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestAuthService(db *gorm.DB) *AuthService {
	return NewAuthService(repository.NewUserRepository(db), bcrypt.MinCost)
}

type fakeHighlightCache struct {
	mu          sync.Mutex
	stored      *model.Highlights
	generation  int64
	invalidated int
	getErr      error
	// beforeSet runs at the start of Set, outside the lock.
	beforeSet func()
}

func (f *fakeHighlightCache) Get(context.Context) (*model.Highlights, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	if f.stored == nil {
		return nil, false, nil
	}
	copied := *f.stored
	return &copied, true, nil
}

func (f *fakeHighlightCache) Generation(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation, nil
}

func (f *fakeHighlightCache) Set(_ context.Context, generation int64, highlights model.Highlights) error {
	if f.beforeSet != nil {
		f.beforeSet()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if generation != f.generation {
		return nil
	}
	f.stored = &highlights
	return nil
}

func (f *fakeHighlightCache) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = nil
	f.generation++
	f.invalidated++
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []model.EndingEvent
	err    error
}

func (r *recordingSink) Publish(_ context.Context, event model.EndingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingSink) Broadcast(event model.EndingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

type fakeRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{revoked: make(map[string]time.Duration)}
}

func (f *fakeRevocations) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[tokenID] = ttl
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.revoked[tokenID]
	return ok, nil
}

var errBrokerDown = errors.New("broker down")

var discardLogger logging.Logger = logging.Discard()
