package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/dbx"
	"github.com/dmitrijs2005/filesmanager/internal/queue"
	"github.com/dmitrijs2005/filesmanager/internal/server/auth"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/files"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/users"
	"github.com/google/uuid"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// --- users ---

type fakeUsersRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	err     error
	created int
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) add(email, password string) *models.User {
	hash, err := auth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	u := &models.User{ID: uuid.NewString(), Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	f.mu.Lock()
	f.byID[u.ID] = u
	f.mu.Unlock()
	return u
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	f.byID[u.ID] = u
	f.created++
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) Count(ctx context.Context) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byID)), nil
}

// --- files ---

type fakeFilesRepo struct {
	mu        sync.Mutex
	byID      map[string]*models.File
	order     []string
	err       error
	createErr error
}

func newFakeFilesRepo() *fakeFilesRepo {
	return &fakeFilesRepo{byID: map[string]*models.File{}}
}

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) (*models.File, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	file.ID = uuid.NewString()
	file.CreatedAt = time.Now()
	if file.ParentID == "" {
		file.ParentID = common.RootParentID
	}
	cp := *file
	f.byID[file.ID] = &cp
	f.order = append(f.order, file.ID)
	return file, nil
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, id string) (*models.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if file, ok := f.byID[id]; ok {
		cp := *file
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFilesRepo) GetByIDAndUser(ctx context.Context, id, userID string) (*models.File, error) {
	file, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if file.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return file, nil
}

func (f *fakeFilesRepo) SetPublic(ctx context.Context, id, userID string, isPublic bool) (*models.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.byID[id]
	if !ok || file.UserID != userID {
		return nil, common.ErrorNotFound
	}
	file.IsPublic = isPublic
	cp := *file
	return &cp, nil
}

func (f *fakeFilesRepo) ListByParent(ctx context.Context, userID, parentID string, limit, offset int) ([]*models.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*models.File
	for _, id := range f.order {
		file := f.byID[id]
		if file.UserID == userID && file.ParentID == parentID {
			cp := *file
			matched = append(matched, &cp)
		}
	}
	if offset >= len(matched) {
		return []*models.File{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (f *fakeFilesRepo) Count(ctx context.Context) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byID)), nil
}

// --- repo manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	f *fakeFilesRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), f: newFakeFilesRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository          { return m.u }
func (m *fakeRepoManager) Files(db dbx.DBTX) files.Repository          { return m.f }

// --- cache ---

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return "", common.ErrorNotFound
	}
	return v, nil
}

func (c *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) Ping(ctx context.Context) error { return c.err }

// --- queue ---

type fakeEnqueuer struct {
	mu       sync.Mutex
	payloads []models.JobPayload
	err      error
}

func (e *fakeEnqueuer) Enqueue(ctx context.Context, payload any) (*queue.Job, error) {
	if e.err != nil {
		return nil, e.err
	}
	p, ok := payload.(models.JobPayload)
	if !ok {
		return nil, errors.New("unexpected payload type")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.payloads = append(e.payloads, p)
	return &queue.Job{ID: uuid.NewString()}, nil
}

func (e *fakeEnqueuer) all() []models.JobPayload {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.JobPayload(nil), e.payloads...)
}
