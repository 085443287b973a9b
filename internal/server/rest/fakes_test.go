package rest

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/services"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

type fakeBackend struct {
	mu       sync.Mutex
	users    map[string]*models.User // by email
	password map[string]string       // by email
	tokens   map[string]*models.User
	files    map[string]*models.File
	content  map[string][]byte
	seq      int
	lastList struct {
		parentID string
		page     int
	}
	status   services.Status
	statsErr error
	filesErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		users:    map[string]*models.User{},
		password: map[string]string{},
		tokens:   map[string]*models.User{},
		files:    map[string]*models.File{},
		content:  map[string][]byte{},
		status:   services.Status{Redis: true, DB: true},
	}
}

func fakeID(n int) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}

func (b *fakeBackend) nextID() string {
	b.seq++
	return fakeID(b.seq)
}

func (b *fakeBackend) Register(ctx context.Context, email, password string) (*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case email == "":
		return nil, common.NewValidationError("Missing email")
	case password == "":
		return nil, common.NewValidationError("Missing password")
	}
	if _, ok := b.users[email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u := &models.User{ID: b.nextID(), Email: email}
	b.users[email] = u
	b.password[email] = password
	return u, nil
}

func (b *fakeBackend) Connect(ctx context.Context, header string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := strings.CutPrefix(header, "Basic ")
	if !ok {
		return "", common.ErrorUnauthorized
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", common.ErrorUnauthorized
	}
	email, password, _ := strings.Cut(string(decoded), ":")
	u, ok := b.users[email]
	if !ok || b.password[email] != password {
		return "", common.ErrorUnauthorized
	}
	token := "token-" + u.ID
	b.tokens[token] = u
	return token, nil
}

func (b *fakeBackend) ResolveToken(ctx context.Context, token string) (*services.Principal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if token == "explode" {
		return nil, errBoom{}
	}
	u, ok := b.tokens[token]
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return &services.Principal{User: u, Token: token}, nil
}

func (b *fakeBackend) DestroySession(ctx context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokens, token)
	return nil
}

func (b *fakeBackend) Create(ctx context.Context, user *models.User, in services.CreateFileInput) (*models.File, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.filesErr != nil {
		return nil, b.filesErr
	}
	if in.Name == "" {
		return nil, common.NewValidationError("Missing name")
	}
	t, err := models.ParseNodeType(in.Type)
	if err != nil {
		return nil, common.NewValidationError("Missing type")
	}
	parent := in.ParentID
	if parent == "" {
		parent = common.RootParentID
	}
	f := &models.File{ID: b.nextID(), UserID: user.ID, Name: in.Name, Type: t, ParentID: parent, IsPublic: in.IsPublic}
	if t.HasContent() {
		data, err := base64.StdEncoding.DecodeString(in.Data)
		if err != nil || in.Data == "" {
			return nil, common.NewValidationError("Missing data")
		}
		f.LocalPath = "/blob/" + f.ID
		b.content[f.ID] = data
	}
	b.files[f.ID] = f
	return f, nil
}

func (b *fakeBackend) owned(user *models.User, id string) (*models.File, error) {
	f, ok := b.files[id]
	if !ok || f.UserID != user.ID {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

func (b *fakeBackend) Get(ctx context.Context, user *models.User, id string) (*models.File, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.owned(user, id)
}

func (b *fakeBackend) List(ctx context.Context, user *models.User, parentID string, page int) ([]*models.File, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.filesErr != nil {
		return nil, b.filesErr
	}
	b.lastList.parentID = parentID
	b.lastList.page = page
	if parentID == "" {
		parentID = common.RootParentID
	}
	var out []*models.File
	for i := 1; i <= b.seq; i++ {
		if f, ok := b.files[fakeID(i)]; ok && f.UserID == user.ID && f.ParentID == parentID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (b *fakeBackend) SetPublic(ctx context.Context, user *models.User, id string, isPublic bool) (*models.File, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, err := b.owned(user, id)
	if err != nil {
		return nil, err
	}
	f.IsPublic = isPublic
	return f, nil
}

func (b *fakeBackend) ReadContent(ctx context.Context, requester *models.User, id, size string) ([]byte, *models.File, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.files[id]
	if !ok || !f.Type.HasContent() {
		return nil, nil, common.ErrorNotFound
	}
	if !f.IsPublic && (requester == nil || requester.ID != f.UserID) {
		return nil, nil, common.ErrorForbidden
	}
	if size != "" {
		return nil, nil, common.ErrorNotFound
	}
	return b.content[id], f, nil
}

func (b *fakeBackend) Status(ctx context.Context) services.Status {
	return b.status
}

func (b *fakeBackend) Stats(ctx context.Context) (*services.Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.statsErr != nil {
		return nil, b.statsErr
	}
	return &services.Stats{Users: int64(len(b.users)), Files: int64(len(b.files))}, nil
}
