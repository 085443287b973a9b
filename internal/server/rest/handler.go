// Package rest exposes the files manager over HTTP with a chi router.
package rest

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/services"
)

// SessionManager authenticates callers and manages their tokens.
type SessionManager interface {
	Connect(ctx context.Context, header string) (string, error)
	ResolveToken(ctx context.Context, token string) (*services.Principal, error)
	DestroySession(ctx context.Context, token string) error
}

type UserRegistrar interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
}

// FileManager is the file operations the API serves.
type FileManager interface {
	Create(ctx context.Context, user *models.User, in services.CreateFileInput) (*models.File, error)
	Get(ctx context.Context, user *models.User, id string) (*models.File, error)
	List(ctx context.Context, user *models.User, parentID string, page int) ([]*models.File, error)
	SetPublic(ctx context.Context, user *models.User, id string, isPublic bool) (*models.File, error)
	ReadContent(ctx context.Context, requester *models.User, id, size string) ([]byte, *models.File, error)
}

type StatusReporter interface {
	Status(ctx context.Context) services.Status
	Stats(ctx context.Context) (*services.Stats, error)
}

// Handler holds the HTTP handlers and their collaborators.
type Handler struct {
	sessions SessionManager
	users    UserRegistrar
	files    FileManager
	status   StatusReporter
	logger   logging.Logger
}

func NewHandler(sessions SessionManager, users UserRegistrar, files FileManager, status StatusReporter, logger logging.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		users:    users,
		files:    files,
		status:   status,
		logger:   logger.With("module", "rest"),
	}
}

// authedHandlerFunc is a handler that runs only for a resolved principal.
type authedHandlerFunc func(w http.ResponseWriter, r *http.Request, p *services.Principal)
