package files

import (
	"context"

	"github.com/dmitrijs2005/filesmanager/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetByID(ctx context.Context, id string) (*models.File, error)
	GetByIDAndUser(ctx context.Context, id, userID string) (*models.File, error)
	SetPublic(ctx context.Context, id, userID string, isPublic bool) (*models.File, error)
	ListByParent(ctx context.Context, userID, parentID string, limit, offset int) ([]*models.File, error)
	Count(ctx context.Context) (int64, error)
}
