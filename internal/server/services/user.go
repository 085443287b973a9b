package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/queue"
	"github.com/dmitrijs2005/filesmanager/internal/server/auth"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/repomanager"
)

// UserService registers accounts and schedules their welcome email.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	emails      queue.Enqueuer
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, emails queue.Enqueuer, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		emails:      emails,
		logger:      logger.With("module", "users"),
	}
}

// Register creates the user and enqueues the welcome email. A duplicate
// email yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, common.NewValidationError("Missing email")
	}
	if password == "" {
		return nil, common.NewValidationError("Missing password")
	}

	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, common.ErrorAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	if _, err := s.emails.Enqueue(ctx, models.JobPayload{UserID: user.ID}); err != nil {
		s.logger.Error(ctx, "welcome email not enqueued", "user_id", user.ID, "error", err)
	}
	return user, nil
}
