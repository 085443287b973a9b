// Package services contains server-side business logic. This file implements
// SessionService, which checks Basic credentials and manages the opaque
// session tokens kept in the cache.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/cache"
	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/server/auth"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	User  *models.User
	Token string
}

type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       cache.Store
	ttl         time.Duration
	logger      logging.Logger
	newToken    func() string
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, store cache.Store, ttl time.Duration, logger logging.Logger) *SessionService {
	if ttl <= 0 {
		ttl = common.DefaultSessionTTL
	}
	return &SessionService{
		db:          db,
		repomanager: m,
		cache:       store,
		ttl:         ttl,
		logger:      logger.With("module", "sessions"),
		newToken:    uuid.NewString,
	}
}

func sessionKey(token string) string {
	return common.SessionKeyPrefix + token
}

// AuthenticateBasic checks an Authorization header value. Every credential
// failure yields common.ErrorUnauthorized.
func (s *SessionService) AuthenticateBasic(ctx context.Context, header string) (*models.User, error) {
	email, password, err := auth.ParseBasic(header)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.BurnCompare(password)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}

// CreateSession stores a fresh token for user. The token resolves as soon
// as CreateSession returns.
func (s *SessionService) CreateSession(ctx context.Context, user *models.User) (string, error) {
	token := s.newToken()
	if err := s.cache.Set(ctx, sessionKey(token), user.ID, s.ttl); err != nil {
		return "", fmt.Errorf("error storing session: %w", err)
	}
	s.logger.Debug(ctx, "session created", "user_id", user.ID)
	return token, nil
}

// Connect authenticates Basic credentials and opens a session.
func (s *SessionService) Connect(ctx context.Context, header string) (string, error) {
	user, err := s.AuthenticateBasic(ctx, header)
	if err != nil {
		return "", err
	}
	return s.CreateSession(ctx, user)
}

// ResolveToken returns the principal owning token. Unknown tokens and tokens
// of users that no longer exist yield common.ErrorUnauthorized.
func (s *SessionService) ResolveToken(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, common.ErrorUnauthorized
	}

	userID, err := s.cache.Get(ctx, sessionKey(token))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error reading session: %w", err)
	}

	if _, err := uuid.Parse(userID); err != nil {
		s.logger.Warn(ctx, "session holds malformed user id")
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return &Principal{User: user, Token: token}, nil
}

// DestroySession deletes token. It is idempotent.
func (s *SessionService) DestroySession(ctx context.Context, token string) error {
	if err := s.cache.Del(ctx, sessionKey(token)); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}
