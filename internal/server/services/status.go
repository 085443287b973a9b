package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/cache"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/repomanager"
)

type Status struct {
	Redis bool `json:"redis"`
	DB    bool `json:"db"`
}

type Stats struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}

// StatusService reports backend liveness and collection sizes.
type StatusService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       cache.Store
}

func NewStatusService(db *sql.DB, m repomanager.RepositoryManager, store cache.Store) *StatusService {
	return &StatusService{db: db, repomanager: m, cache: store}
}

const pingTimeout = 2 * time.Second

func (s *StatusService) Status(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	return Status{
		Redis: s.cache.Ping(ctx) == nil,
		DB:    s.db.PingContext(ctx) == nil,
	}
}

func (s *StatusService) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.repomanager.Users(s.db).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting users: %w", err)
	}
	files, err := s.repomanager.Files(s.db).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting files: %w", err)
	}
	return &Stats{Users: users, Files: files}, nil
}
