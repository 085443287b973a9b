package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/filesmanager/internal/blob"
	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/dbx"
	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/queue"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/files"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// DefaultPageSize is the number of nodes per listing page.
const DefaultPageSize = 20

type CreateFileInput struct {
	Name     string
	Type     string
	ParentID string
	IsPublic bool
	// Data is the base64 encoded content; required for files and images.
	Data string
}

// FileService manages file and folder metadata and their content.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blob.Storage
	thumbnails  queue.Enqueuer
	logger      logging.Logger
	pageSize    int
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, blobs blob.Storage, thumbnails queue.Enqueuer, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		thumbnails:  thumbnails,
		logger:      logger.With("module", "files"),
		pageSize:    DefaultPageSize,
	}
}

// validID reports whether id can name a stored node. Anything else cannot
// exist and is reported as not found by the callers.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isRootID(id string) bool {
	return id == "" || id == common.RootParentID
}

// Create validates in and persists a new node owned by user. For images a
// thumbnail job is enqueued once the node is committed.
func (s *FileService) Create(ctx context.Context, user *models.User, in CreateFileInput) (*models.File, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, common.NewValidationError("Missing name")
	}
	nodeType, err := models.ParseNodeType(in.Type)
	if err != nil {
		return nil, common.NewValidationError("Missing type")
	}

	var content []byte
	if nodeType.HasContent() {
		if in.Data == "" {
			return nil, common.NewValidationError("Missing data")
		}
		content, err = base64.StdEncoding.DecodeString(in.Data)
		if err != nil {
			return nil, common.NewValidationError("Invalid data")
		}
	}

	file := &models.File{
		UserID:   user.ID,
		Name:     in.Name,
		Type:     nodeType,
		ParentID: common.RootParentID,
		IsPublic: in.IsPublic,
	}
	if !isRootID(in.ParentID) {
		file.ParentID = in.ParentID
	}

	created, err := dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.File, error) {
		repo := s.repomanager.Files(tx)

		if !file.IsRoot() {
			if err := s.checkParent(ctx, repo, file.ParentID, user.ID); err != nil {
				return nil, err
			}
		}

		if content != nil {
			path, err := s.blobs.Put(ctx, content)
			if err != nil {
				return nil, fmt.Errorf("error storing content: %w", err)
			}
			file.LocalPath = path
		}

		if err := file.Validate(); err != nil {
			return nil, fmt.Errorf("invalid node: %w", err)
		}

		f, err := repo.Create(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("error creating file: %w", err)
		}
		return f, nil
	})
	if err != nil {
		s.discardContent(ctx, file.LocalPath)
		return nil, err
	}

	if created.Type == models.NodeImage {
		payload := models.JobPayload{UserID: created.UserID, FileID: created.ID}
		if _, err := s.thumbnails.Enqueue(ctx, payload); err != nil {
			s.logger.Error(ctx, "thumbnail job not enqueued", "file_id", created.ID, "error", err)
		}
	}
	return created, nil
}

// discardContent removes content stored for a node that was not committed.
func (s *FileService) discardContent(ctx context.Context, locator string) {
	if locator == "" {
		return
	}
	if err := s.blobs.Delete(context.WithoutCancel(ctx), locator); err != nil {
		s.logger.Error(ctx, "orphan content not removed", "locator", locator, "error", err)
	}
}

func (s *FileService) checkParent(ctx context.Context, repo files.Repository, parentID, userID string) error {
	if !validID(parentID) {
		return common.NewValidationError("Parent not found")
	}
	parent, err := repo.GetByIDAndUser(ctx, parentID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewValidationError("Parent not found")
		}
		return fmt.Errorf("error loading parent: %w", err)
	}
	if parent.Type != models.NodeFolder {
		return common.NewValidationError("Parent is not a folder")
	}
	return nil
}

// Get returns the node id owned by user.
func (s *FileService) Get(ctx context.Context, user *models.User, id string) (*models.File, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Files(s.db).GetByIDAndUser(ctx, id, user.ID)
}

// List returns page (from 0) of user's nodes directly under parentID.
func (s *FileService) List(ctx context.Context, user *models.User, parentID string, page int) ([]*models.File, error) {
	if page < 0 {
		page = 0
	}
	if isRootID(parentID) {
		parentID = common.RootParentID
	} else if !validID(parentID) {
		return []*models.File{}, nil
	}
	// the offset of later pages overflows; they cannot hold rows
	if page > math.MaxInt/s.pageSize {
		return []*models.File{}, nil
	}

	nodes, err := s.repomanager.Files(s.db).ListByParent(ctx, user.ID, parentID, s.pageSize, page*s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("error listing files: %w", err)
	}
	return nodes, nil
}

// SetPublic publishes (true) or unpublishes (false) a node owned by user.
func (s *FileService) SetPublic(ctx context.Context, user *models.User, id string, isPublic bool) (*models.File, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Files(s.db).SetPublic(ctx, id, user.ID, isPublic)
}

// ReadContent returns the stored bytes of a file or image, or of one of its
// thumbnails when size is set. requester is nil for anonymous reads; private
// nodes are only readable by their owner.
func (s *FileService) ReadContent(ctx context.Context, requester *models.User, id, size string) ([]byte, *models.File, error) {
	if !validID(id) {
		return nil, nil, common.ErrorNotFound
	}

	file, err := s.repomanager.Files(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !file.Type.HasContent() {
		return nil, nil, common.ErrorNotFound
	}
	if !file.IsPublic && (requester == nil || requester.ID != file.UserID) {
		return nil, nil, common.ErrorForbidden
	}

	locator := file.LocalPath
	if size != "" {
		width, err := strconv.Atoi(size)
		if err != nil || !slices.Contains(common.ThumbnailWidths, width) {
			return nil, nil, common.ErrorNotFound
		}
		locator = models.ThumbnailPath(file.LocalPath, width)
	}

	data, err := s.blobs.Get(ctx, locator)
	if err != nil {
		return nil, nil, err
	}
	return data, file, nil
}
