// Package workers holds the job handlers of the background worker: image
// thumbnails and welcome emails.
package workers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/filesmanager/internal/blob"
	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/imagex"
	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/queue"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

var (
	errFileNotFound = errors.New("File not found")
	errUserNotFound = errors.New("User not found")
)

// decodePayload reads a job payload. Missing ids are permanent failures:
// redelivery cannot fix them.
func decodePayload(job *queue.Job, needFile bool) (models.JobPayload, error) {
	var p models.JobPayload
	if err := job.Decode(&p); err != nil {
		return p, err
	}
	if needFile && p.FileID == "" {
		return p, queue.Permanent(common.ErrorMissingFileID)
	}
	if p.UserID == "" {
		return p, queue.Permanent(common.ErrorMissingUserID)
	}
	if !validID(p.UserID) || (needFile && !validID(p.FileID)) {
		return p, queue.Permanent(fmt.Errorf("malformed ids in job %s", job.ID))
	}
	return p, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type ThumbnailWorker struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blob.Storage
	widths      []int
	logger      logging.Logger
	resize      func(data []byte, width int) ([]byte, error)
}

func NewThumbnailWorker(db *sql.DB, m repomanager.RepositoryManager, blobs blob.Storage, logger logging.Logger) *ThumbnailWorker {
	return &ThumbnailWorker{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		widths:      common.ThumbnailWidths,
		logger:      logger.With("module", "thumbnails"),
		resize:      imagex.Thumbnail,
	}
}

// Handle derives every thumbnail width of the job's image. The job succeeds
// only when all of them are written; a retry rewrites all of them.
func (w *ThumbnailWorker) Handle(ctx context.Context, job *queue.Job) error {
	p, err := decodePayload(job, true)
	if err != nil {
		return err
	}

	file, err := w.repomanager.Files(w.db).GetByIDAndUser(ctx, p.FileID, p.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return errFileNotFound
		}
		return fmt.Errorf("error loading file: %w", err)
	}
	if file.Type != models.NodeImage {
		return queue.Permanent(fmt.Errorf("file %s is a %s, not an image", file.ID, file.Type))
	}

	src, err := w.blobs.Get(ctx, file.LocalPath)
	if err != nil {
		return fmt.Errorf("error reading original: %w", err)
	}

	errs := make([]error, len(w.widths))
	var wg sync.WaitGroup
	for i, width := range w.widths {
		wg.Add(1)
		go func(i, width int) {
			defer wg.Done()
			errs[i] = w.derive(ctx, src, file.LocalPath, width)
		}(i, width)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}

	w.logger.Info(ctx, "thumbnails generated", "file_id", file.ID, "job_id", job.ID)
	return nil
}

func (w *ThumbnailWorker) derive(ctx context.Context, src []byte, localPath string, width int) error {
	thumb, err := w.resize(src, width)
	if errors.Is(err, imagex.ErrUndecodable) {
		return queue.Permanent(fmt.Errorf("thumbnail %d: %w", width, err))
	}
	if err != nil {
		return fmt.Errorf("thumbnail %d: %w", width, err)
	}
	if err := w.blobs.PutAt(ctx, models.ThumbnailPath(localPath, width), thumb); err != nil {
		return fmt.Errorf("thumbnail %d: %w", width, err)
	}
	return nil
}
