package workers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/mail"
	"github.com/dmitrijs2005/filesmanager/internal/queue"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/repomanager"
)

// NotificationWorker sends the welcome email of newly registered users.
type NotificationWorker struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mailer      mail.Mailer
	from        string
	logger      logging.Logger
}

func NewNotificationWorker(db *sql.DB, m repomanager.RepositoryManager, mailer mail.Mailer, from string, logger logging.Logger) *NotificationWorker {
	return &NotificationWorker{
		db:          db,
		repomanager: m,
		mailer:      mailer,
		from:        from,
		logger:      logger.With("module", "notifications"),
	}
}

func (w *NotificationWorker) Handle(ctx context.Context, job *queue.Job) error {
	p, err := decodePayload(job, false)
	if err != nil {
		return err
	}

	user, err := w.repomanager.Users(w.db).GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return errUserNotFound
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	if err := w.mailer.Send(ctx, mail.Welcome(w.from, user.Email)); err != nil {
		return fmt.Errorf("error sending welcome email: %w", err)
	}

	w.logger.Info(ctx, "welcome email sent", "user_id", user.ID, "job_id", job.ID)
	return nil
}
