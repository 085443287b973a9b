// Package server wires the files manager together: PostgreSQL, Redis, blob
// storage, job queues, the HTTP API, the gRPC health endpoint and the job
// workers. It also handles graceful shutdown on SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/filesmanager/internal/blob"
	"github.com/dmitrijs2005/filesmanager/internal/cache"
	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/mail"
	"github.com/dmitrijs2005/filesmanager/internal/queue"
	"github.com/dmitrijs2005/filesmanager/internal/server/config"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filesmanager/internal/server/rest"
	"github.com/dmitrijs2005/filesmanager/internal/server/services"
	"github.com/dmitrijs2005/filesmanager/internal/server/workers"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/filesmanager/internal/server/grpc"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config *config.Config
	logger logging.Logger

	db    *sql.DB
	redis *redis.Client

	sessions *services.SessionService
	users    *services.UserService
	files    *services.FileService
	status   *services.StatusService

	thumbnailQueue *queue.Queue
	emailQueue     *queue.Queue

	thumbnailWorker    *workers.ThumbnailWorker
	notificationWorker *workers.NotificationWorker
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	rdb, err := cache.NewClient(ctx, cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis init error: %w", err)
	}

	blobs, err := newBlobStorage(ctx, c)
	if err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	opts := queueOptions(c)
	thumbnails := queue.New(rdb, common.ThumbnailQueueName, opts, logger)
	emails := queue.New(rdb, common.EmailQueueName, opts, logger)

	store := cache.NewRedisStore(rdb)

	return &App{
		config: c,
		logger: logger,
		db:     db,
		redis:  rdb,

		sessions: services.NewSessionService(db, rm, store, c.SessionTTL, logger),
		users:    services.NewUserService(db, rm, emails, logger),
		files:    services.NewFileService(db, rm, blobs, thumbnails, logger),
		status:   services.NewStatusService(db, rm, store),

		thumbnailQueue: thumbnails,
		emailQueue:     emails,

		thumbnailWorker:    workers.NewThumbnailWorker(db, rm, blobs, logger),
		notificationWorker: workers.NewNotificationWorker(db, rm, newMailer(c, logger), c.MailFrom, logger),
	}, nil
}

func newBlobStorage(ctx context.Context, c *config.Config) (blob.Storage, error) {
	switch c.StorageBackend {
	case config.StorageLocal:
		return blob.NewLocalStorage(c.FolderPath)
	case config.StorageS3:
		return blob.NewS3Storage(ctx, blob.S3Options{
			Region:       c.S3Region,
			User:         c.S3User,
			Password:     c.S3Password,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

func newMailer(c *config.Config, logger logging.Logger) mail.Mailer {
	if c.SMTPHost == "" {
		return mail.NewLogMailer(logger)
	}
	return mail.NewSMTPMailer(mail.SMTPOptions{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		User:     c.SMTPUser,
		Password: c.SMTPPassword,
	})
}

func queueOptions(c *config.Config) queue.Options {
	opts := queue.DefaultOptions()
	if c.JobMaxAttempts > 0 {
		opts.MaxAttempts = c.JobMaxAttempts
	}
	if c.JobBackoff > 0 {
		opts.Backoff = c.JobBackoff
	}
	if c.JobVisibility > 0 {
		opts.Visibility = c.JobVisibility
	}
	return opts
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runComponent runs fn and cancels the whole app when it fails.
func (app *App) runComponent(ctx context.Context, cancelFunc context.CancelFunc, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		app.logger.Error(ctx, "component failed", "component", name, "error", err)
		cancelFunc()
	}
}

func (app *App) startWorkers(ctx context.Context, cancelFunc context.CancelFunc, wg *sync.WaitGroup) {
	n := app.config.WorkerConcurrency

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.runComponent(ctx, cancelFunc, "thumbnail worker", func(ctx context.Context) error {
			return app.thumbnailQueue.Process(ctx, n, app.thumbnailWorker.Handle)
		})
	}()
	go func() {
		defer wg.Done()
		app.runComponent(ctx, cancelFunc, "notification worker", func(ctx context.Context) error {
			return app.emailQueue.Process(ctx, n, app.notificationWorker.Handle)
		})
	}()
}

// Run serves the HTTP API and the gRPC health endpoint, plus the job
// workers when RunWorkers is set, until ctx is cancelled or a signal
// arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	handler := rest.NewHandler(app.sessions, app.users, app.files, app.status, app.logger)
	httpServer := rest.NewHTTPServer(app.config.HTTPAddr, app.logger, rest.NewRouter(handler, app.config.CORSOrigins))
	grpcServer := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.status, app.config.HealthInterval)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.runComponent(ctx, cancelFunc, "http server", httpServer.Run)
	}()
	go func() {
		defer wg.Done()
		app.runComponent(ctx, cancelFunc, "grpc server", grpcServer.Run)
	}()

	if app.config.RunWorkers {
		app.startWorkers(ctx, cancelFunc, &wg)
	}

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")
}

// RunWorkers only consumes the job queues. In-flight jobs finish before it
// returns.
func (app *App) RunWorkers(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting workers...", "concurrency", app.config.WorkerConcurrency)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	app.startWorkers(ctx, cancelFunc, &wg)
	wg.Wait()

	app.logger.Info(context.Background(), "Workers stopped")
}

// Close releases the database and Redis connections.
func (app *App) Close() error {
	return errors.Join(app.db.Close(), app.redis.Close())
}
