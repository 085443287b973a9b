// Package queue implements durable named job queues on Redis with
// at-least-once delivery.
//
// Each queue keeps its job bodies in a hash and moves job ids between a wait
// list, an active list, a delayed sorted set (retry backoff) and a failed
// list. A consumer holds a lease on every job it has taken; jobs whose lease
// expires are returned to the wait list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Job is a unit of work on a named queue.
type Job struct {
	ID         string          `json:"id"`
	Queue      string          `json:"queue"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	LastError  string          `json:"lastError,omitempty"`
}

// Decode unmarshals the payload into v.
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return Permanent(fmt.Errorf("decode payload of job %s: %w", j.ID, err))
	}
	return nil
}

// Handler processes one job. A nil return acknowledges the job.
type Handler func(ctx context.Context, job *Job) error

// Enqueuer is the producer side of a queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any) (*Job, error)
}

type Options struct {
	// MaxAttempts is the number of deliveries before a job is moved to the
	// failed list.
	MaxAttempts int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
	// MaxBackoff caps the retry delay.
	MaxBackoff time.Duration
	// Visibility is the lease duration of a taken job.
	Visibility time.Duration
	// JobTimeout bounds a single handler invocation.
	JobTimeout time.Duration
	// PollTimeout is how long a consumer blocks waiting for work.
	PollTimeout time.Duration
	// MaintenanceInterval is the period of delayed-job promotion and lease
	// reaping.
	MaintenanceInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxAttempts:         5,
		Backoff:             time.Second,
		MaxBackoff:          10 * time.Minute,
		Visibility:          time.Minute,
		JobTimeout:          5 * time.Minute,
		PollTimeout:         time.Second,
		MaintenanceInterval: time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.Backoff <= 0 {
		o.Backoff = d.Backoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = d.MaxBackoff
	}
	if o.Visibility <= 0 {
		o.Visibility = d.Visibility
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = d.JobTimeout
	}
	// BRPOPLPUSH has one-second resolution.
	if o.PollTimeout < time.Second {
		o.PollTimeout = d.PollTimeout
	}
	if o.MaintenanceInterval <= 0 {
		o.MaintenanceInterval = d.MaintenanceInterval
	}
	return o
}

type Queue struct {
	client *redis.Client
	name   string
	opts   Options
	logger logging.Logger
	now    func() time.Time
}

func New(client *redis.Client, name string, opts Options, logger logging.Logger) *Queue {
	return &Queue{
		client: client,
		name:   name,
		opts:   opts.withDefaults(),
		logger: logger.With("module", "queue", "queue", name),
		now:    time.Now,
	}
}

func (q *Queue) Name() string { return q.name }

func (q *Queue) key(part string) string {
	return "queue:" + q.name + ":" + part
}

// Enqueue stores payload as a new job and makes it available to consumers.
func (q *Queue) Enqueue(ctx context.Context, payload any) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	job := &Job{
		ID:         uuid.NewString(),
		Queue:      q.name,
		Payload:    raw,
		EnqueuedAt: q.now().UTC(),
	}
	body, err := jsonMarshal(job)
	if err != nil {
		return nil, err
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.key("jobs"), job.ID, body)
		pipe.LPush(ctx, q.key("wait"), job.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue on %q: %w", q.name, err)
	}

	q.logger.Debug(ctx, "job enqueued", "job_id", job.ID)
	return job, nil
}

// Counts is a snapshot of the queue's state.
type Counts struct {
	Waiting int64 `json:"waiting"`
	Active  int64 `json:"active"`
	Delayed int64 `json:"delayed"`
	Failed  int64 `json:"failed"`
}

func (q *Queue) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	var wait, active, delayed, failed *redis.IntCmd
	_, err := q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		wait = pipe.LLen(ctx, q.key("wait"))
		active = pipe.LLen(ctx, q.key("active"))
		delayed = pipe.ZCard(ctx, q.key("delayed"))
		failed = pipe.LLen(ctx, q.key("failed"))
		return nil
	})
	if err != nil {
		return c, fmt.Errorf("counts of %q: %w", q.name, err)
	}
	c.Waiting, c.Active, c.Delayed, c.Failed = wait.Val(), active.Val(), delayed.Val(), failed.Val()
	return c, nil
}

// Failed returns up to limit jobs from the failed list, most recent first.
func (q *Queue) Failed(ctx context.Context, limit int64) ([]*Job, error) {
	ids, err := q.client.LRange(ctx, q.key("failed"), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed list of %q: %w", q.name, err)
	}
	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := q.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// load returns nil without error when the job body is gone.
func (q *Queue) load(ctx context.Context, id string) (*Job, error) {
	body, err := q.client.HGet(ctx, q.key("jobs"), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

func jsonMarshal(job *Job) ([]byte, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	return body, nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
