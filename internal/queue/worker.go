package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// moveDueScript moves ids whose score is <= ARGV[1] from the sorted set
// KEYS[1] to the wait list KEYS[2], removing them from the active list
// KEYS[3] when given.
var moveDueScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, id in ipairs(ids) do
	redis.call('ZREM', KEYS[1], id)
	if KEYS[3] then
		redis.call('LREM', KEYS[3], 1, id)
	end
	redis.call('LPUSH', KEYS[2], id)
end
return #ids
`)

const maintenanceBatch = 100

// Process consumes jobs with concurrency workers until ctx is cancelled.
// Jobs already taken are allowed to finish before Process returns.
func (q *Queue) Process(ctx context.Context, concurrency int, h Handler) error {
	if concurrency < 1 {
		concurrency = 1
	}

	q.logger.Info(ctx, "queue processing started", "concurrency", concurrency)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		q.maintain(ctx)
	}()

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q.consume(ctx, n, h)
		}(i)
	}

	wg.Wait()
	q.logger.Info(context.Background(), "queue processing stopped")
	return nil
}

func (q *Queue) consume(ctx context.Context, n int, h Handler) {
	for {
		if ctx.Err() != nil {
			return
		}

		// Uncancellable: an id popped on the server must reach a consumer.
		id, err := q.client.BRPopLPush(context.WithoutCancel(ctx), q.key("wait"), q.key("active"), q.opts.PollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.logger.Error(ctx, "dequeue failed", "worker", n, "error", err)
			sleep(ctx, q.opts.PollTimeout)
			continue
		}

		// The job runs to completion even when shutdown begins.
		q.handle(context.WithoutCancel(ctx), id, h)
	}
}

func (q *Queue) handle(ctx context.Context, id string, h Handler) {
	if err := q.client.ZAdd(ctx, q.key("leases"), redis.Z{
		Score:  score(q.now().Add(q.opts.Visibility)),
		Member: id,
	}).Err(); err != nil {
		q.logger.Error(ctx, "lease failed", "job_id", id, "error", err)
	}

	job, err := q.load(ctx, id)
	if err != nil {
		q.logger.Error(ctx, "load failed", "job_id", id, "error", err)
		return
	}
	if job == nil {
		// Acked by a consumer whose lease had been reaped.
		q.logger.Warn(ctx, "dropping job without body", "job_id", id)
		q.settle(ctx, id)
		return
	}

	job.Attempts++
	log := q.logger.With("job_id", job.ID, "attempt", job.Attempts)

	err = q.run(ctx, job, h)
	if err == nil {
		if err := q.ack(ctx, job); err != nil {
			log.Error(ctx, "ack failed", "error", err)
			return
		}
		log.Debug(ctx, "job completed")
		return
	}

	job.LastError = err.Error()
	if IsPermanent(err) || job.Attempts >= q.opts.MaxAttempts {
		log.Error(ctx, "job failed", "error", err, "permanent", IsPermanent(err))
		if err := q.bury(ctx, job); err != nil {
			log.Error(ctx, "move to failed list", "error", err)
		}
		return
	}

	delay := q.backoff(job.Attempts)
	log.Warn(ctx, "job failed, will retry", "error", err, "retry_in", delay.String())
	if err := q.retry(ctx, job, delay); err != nil {
		log.Error(ctx, "schedule retry", "error", err)
	}
}

// run invokes h under the job timeout while keeping the lease alive.
func (q *Queue) run(ctx context.Context, job *Job, h Handler) (err error) {
	jobCtx, cancel := context.WithTimeout(ctx, q.opts.JobTimeout)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go q.keepLease(jobCtx, job.ID, done)

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()

	return h(jobCtx, job)
}

func (q *Queue) keepLease(ctx context.Context, id string, done <-chan struct{}) {
	t := time.NewTicker(q.opts.Visibility / 2)
	defer t.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			err := q.client.ZAddArgs(ctx, q.key("leases"), redis.ZAddArgs{
				XX:      true,
				Members: []redis.Z{{Score: score(q.now().Add(q.opts.Visibility)), Member: id}},
			}).Err()
			if err != nil {
				q.logger.Warn(ctx, "lease extension failed", "job_id", id, "error", err)
			}
		}
	}
}

func (q *Queue) ack(ctx context.Context, job *Job) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.key("active"), 1, job.ID)
		pipe.ZRem(ctx, q.key("leases"), job.ID)
		pipe.HDel(ctx, q.key("jobs"), job.ID)
		return nil
	})
	return err
}

func (q *Queue) settle(ctx context.Context, id string) {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.key("active"), 1, id)
		pipe.ZRem(ctx, q.key("leases"), id)
		return nil
	})
	if err != nil {
		q.logger.Error(ctx, "settle failed", "job_id", id, "error", err)
	}
}

func (q *Queue) retry(ctx context.Context, job *Job, delay time.Duration) error {
	return q.release(ctx, job, func(pipe redis.Pipeliner) {
		pipe.ZAdd(ctx, q.key("delayed"), redis.Z{Score: score(q.now().Add(delay)), Member: job.ID})
	})
}

func (q *Queue) bury(ctx context.Context, job *Job) error {
	return q.release(ctx, job, func(pipe redis.Pipeliner) {
		pipe.LPush(ctx, q.key("failed"), job.ID)
	})
}

// release saves the job body, drops it from the active set and lets next
// place the id.
func (q *Queue) release(ctx context.Context, job *Job, next func(redis.Pipeliner)) error {
	body, err := jsonMarshal(job)
	if err != nil {
		return err
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.key("jobs"), job.ID, body)
		pipe.LRem(ctx, q.key("active"), 1, job.ID)
		pipe.ZRem(ctx, q.key("leases"), job.ID)
		next(pipe)
		return nil
	})
	return err
}

func (q *Queue) backoff(attempt int) time.Duration {
	d := q.opts.Backoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= q.opts.MaxBackoff {
			return q.opts.MaxBackoff
		}
	}
	return d
}

func (q *Queue) maintain(ctx context.Context) {
	t := time.NewTicker(q.opts.MaintenanceInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := q.promoteDue(ctx); err != nil && ctx.Err() == nil {
				q.logger.Error(ctx, "promote delayed jobs", "error", err)
			}
			if n, err := q.reapExpired(ctx); err != nil && ctx.Err() == nil {
				q.logger.Error(ctx, "reap expired leases", "error", err)
			} else if n > 0 {
				q.logger.Warn(ctx, "requeued jobs with expired leases", "count", n)
			}
		}
	}
}

// promoteDue moves delayed jobs whose backoff has elapsed to the wait list.
func (q *Queue) promoteDue(ctx context.Context) (int64, error) {
	return moveDueScript.Run(ctx, q.client,
		[]string{q.key("delayed"), q.key("wait")},
		strconv.FormatFloat(score(q.now()), 'f', 0, 64), maintenanceBatch,
	).Int64()
}

// reapExpired returns jobs held by consumers that stopped renewing their
// lease to the wait list.
func (q *Queue) reapExpired(ctx context.Context) (int64, error) {
	return moveDueScript.Run(ctx, q.client,
		[]string{q.key("leases"), q.key("wait"), q.key("active")},
		strconv.FormatFloat(score(q.now()), 'f', 0, 64), maintenanceBatch,
	).Int64()
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
