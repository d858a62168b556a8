package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix  = "job:"
	pendingKey    = "dispatch_pending"
	processingKey = "dispatch_processing"
	delayedKey    = "dispatch_delayed"

	jobTTL      = 24 * time.Hour
	popTimeout  = time.Second
	promotePoll = time.Second
)

// Queue is the Redis implementation. Pending job ids sit in a list, jobs
// being worked sit in a processing list (so a crashed worker's job can be
// swept back), and retries wait in a sorted set scored by their due time.
type Queue struct {
	client     *redis.Client
	cfg        Config
	logger     *slog.Logger
	processors map[JobType]Processor

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewQueue(client *redis.Client, cfg Config, logger *slog.Logger) *Queue {
	return &Queue{
		client:     client,
		cfg:        cfg.withDefaults(),
		logger:     logger,
		processors: make(map[JobType]Processor),
		stopCh:     make(chan struct{}),
	}
}

// Register binds a processor to a job type. Must be called before Start.
func (q *Queue) Register(jobType JobType, p Processor) {
	q.processors[jobType] = p
	q.logger.Info("job processor registered", "job_type", jobType)
}

// Enqueue persists the job record and pushes its id onto the pending list.
func (q *Queue) Enqueue(ctx context.Context, jobType JobType, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	now := time.Now().UTC()
	job := Job{
		ID:          uuid.New().String(),
		Type:        jobType,
		Payload:     data,
		Status:      JobStatusPending,
		MaxAttempts: q.cfg.MaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := q.saveJob(ctx, &job); err != nil {
		return "", err
	}
	if err := q.client.LPush(ctx, pendingKey, job.ID).Err(); err != nil {
		return "", fmt.Errorf("push job to queue: %w", err)
	}

	q.logger.Info("job enqueued", "job_id", job.ID, "job_type", jobType)
	return job.ID, nil
}

func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true

	q.logger.Info("dispatcher starting",
		"workers", q.cfg.Workers,
		"max_attempts", q.cfg.MaxAttempts)

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	q.wg.Add(1)
	go q.promoteDelayed()

	q.wg.Add(1)
	go q.sweepStuck()
}

func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}
	q.running = false

	q.logger.Info("dispatcher stopping")
	close(q.stopCh)
	q.wg.Wait()
	q.logger.Info("dispatcher stopped")
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			q.logger.Debug("worker shutting down", "worker_id", id)
			return
		default:
		}

		jobID, err := q.client.BRPopLPush(ctx, pendingKey, processingKey, popTimeout).Result()
		if err != nil {
			if err != redis.Nil {
				q.logger.Error("failed to pop job", "worker_id", id, "error", err)
				time.Sleep(popTimeout)
			}
			continue
		}

		q.processJob(ctx, id, jobID)
	}
}

func (q *Queue) processJob(ctx context.Context, workerID int, jobID string) {
	defer func() {
		_ = q.client.LRem(ctx, processingKey, 1, jobID).Err()
	}()

	job, err := q.loadJob(ctx, jobID)
	if err != nil {
		q.logger.Error("job record missing, dropping", "job_id", jobID, "error", err)
		return
	}

	processor, ok := q.processors[job.Type]
	if !ok {
		q.logger.Error("no processor for job type, dropping", "job_id", jobID, "job_type", job.Type)
		q.finishJob(ctx, job, JobStatusFailed, "no processor registered")
		return
	}

	job.Attempts++
	job.Status = JobStatusProcessing
	job.UpdatedAt = time.Now().UTC()
	_ = q.saveJob(ctx, job)

	q.logger.Info("processing job",
		"worker_id", workerID,
		"job_id", job.ID,
		"job_type", job.Type,
		"attempt", job.Attempts)

	if err := processor.Handle(ctx, job.Payload); err != nil {
		q.handleFailure(ctx, job, processor, err)
		return
	}

	q.finishJob(ctx, job, JobStatusCompleted, "")
	q.logger.Info("job completed", "job_id", job.ID, "job_type", job.Type)
}

func (q *Queue) handleFailure(ctx context.Context, job *Job, processor Processor, cause error) {
	job.LastError = cause.Error()

	if job.Attempts >= job.MaxAttempts {
		q.logger.Error("job retries exhausted",
			"job_id", job.ID,
			"job_type", job.Type,
			"attempts", job.Attempts,
			"error", cause)

		q.finishJob(ctx, job, JobStatusFailed, cause.Error())
		if processor.OnExhausted != nil {
			processor.OnExhausted(ctx, job.Payload, cause)
		}
		return
	}

	delay := RetryDelay(job.Attempts, q.cfg.RetryBaseDelay, q.cfg.RetryMaxDelay)
	dueAt := time.Now().UTC().Add(delay)

	job.Status = JobStatusRetrying
	job.UpdatedAt = time.Now().UTC()
	_ = q.saveJob(ctx, job)

	if err := q.client.ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(dueAt.Unix()),
		Member: job.ID,
	}).Err(); err != nil {
		q.logger.Error("failed to schedule retry", "job_id", job.ID, "error", err)
		return
	}

	q.logger.Warn("job failed, retry scheduled",
		"job_id", job.ID,
		"job_type", job.Type,
		"attempt", job.Attempts,
		"retry_in", delay,
		"error", cause)
}

// promoteDelayed moves due retries from the sorted set back onto the
// pending list.
func (q *Queue) promoteDelayed() {
	defer q.wg.Done()
	ticker := time.NewTicker(promotePoll)
	defer ticker.Stop()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			now := strconv.FormatInt(time.Now().UTC().Unix(), 10)
			ids, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
				Min: "-inf",
				Max: now,
			}).Result()
			if err != nil {
				q.logger.Error("failed to read delayed jobs", "error", err)
				continue
			}
			for _, id := range ids {
				removed, err := q.client.ZRem(ctx, delayedKey, id).Result()
				if err != nil || removed == 0 {
					continue
				}
				if err := q.client.LPush(ctx, pendingKey, id).Err(); err != nil {
					q.logger.Error("failed to requeue delayed job", "job_id", id, "error", err)
				}
			}
		}
	}
}

// sweepStuck requeues jobs abandoned in the processing list by crashed
// workers. This is what makes delivery at-least-once rather than at-most-once.
func (q *Queue) sweepStuck() {
	defer q.wg.Done()
	ticker := time.NewTicker(q.cfg.SweepInterval)
	defer ticker.Stop()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			ids, err := q.client.LRange(ctx, processingKey, 0, -1).Result()
			if err != nil {
				q.logger.Error("sweeper failed to read processing list", "error", err)
				continue
			}
			now := time.Now().UTC()
			for _, id := range ids {
				job, err := q.loadJob(ctx, id)
				if err != nil {
					_ = q.client.LRem(ctx, processingKey, 1, id).Err()
					continue
				}
				if job.Status != JobStatusProcessing {
					_ = q.client.LRem(ctx, processingKey, 1, id).Err()
					continue
				}
				if now.Sub(job.UpdatedAt) < q.cfg.StuckJobAge {
					continue
				}

				q.logger.Warn("requeuing stuck job", "job_id", id, "stuck_for", now.Sub(job.UpdatedAt))
				if err := q.client.LRem(ctx, processingKey, 1, id).Err(); err != nil {
					continue
				}
				job.Status = JobStatusPending
				job.UpdatedAt = now
				_ = q.saveJob(ctx, job)
				_ = q.client.LPush(ctx, pendingKey, id).Err()
			}
		}
	}
}

func (q *Queue) finishJob(ctx context.Context, job *Job, status JobStatus, lastError string) {
	job.Status = status
	job.LastError = lastError
	job.UpdatedAt = time.Now().UTC()
	_ = q.saveJob(ctx, job)
}

func (q *Queue) saveJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL).Err(); err != nil {
		return fmt.Errorf("save job record: %w", err)
	}
	return nil
}

func (q *Queue) loadJob(ctx context.Context, jobID string) (*Job, error) {
	data, err := q.client.Get(ctx, jobKeyPrefix+jobID).Result()
	if err != nil {
		return nil, fmt.Errorf("load job record: %w", err)
	}
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job record: %w", err)
	}
	return &job, nil
}
