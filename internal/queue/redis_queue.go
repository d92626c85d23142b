package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	// Queue names
	QueueUploadProcessing     = "upload_processing"
	QueueGoalEvaluation       = "goal_evaluation"
	QueueNotificationDispatch = "notification_dispatch"

	// Default values
	DefaultRetryCount = 3
	DefaultTTL        = 24 * time.Hour
)

// JobStatus tracks a job through its lifecycle
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is the unit of background work carried through Redis
type Job struct {
	ID         string          `json:"id"`
	Queue      string          `json:"queue"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	RunAt      time.Time       `json:"run_at"`
}

// EnqueueOption defines options for enqueueing jobs
type EnqueueOption func(*Job)

// WithMaxRetries sets the maximum number of retries for a job
func WithMaxRetries(maxRetries int) EnqueueOption {
	return func(j *Job) {
		j.MaxRetries = maxRetries
	}
}

// RedisQueue is a Redis-backed job queue with delayed delivery and
// bounded retries
type RedisQueue struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisQueue creates a new Redis queue
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{
		client: client,
		ctx:    context.Background(),
	}
}

// Enqueue adds a job to the queue
func (q *RedisQueue) Enqueue(queueName string, payload interface{}, opts ...EnqueueOption) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &Job{
		ID:         uuid.New().String(),
		Queue:      queueName,
		Payload:    payloadBytes,
		Status:     JobStatusPending,
		MaxRetries: DefaultRetryCount,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		RunAt:      time.Now(),
	}
	for _, opt := range opts {
		opt(job)
	}

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.LPush(q.ctx, queueName, jobBytes).Err(); err != nil {
		return "", fmt.Errorf("failed to push job to queue: %w", err)
	}
	if err := q.storeJob(job.ID, jobBytes); err != nil {
		return "", err
	}
	return job.ID, nil
}

func (q *RedisQueue) storeJob(jobID string, jobBytes []byte) error {
	if err := q.client.HSet(q.ctx, "jobs:"+jobID, "data", jobBytes).Err(); err != nil {
		return fmt.Errorf("failed to store job details: %w", err)
	}
	if err := q.client.Expire(q.ctx, "jobs:"+jobID, DefaultTTL).Err(); err != nil {
		log.Printf("Warning: failed to set TTL on job %s: %v", jobID, err)
	}
	return nil
}

// Dequeue gets a job from the queue
func (q *RedisQueue) Dequeue(queueName string) (*Job, error) {
	q.moveReadyDelayedJobs(queueName)

	result := q.client.BRPop(q.ctx, 1*time.Second, queueName)
	if result.Err() != nil {
		if result.Err() == redis.Nil {
			return nil, nil // No jobs available
		}
		return nil, fmt.Errorf("failed to pop job from queue: %w", result.Err())
	}
	if len(result.Val()) < 2 {
		return nil, fmt.Errorf("unexpected result format from BRPOP")
	}

	var job Job
	if err := json.Unmarshal([]byte(result.Val()[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	job.Status = JobStatusProcessing
	job.UpdatedAt = time.Now()
	if jobBytes, err := json.Marshal(job); err == nil {
		if err := q.client.HSet(q.ctx, "jobs:"+job.ID, "data", jobBytes).Err(); err != nil {
			log.Printf("Warning: failed to update job status: %v", err)
		}
	}
	return &job, nil
}

// moveReadyDelayedJobs moves delayed jobs that are ready to run to the
// main queue
func (q *RedisQueue) moveReadyDelayedJobs(queueName string) {
	now := time.Now().Unix()

	jobs, err := q.client.ZRangeByScore(q.ctx, "delayed:"+queueName, &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		log.Printf("Error getting ready delayed jobs: %v", err)
		return
	}

	for _, jobStr := range jobs {
		if err := q.client.LPush(q.ctx, queueName, jobStr).Err(); err != nil {
			log.Printf("Error moving delayed job to main queue: %v", err)
			continue
		}
		q.client.ZRem(q.ctx, "delayed:"+queueName, jobStr)
	}
}

// Complete marks a job as completed
func (q *RedisQueue) Complete(jobID string) error {
	return q.updateStatus(jobID, func(job *Job) {
		job.Status = JobStatusCompleted
	})
}

// Fail marks a job as failed and schedules a retry while attempts remain
func (q *RedisQueue) Fail(jobID string, jobErr error) error {
	var retry bool
	err := q.updateStatus(jobID, func(job *Job) {
		job.Status = JobStatusFailed
		retry = job.RetryCount < job.MaxRetries
	})
	if err != nil {
		return err
	}
	if retry {
		return q.RetryJob(jobID)
	}
	return nil
}

// RetryJob requeues a failed job with a backoff proportional to its
// attempt count.
func (q *RedisQueue) RetryJob(jobID string) error {
	jobData, err := q.client.HGet(q.ctx, "jobs:"+jobID, "data").Result()
	if err != nil {
		return fmt.Errorf("failed to get job details: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	job.Status = JobStatusPending
	job.RetryCount++
	job.UpdatedAt = time.Now()
	job.RunAt = time.Now().Add(time.Duration(job.RetryCount) * 5 * time.Second)

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal updated job: %w", err)
	}
	if err := q.client.HSet(q.ctx, "jobs:"+jobID, "data", jobBytes).Err(); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	err = q.client.ZAdd(q.ctx, "delayed:"+job.Queue, &redis.Z{
		Score:  float64(job.RunAt.Unix()),
		Member: jobBytes,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add job to delayed queue: %w", err)
	}
	return nil
}

func (q *RedisQueue) updateStatus(jobID string, mutate func(*Job)) error {
	jobData, err := q.client.HGet(q.ctx, "jobs:"+jobID, "data").Result()
	if err != nil {
		return fmt.Errorf("failed to get job details: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	mutate(&job)
	job.UpdatedAt = time.Now()

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal updated job: %w", err)
	}
	if err := q.client.HSet(q.ctx, "jobs:"+jobID, "data", jobBytes).Err(); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}
