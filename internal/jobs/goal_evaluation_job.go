package jobs

import (
	"context"
	"log"
	"time"

	"github.com/primabonus/backend/internal/queue"
	"github.com/primabonus/backend/internal/services/goals"
	"gorm.io/gorm"
)

// GoalEvaluationJob runs the periodic goal sweep that awards milestone,
// final and recovery points for every goal with due periods.
type GoalEvaluationJob struct {
	db      *gorm.DB
	queue   *queue.RedisQueue
	service *goals.GoalService
}

// NewGoalEvaluationJob creates a new goal evaluation job
func NewGoalEvaluationJob(db *gorm.DB, q *queue.RedisQueue, service *goals.GoalService) *GoalEvaluationJob {
	return &GoalEvaluationJob{
		db:      db,
		queue:   q,
		service: service,
	}
}

// Enqueue queues one sweep run
func (j *GoalEvaluationJob) Enqueue() (string, error) {
	return j.queue.Enqueue(queue.QueueGoalEvaluation, struct{}{})
}

// Handle runs one sweep over all active goals
func (j *GoalEvaluationJob) Handle(ctx context.Context, job queue.Job) error {
	result, err := j.service.EvaluateDueGoals(time.Now())
	if err != nil {
		return err
	}
	log.Printf("Goal sweep done: %d evaluated, %d skipped, %d points awarded",
		result.Evaluated, result.Skipped, result.Awarded)
	return nil
}
