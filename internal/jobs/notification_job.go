package jobs

import (
	"context"
	"log"

	"github.com/primabonus/backend/internal/queue"
	"github.com/primabonus/backend/internal/services/email"
	"gorm.io/gorm"
)

// NotificationJob drains the email notification queue
type NotificationJob struct {
	db      *gorm.DB
	queue   *queue.RedisQueue
	service *email.EmailService
}

// NewNotificationJob creates a new notification job
func NewNotificationJob(db *gorm.DB, q *queue.RedisQueue, service *email.EmailService) *NotificationJob {
	return &NotificationJob{
		db:      db,
		queue:   q,
		service: service,
	}
}

// Enqueue queues one dispatch run
func (j *NotificationJob) Enqueue() (string, error) {
	return j.queue.Enqueue(queue.QueueNotificationDispatch, struct{}{})
}

// Handle sends every pending notification
func (j *NotificationJob) Handle(ctx context.Context, job queue.Job) error {
	sent, err := j.service.DispatchPending()
	if err != nil {
		return err
	}
	if sent > 0 {
		log.Printf("Dispatched %d notifications", sent)
	}
	return nil
}
