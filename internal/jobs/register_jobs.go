package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/primabonus/backend/internal/queue"
	"github.com/primabonus/backend/internal/services/approval"
	"github.com/primabonus/backend/internal/services/email"
	"github.com/primabonus/backend/internal/services/goals"
	"gorm.io/gorm"
)

// RegisterAllJobHandlers registers all job handlers with the processor
func RegisterAllJobHandlers(
	p *queue.JobProcessor,
	db *gorm.DB,
	q *queue.RedisQueue,
	goalSvc *goals.GoalService,
	emailSvc *email.EmailService,
) (*UploadJob, *GoalEvaluationJob, *NotificationJob) {
	uploadJob := NewUploadJob(db, q)
	p.RegisterHandler(queue.QueueUploadProcessing, uploadJob.Handle)

	goalJob := NewGoalEvaluationJob(db, q, goalSvc)
	p.RegisterHandler(queue.QueueGoalEvaluation, goalJob.Handle)

	notificationJob := NewNotificationJob(db, q, emailSvc)
	p.RegisterHandler(queue.QueueNotificationDispatch, notificationJob.Handle)

	return uploadJob, goalJob, notificationJob
}

// ScheduleRecurringJobs wires the recurring program chores onto the
// scheduler: the nightly goal sweep, the monthly settlement approval and
// the notification drain.
func ScheduleRecurringJobs(
	scheduler *gocron.Scheduler,
	goalJob *GoalEvaluationJob,
	notificationJob *NotificationJob,
	approvalSvc *approval.ApprovalService,
) error {
	// Nightly goal sweep at 02:00 UTC
	if _, err := scheduler.Cron("0 2 * * *").Do(func() {
		if _, err := goalJob.Enqueue(); err != nil {
			log.Printf("Error enqueueing goal sweep: %v", err)
		}
	}); err != nil {
		return err
	}

	// Monthly approval on the 10th, once invoices have settled
	if _, err := scheduler.Cron("0 5 10 * *").Do(func() {
		result, err := approvalSvc.ApproveDue(time.Now())
		if err != nil {
			log.Printf("Error running monthly approval: %v", err)
			return
		}
		log.Printf("Monthly approval for %s: %d transactions confirmed, %d users notified",
			result.Month.Format("2006-01"), result.Confirmed, result.UsersNotified)
	}); err != nil {
		return err
	}

	// Drain the notification queue every five minutes
	if _, err := scheduler.Every(5).Minutes().Do(func() {
		if _, err := notificationJob.Enqueue(); err != nil {
			log.Printf("Error enqueueing notification dispatch: %v", err)
		}
	}); err != nil {
		return err
	}

	return nil
}
