package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/primabonus/backend/internal/queue"
	"github.com/primabonus/backend/internal/services/ingest"
	"gorm.io/gorm"
)

// UploadJobPayload carries one parsed statement file through the queue
type UploadJobPayload struct {
	UploadID uuid.UUID           `json:"upload_id"`
	Columns  []string            `json:"columns"`
	Rows     []map[string]string `json:"rows"`
}

// UploadJob runs the invoice ingestion pipeline in the background so the
// HTTP upload returns immediately.
type UploadJob struct {
	db       *gorm.DB
	queue    *queue.RedisQueue
	pipeline *ingest.Pipeline
}

// NewUploadJob creates a new upload job
func NewUploadJob(db *gorm.DB, q *queue.RedisQueue) *UploadJob {
	return &UploadJob{
		db:       db,
		queue:    q,
		pipeline: ingest.NewPipeline(db),
	}
}

// Enqueue queues one uploaded file for processing
func (j *UploadJob) Enqueue(uploadID uuid.UUID, rs ingest.RecordSet) (string, error) {
	payload := UploadJobPayload{
		UploadID: uploadID,
		Columns:  rs.Columns,
		Rows:     rs.Rows,
	}
	return j.queue.Enqueue(queue.QueueUploadProcessing, payload)
}

// Handle processes one queued upload
func (j *UploadJob) Handle(ctx context.Context, job queue.Job) error {
	var payload UploadJobPayload
	if err := queue.JobPayload(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid upload job payload: %w", err)
	}

	rs := ingest.RecordSet{Columns: payload.Columns, Rows: payload.Rows}
	result, err := j.pipeline.ProcessUpload(payload.UploadID, rs)
	if err != nil {
		// The pipeline has already stamped the upload FAILED; the job
		// itself is done, so no retry.
		log.Printf("Upload %s failed: %v", payload.UploadID, err)
		return nil
	}

	log.Printf("Upload %s processed: %d rows, %d points transactions", payload.UploadID, result.ProcessedRows, result.PointsCreated)
	return nil
}
