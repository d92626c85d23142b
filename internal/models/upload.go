package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadStatus is the lifecycle of an uploaded invoice file
type UploadStatus string

const (
	UploadPending    UploadStatus = "PENDING"
	UploadProcessing UploadStatus = "PROCESSING"
	UploadCompleted  UploadStatus = "COMPLETED"
	UploadFailed     UploadStatus = "FAILED"
)

// FileUpload tracks one imported invoice or credit-note file. The
// ingestion pipeline moves it PENDING -> PROCESSING -> COMPLETED|FAILED
// and records per-invoice errors without aborting the batch.
type FileUpload struct {
	Base
	FileName      string       `gorm:"type:varchar(255);not null" json:"file_name"`
	Status        UploadStatus `gorm:"type:varchar(20);default:'PENDING';index" json:"status"`
	ErrorMessage  string       `gorm:"type:text" json:"error_message"`
	ProcessedRows int          `gorm:"default:0" json:"processed_rows"`
	ProcessedAt   *time.Time   `json:"processed_at,omitempty"`
	UploadedByID  *uuid.UUID   `gorm:"type:uuid" json:"uploaded_by_id,omitempty"`
	UploadedBy    *User        `gorm:"foreignKey:UploadedByID" json:"-"`
}

// NotificationStatus is the delivery state of an email notification
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "PENDING"
	NotificationSent    NotificationStatus = "SENT"
	NotificationFailed  NotificationStatus = "FAILED"
)

// EmailNotification is a queued outbound email. The core only enqueues
// records; a background job performs delivery and stamps the outcome.
type EmailNotification struct {
	Base
	UserID  uuid.UUID          `gorm:"type:uuid;index;not null" json:"user_id"`
	User    User               `gorm:"foreignKey:UserID" json:"-"`
	Subject string             `gorm:"type:varchar(255);not null" json:"subject"`
	Message string             `gorm:"type:text;not null" json:"message"`
	Status  NotificationStatus `gorm:"type:varchar(20);default:'PENDING';index" json:"status"`
	SentAt  *time.Time         `json:"sent_at,omitempty"`
}
