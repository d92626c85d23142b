package email

import (
	"errors"
	"fmt"
	"log"
	"net/smtp"
	"time"

	"github.com/primabonus/backend/internal/config"
	"github.com/primabonus/backend/internal/models"
	"gorm.io/gorm"
)

// EmailService delivers queued notifications over SMTP
type EmailService struct {
	db           *gorm.DB
	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
}

// NewEmailService creates a new email service
func NewEmailService(db *gorm.DB, cfg config.SMTPConfig) *EmailService {
	return &EmailService{
		db:           db,
		smtpHost:     cfg.Host,
		smtpPort:     cfg.Port,
		smtpUsername: cfg.Username,
		smtpPassword: cfg.Password,
		fromEmail:    cfg.FromEmail,
	}
}

// DispatchPending sends every queued notification, stamping each one
// SENT or FAILED. A single failed delivery does not stop the batch.
func (s *EmailService) DispatchPending() (int, error) {
	var notifications []models.EmailNotification
	err := s.db.Preload("User").
		Where("status = ?", models.NotificationPending).
		Order("created_at ASC").
		Find(&notifications).Error
	if err != nil {
		return 0, fmt.Errorf("error loading pending notifications: %w", err)
	}

	sent := 0
	for i := range notifications {
		notification := &notifications[i]
		if err := s.deliver(notification); err != nil {
			log.Printf("Failed to send notification %s: %v", notification.ID, err)
			notification.Status = models.NotificationFailed
		} else {
			now := time.Now()
			notification.Status = models.NotificationSent
			notification.SentAt = &now
			sent++
		}
		if err := s.db.Save(notification).Error; err != nil {
			return sent, fmt.Errorf("error updating notification %s: %w", notification.ID, err)
		}
	}
	return sent, nil
}

func (s *EmailService) deliver(notification *models.EmailNotification) error {
	if notification.User.Email == "" {
		return errors.New("user has no email address")
	}
	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<body>
		<p>Hello %s,</p>
		<p>%s</p>
		<p>Best regards,<br>The Bonus Program Team</p>
	</body>
	</html>
	`, notification.User.Username, notification.Message)

	return s.sendEmail(notification.User.Email, notification.Subject, body)
}

// sendEmail sends an email with HTML content
func (s *EmailService) sendEmail(toEmail, subject, htmlBody string) error {
	if s.smtpHost == "" || s.smtpPort == "" || s.smtpUsername == "" || s.smtpPassword == "" {
		log.Println("Email service not configured properly. Check environment variables.")
		return fmt.Errorf("email service not configured")
	}

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	from := fmt.Sprintf("From: Bonus Program <%s>\n", s.fromEmail)
	to := fmt.Sprintf("To: %s\n", toEmail)
	subject = fmt.Sprintf("Subject: %s\n", subject)

	message := []byte(from + to + subject + mime + htmlBody)

	auth := smtp.PlainAuth("", s.smtpUsername, s.smtpPassword, s.smtpHost)
	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)

	return smtp.SendMail(addr, auth, s.fromEmail, []string{toEmail}, message)
}
