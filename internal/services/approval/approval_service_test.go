package approval

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/primabonus/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.PointsTransaction{}, &models.EmailNotification{})
	require.NoError(t, err)

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username, number string) models.User {
	user := models.User{Username: username, Email: username + "@example.com", UserNumber: number}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createPoints(t *testing.T, db *gorm.DB, userID uuid.UUID, value int, date time.Time, txType models.TransactionType, status models.TransactionStatus) models.PointsTransaction {
	tx := models.PointsTransaction{
		UserID:      userID,
		Value:       value,
		Date:        date,
		Description: "Invoice F0001",
		Type:        txType,
		Status:      status,
	}
	require.NoError(t, db.Create(&tx).Error)
	return tx
}

func TestDueMonthAppliesLag(t *testing.T) {
	svc := NewApprovalService(nil, 3)

	due := svc.DueMonth(time.Date(2025, 6, 10, 5, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), due)

	// Lag crossing a year boundary
	due = svc.DueMonth(time.Date(2025, 2, 10, 5, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC), due)
}

func TestApproveMonthConfirmsOnlyMatchingTransactions(t *testing.T) {
	db := setupTestDB(t)
	svc := NewApprovalService(db, 3)
	user := createTestUser(t, db, "client1", "10001")

	inMonth := createPoints(t, db, user.ID, 500, models.Date(2025, 3, 15),
		models.TransactionStandardPoints, models.StatusPending)
	otherMonth := createPoints(t, db, user.ID, 200, models.Date(2025, 4, 2),
		models.TransactionStandardPoints, models.StatusPending)
	otherType := createPoints(t, db, user.ID, -100, models.Date(2025, 3, 20),
		models.TransactionCreditNoteAdjust, models.StatusPending)

	result, err := svc.ApproveMonth(models.Date(2025, 3, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Confirmed)
	assert.Equal(t, 1, result.UsersNotified)

	statusOf := func(id uuid.UUID) models.TransactionStatus {
		var tx models.PointsTransaction
		require.NoError(t, db.First(&tx, "id = ?", id).Error)
		return tx.Status
	}
	assert.Equal(t, models.StatusConfirmed, statusOf(inMonth.ID))
	assert.Equal(t, models.StatusPending, statusOf(otherMonth.ID))
	assert.Equal(t, models.StatusPending, statusOf(otherType.ID))
}

func TestApproveMonthQueuesOneEmailPerUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewApprovalService(db, 3)
	user1 := createTestUser(t, db, "client1", "10001")
	user2 := createTestUser(t, db, "client2", "10002")

	// Two pending transactions for user1, one for user2
	createPoints(t, db, user1.ID, 500, models.Date(2025, 3, 5),
		models.TransactionStandardPoints, models.StatusPending)
	createPoints(t, db, user1.ID, 300, models.Date(2025, 3, 20),
		models.TransactionStandardPoints, models.StatusPending)
	createPoints(t, db, user2.ID, 100, models.Date(2025, 3, 12),
		models.TransactionStandardPoints, models.StatusPending)

	result, err := svc.ApproveMonth(models.Date(2025, 3, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.Confirmed)
	assert.Equal(t, 2, result.UsersNotified)

	var notifications []models.EmailNotification
	require.NoError(t, db.Find(&notifications).Error)
	require.Len(t, notifications, 2)
	assert.Equal(t, models.NotificationPending, notifications[0].Status)
	assert.Contains(t, notifications[0].Message, "March 2025")
}

func TestApproveMonthEmptyMonthIsNoop(t *testing.T) {
	db := setupTestDB(t)
	svc := NewApprovalService(db, 3)

	result, err := svc.ApproveMonth(models.Date(2025, 3, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 0, result.Confirmed)
	assert.Equal(t, 0, result.UsersNotified)

	var count int64
	require.NoError(t, db.Model(&models.EmailNotification{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestApproveDueUsesLaggedMonth(t *testing.T) {
	db := setupTestDB(t)
	svc := NewApprovalService(db, 3)
	user := createTestUser(t, db, "client1", "10001")

	createPoints(t, db, user.ID, 500, models.Date(2025, 3, 15),
		models.TransactionStandardPoints, models.StatusPending)

	result, err := svc.ApproveDue(time.Date(2025, 6, 10, 5, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), result.Month)
	assert.EqualValues(t, 1, result.Confirmed)
}
