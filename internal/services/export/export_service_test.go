package export

import (
	"bytes"
	"encoding/csv"
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

	err = db.AutoMigrate(
		&models.User{}, &models.Reward{},
		&models.RewardRequest{}, &models.RewardRequestItem{},
		&models.PointsTransaction{},
	)
	require.NoError(t, err)

	return db
}

func createUser(t *testing.T, db *gorm.DB, username, number, phone string) models.User {
	user := models.User{
		Username:   username,
		Email:      username + "@example.com",
		UserNumber: number,
		Phone:      phone,
		IsActive:   true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func giveConfirmedPoints(t *testing.T, db *gorm.DB, userID uuid.UUID, value int) {
	tx := models.PointsTransaction{
		UserID:      userID,
		Value:       value,
		Date:        models.Date(2025, 1, 15),
		Description: "Invoice F0001",
		Type:        models.TransactionStandardPoints,
		Status:      models.StatusConfirmed,
	}
	require.NoError(t, db.Create(&tx).Error)
}

func TestNormalizePhone(t *testing.T) {
	svc := NewExportService(nil, "+420")

	assert.Equal(t, "+420777888999", svc.NormalizePhone("+420777888999"))
	assert.Equal(t, "+420777888999", svc.NormalizePhone("420777888999"))
	assert.Equal(t, "+420777888999", svc.NormalizePhone("777888999"))
	assert.Equal(t, "+420777888999", svc.NormalizePhone(" 777888999 "))
	assert.Equal(t, "", svc.NormalizePhone(""))
}

func TestWriteSMSBalanceCSV(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExportService(db, "+420")

	rich := createUser(t, db, "client1", "10001", "777888999")
	poor := createUser(t, db, "client2", "10002", "777000111")
	noPhone := createUser(t, db, "client3", "10003", "")
	giveConfirmedPoints(t, db, rich.ID, 500)
	giveConfirmedPoints(t, db, poor.ID, 50)
	giveConfirmedPoints(t, db, noPhone.ID, 800)

	var buf bytes.Buffer
	total, err := svc.WriteSMSBalanceCSV(&buf, 100, "You have %d points.")
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	reader := csv.NewReader(&buf)
	reader.Comma = ';'
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"+420777888999", "You have 500 points."}, rows[0])
}

func TestWriteSMSBalanceCSVSkipsInactiveUsers(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExportService(db, "+420")

	user := models.User{
		Username:   "client1",
		Email:      "client1@example.com",
		UserNumber: "10001",
		Phone:      "777888999",
		IsActive:   false,
	}
	require.NoError(t, db.Create(&user).Error)
	giveConfirmedPoints(t, db, user.ID, 500)

	var buf bytes.Buffer
	total, err := svc.WriteSMSBalanceCSV(&buf, 0, "You have %d points.")
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, buf.String())
}

func acceptedRequest(t *testing.T, db *gorm.DB, user models.User) models.RewardRequest {
	rw := models.Reward{Code: "R001", Name: "Coffee Machine", PointCost: 300, IsActive: true}
	require.NoError(t, db.Create(&rw).Error)

	requestedAt := models.Date(2025, 4, 10)
	request := models.RewardRequest{
		UserID:      user.ID,
		Status:      models.RequestAccepted,
		TotalPoints: 600,
		Description: "Deliver before noon",
		RequestedAt: &requestedAt,
	}
	require.NoError(t, db.Create(&request).Error)

	item := models.RewardRequestItem{
		RewardRequestID: request.ID,
		RewardID:        rw.ID,
		Quantity:        2,
		PointCost:       300,
	}
	require.NoError(t, db.Create(&item).Error)
	return request
}

func TestWriteTelemarketingCSV(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExportService(db, "+420")

	user := createUser(t, db, "client1", "10001", "")
	request := acceptedRequest(t, db, user)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteTelemarketingCSV(&buf, request.ID))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{
		"Client Number", "Client Name", "Reward Code", "Reward Name",
		"Quantity", "Point Cost", "Total Point Value",
		"Request ID", "Request Date", "Notes",
	}, rows[0])
	assert.Equal(t, []string{
		"10001", "client1", "R001", "Coffee Machine",
		"2", "300", "600",
		request.ID.String(), "2025-04-10", "Deliver before noon",
	}, rows[1])

	// The export marks the request fulfilled
	var reloaded models.RewardRequest
	require.NoError(t, db.First(&reloaded, "id = ?", request.ID).Error)
	assert.Equal(t, models.RequestFinished, reloaded.Status)
}

func TestWriteTelemarketingCSVRefusesUnaccepted(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExportService(db, "+420")

	user := createUser(t, db, "client1", "10001", "")
	request := models.RewardRequest{UserID: user.ID, Status: models.RequestPending}
	require.NoError(t, db.Create(&request).Error)

	var buf bytes.Buffer
	err := svc.WriteTelemarketingCSV(&buf, request.ID)
	require.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestTelemarketingFileName(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExportService(db, "+420")

	user := createUser(t, db, "Novák Syn", "10001", "")
	request := acceptedRequest(t, db, user)

	name, err := svc.TelemarketingFileName(request.ID)
	require.NoError(t, err)
	stamp := time.Now().Format("20060102")
	assert.Equal(t, fmt.Sprintf("reward-request-novak-syn-%s.csv", stamp), name)
}
