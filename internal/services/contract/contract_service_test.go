package contract

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

	err = db.AutoMigrate(&models.User{}, &models.Brand{}, &models.UserContract{}, &models.BrandBonus{})
	require.NoError(t, err)

	return db
}

func createTestUser(t *testing.T, db *gorm.DB) models.User {
	user := models.User{Username: "client1", Email: "c1@example.com", UserNumber: "10001"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createContract(t *testing.T, db *gorm.DB, userID uuid.UUID, from, to time.Time, active bool) models.UserContract {
	contract := models.UserContract{UserID: userID, DateFrom: from, DateTo: to, IsActive: active}
	require.NoError(t, db.Create(&contract).Error)
	return contract
}

func TestResolveBoundsAreInclusive(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db)
	svc := NewContractService(db)

	contract := createContract(t, db, user.ID, models.Date(2025, 3, 1), models.Date(2025, 3, 31), true)

	for _, day := range []time.Time{models.Date(2025, 3, 1), models.Date(2025, 3, 15), models.Date(2025, 3, 31)} {
		got, err := svc.Resolve(user.ID, day)
		require.NoError(t, err)
		require.NotNil(t, got, "expected contract on %s", day.Format("2006-01-02"))
		assert.Equal(t, contract.ID, got.ID)
	}

	for _, day := range []time.Time{models.Date(2025, 2, 28), models.Date(2025, 4, 1)} {
		got, err := svc.Resolve(user.ID, day)
		require.NoError(t, err)
		assert.Nil(t, got, "expected no contract on %s", day.Format("2006-01-02"))
	}
}

func TestResolveMissIsNotAnError(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db)
	svc := NewContractService(db)

	got, err := svc.Resolve(user.ID, models.Date(2025, 6, 1))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolveIgnoresInactiveContracts(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db)
	svc := NewContractService(db)

	created := createContract(t, db, user.ID, models.Date(2025, 1, 1), models.Date(2025, 12, 31), false)

	// The flag must survive the insert as false
	var reloaded models.UserContract
	require.NoError(t, db.First(&reloaded, "id = ?", created.ID).Error)
	assert.False(t, reloaded.IsActive)

	got, err := svc.Resolve(user.ID, models.Date(2025, 6, 1))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolveOverlapPicksLatestStart(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db)
	svc := NewContractService(db)

	createContract(t, db, user.ID, models.Date(2025, 1, 1), models.Date(2025, 12, 31), true)
	newer := createContract(t, db, user.ID, models.Date(2025, 6, 1), models.Date(2025, 12, 31), true)

	got, err := svc.Resolve(user.ID, models.Date(2025, 7, 1))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)
}

func TestResolvePreloadsBrandBonuses(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db)
	svc := NewContractService(db)

	brand := models.Brand{Name: "Aurora", Prefix: "AU"}
	require.NoError(t, db.Create(&brand).Error)

	contract := createContract(t, db, user.ID, models.Date(2025, 1, 1), models.Date(2025, 12, 31), true)
	bonus := models.BrandBonus{ContractID: contract.ID, BrandID: brand.ID, PointsRatio: 0.5}
	require.NoError(t, db.Create(&bonus).Error)

	got, err := svc.Resolve(user.ID, models.Date(2025, 6, 1))
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.BrandBonuses, 1)

	found := BrandBonusFor(got, brand.ID)
	require.NotNil(t, found)
	assert.Equal(t, 0.5, found.PointsRatio)

	assert.Nil(t, BrandBonusFor(got, uuid.New()))
}

func TestActiveContractIgnoresDateCoverage(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db)
	svc := NewContractService(db)

	// Expired but still flagged active
	contract := createContract(t, db, user.ID, models.Date(2024, 1, 1), models.Date(2024, 12, 31), true)

	got, err := svc.ActiveContract(user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, contract.ID, got.ID)
}
