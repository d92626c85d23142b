package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createLedgerTablesMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_ledger_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS points_transactions (
					id UUID PRIMARY KEY,
					user_id UUID NOT NULL,
					value INT NOT NULL,
					date DATE NOT NULL,
					description VARCHAR(100),
					type VARCHAR(20) NOT NULL,
					status VARCHAR(20) NOT NULL,
					brand_id UUID,
					reward_request_id UUID,
					file_upload_id UUID,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
				CREATE INDEX IF NOT EXISTS idx_points_transactions_user_status
					ON points_transactions (user_id, status);
				CREATE INDEX IF NOT EXISTS idx_points_transactions_date
					ON points_transactions (date);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS points_transactions").Error
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createLedgerTablesMigration())
}
