package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// The two idempotency backstops of the ingestion and goal engines live
// in the schema: one document per (invoice_number, invoice_type), one
// turnover row per (invoice, brand), one evaluation per goal period.
func createIdempotencyIndexesMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_idempotency_indexes",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE UNIQUE INDEX IF NOT EXISTS idx_invoice_number_type
					ON invoices (invoice_number, invoice_type);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_invoice_brand
					ON invoice_brand_turnovers (invoice_id, brand_id);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_goal_period
					ON goal_evaluations (goal_id, period_start, period_end);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DROP INDEX IF EXISTS idx_invoice_number_type;
				DROP INDEX IF EXISTS idx_invoice_brand;
				DROP INDEX IF EXISTS idx_goal_period;
			`).Error
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createIdempotencyIndexesMigration())
}
