package migrations

import (
	"log"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// migrationsList is populated by the init funcs of the individual
// migration files, in file order.
var migrationsList []*gormigrate.Migration

// RunMigrations applies every registered migration that has not run yet.
func RunMigrations(db *gorm.DB) error {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, migrationsList)
	if err := migrator.Migrate(); err != nil {
		return err
	}
	log.Printf("Applied %d registered migrations", len(migrationsList))
	return nil
}
