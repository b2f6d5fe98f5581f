package db

import (
	"graindesk/internal/models"
)

// AutoMigrate creates or extends the schema for every desk entity. Order
// follows the reference graph so foreign keys resolve on a fresh database.
func (d *DB) AutoMigrate() error {
	if d == nil || d.Gorm == nil {
		return nil
	}
	return d.Gorm.AutoMigrate(
		&models.Client{},
		&models.Vessel{},
		&models.Sale{},
		&models.SaleCoverage{},
		&models.PurchaseCoverage{},
		&models.ResaleListing{},
		&models.Bid{},
		&models.Transaction{},
		&models.ReferencePrice{},
		&models.SyncState{},
		&models.Notification{},
	)
}
