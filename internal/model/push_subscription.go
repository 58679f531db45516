package model

import "time"

// PushSubscription is a browser push endpoint watching a set of chargers for
// availability.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey;size:512"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Chargers []*Charger `gorm:"many2many:subscription_charger_mapping;"`
}
