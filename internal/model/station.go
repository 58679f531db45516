package model

import "time"

// Station is a charging site. It owns its chargers: deleting a station removes
// them together with their sessions.
type Station struct {
	ID             int64   `gorm:"primaryKey"`
	Code           *string `gorm:"uniqueIndex;size:64"`
	Name           string  `gorm:"size:256;not null"`
	Address        string  `gorm:"size:512;not null"`
	Latitude       *float64
	Longitude      *float64
	OperatorName   string `gorm:"size:128"`
	ContactNumber  string `gorm:"size:64"`
	OperatingHours string `gorm:"size:128"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Associations
	Chargers []Charger `gorm:"foreignKey:StationID"`
}

// HasLocation reports whether both coordinates are known.
func (s *Station) HasLocation() bool {
	return s.Latitude != nil && s.Longitude != nil
}
