package model

import (
	"time"

	"github.com/google/uuid"
)

// Location is a physical till / boutique a session can be opened against.
type Location struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code      string    `gorm:"type:varchar(80);not null;uniqueIndex"`
	Name      string    `gorm:"not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Location) TableName() string { return "locations" }
