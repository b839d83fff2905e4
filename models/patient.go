package models

import (
	"time"

	"gorm.io/datatypes"
)

// Patient holds one patient record. The caller-supplied payload is stored
// as-is in Fields; the service imposes no schema on it beyond non-emptiness.
type Patient struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Fields    datatypes.JSON `gorm:"not null"`
	Reports   []Report       `gorm:"foreignKey:PatientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
