package models

import "time"

// Report is one extracted document linked to a patient. RawText is the
// flattened OCR output; StructuredData is the completion model's response,
// stored verbatim and never updated afterwards.
type Report struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PatientID      uint   `gorm:"index;not null"`
	FileCategory   string `gorm:"size:64;not null"`
	FileName       string `gorm:"size:255;not null"`
	RawText        string `gorm:"type:text"`
	StructuredData string `gorm:"type:text"`
}
