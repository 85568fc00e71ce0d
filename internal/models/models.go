// internal/models/models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Patient is the root of the catalog hierarchy. Birthdate is stored as a
// plain "YYYY-MM-DD" string, matching what the extraction tool reports.
type Patient struct {
	ID        uint      `gorm:"primarykey" json:"patientid"`
	Name      string    `gorm:"not null" json:"name"`
	Birthdate *string   `json:"birthdate"`
	CreatedAt time.Time `json:"date_created"`

	Studies []Study  `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"studies,omitempty"`
	Series  []Series `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"series,omitempty"`
	Files   []File   `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"files,omitempty"`
}

type Modality struct {
	ID   uint   `gorm:"primarykey" json:"modalityid"`
	Name string `gorm:"not null" json:"name"`

	Series []Series `gorm:"foreignKey:ModalityID;constraint:OnDelete:SET NULL" json:"series,omitempty"`
}

type Study struct {
	ID        uint      `gorm:"primarykey" json:"studyid"`
	PatientID uint      `gorm:"not null;index" json:"patientid"`
	StudyName string    `json:"studyname"`
	CreatedAt time.Time `json:"date_created"`

	Series []Series `gorm:"foreignKey:StudyID;constraint:OnDelete:CASCADE" json:"series,omitempty"`
	Files  []File   `gorm:"foreignKey:StudyID;constraint:OnDelete:CASCADE" json:"files,omitempty"`
}

// Series carries denormalized copies of its ancestor IDs; the catalog keeps
// them consistent with the parent Study at write time. ModalityID is nullable
// so a series survives its modality being deleted.
type Series struct {
	ID                uint      `gorm:"primarykey" json:"seriesid"`
	PatientID         uint      `gorm:"not null;index" json:"patientid"`
	StudyID           uint      `gorm:"not null;index" json:"studyid"`
	ModalityID        *uint     `gorm:"index" json:"modalityid"`
	SeriesName        string    `json:"seriesname"`
	SeriesDescription string    `json:"seriesdescription"`
	Width             int       `json:"width"`
	Height            int       `json:"height"`
	Minimum           float64   `json:"minimum"`
	Maximum           float64   `json:"maximum"`
	CreatedAt         time.Time `json:"date_created"`

	Modality *Modality `gorm:"foreignKey:ModalityID" json:"modality,omitempty"`
	Files    []File    `gorm:"foreignKey:SeriesID;constraint:OnDelete:CASCADE" json:"files,omitempty"`
}

// File records one stored artifact. StoredName is the internal object name in
// blob storage; Filename is the name the uploader gave and what users see.
type File struct {
	ID         uint      `gorm:"primarykey" json:"fileid"`
	SeriesID   uint      `gorm:"not null;index" json:"seriesid"`
	StudyID    uint      `gorm:"not null;index" json:"studyid"`
	PatientID  uint      `gorm:"not null;index" json:"patientid"`
	StoredName string    `gorm:"not null;uniqueIndex" json:"filepath"`
	Filename   string    `gorm:"not null" json:"filename"`
	CreatedAt  time.Time `json:"date_created"`
}
