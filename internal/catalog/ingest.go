// internal/catalog/ingest.go
package catalog

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dicom-catalog/internal/models"
	"dicom-catalog/pkg/dicom"
)

// IngestResult reports what one reconciled upload produced.
type IngestResult struct {
	FileID    uint           `json:"file_id"`
	PatientID uint           `json:"patientid"`
	StudyID   uint           `json:"studyid"`
	SeriesID  uint           `json:"seriesid"`
	Metadata  *dicom.Metadata `json:"metadata"`
}

// Ingest reconciles one extracted metadata record against the catalog:
// find-or-create the owning Patient, Study and Modality, then create a fresh
// Series and File row. All steps run in one transaction; any failure rolls
// the whole ingestion back.
//
// Patient matching is by exact name. Two different patients sharing a name
// will collapse into one record; see DESIGN.md for why this is kept as-is.
func (s *Service) Ingest(ctx context.Context, meta *dicom.Metadata, storedName, filename string) (*IngestResult, error) {
	var missing []string
	if meta.Width == nil {
		missing = append(missing, "width")
	}
	if meta.Height == nil {
		missing = append(missing, "height")
	}
	if meta.Modality == "" {
		missing = append(missing, "Modality")
	}
	if meta.PatientName == "" {
		missing = append(missing, "PatientName")
	}
	if len(missing) > 0 {
		return nil, &IncompleteMetadataError{Missing: missing}
	}

	birthdate := normalizeBirthdate(meta.PatientBirthDate)

	result := &IngestResult{Metadata: meta}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		patient, err := resolvePatient(tx, meta.PatientName, birthdate)
		if err != nil {
			return err
		}

		study, err := resolveStudy(tx, patient.ID, meta.StudyName)
		if err != nil {
			return err
		}

		modality, err := resolveModality(tx, meta.Modality)
		if err != nil {
			return err
		}

		// Defensive: the identifiers above were just produced in-process,
		// but the same chain runs when identifiers arrive from outside.
		if err := dependencyExists(tx, &models.Study{}, study.ID, "study"); err != nil {
			return err
		}
		if err := dependencyExists(tx, &models.Modality{}, modality.ID, "modality"); err != nil {
			return err
		}

		series := models.Series{
			PatientID:         patient.ID,
			StudyID:           study.ID,
			ModalityID:        &modality.ID,
			SeriesName:        meta.SeriesName,
			SeriesDescription: meta.SeriesDescription,
			Width:             *meta.Width,
			Height:            *meta.Height,
		}
		if meta.Minimum != nil {
			series.Minimum = *meta.Minimum
		}
		if meta.Maximum != nil {
			series.Maximum = *meta.Maximum
		}
		if err := tx.Create(&series).Error; err != nil {
			return err
		}

		if err := dependencyExists(tx, &models.Series{}, series.ID, "series"); err != nil {
			return err
		}

		file := models.File{
			SeriesID:   series.ID,
			StudyID:    study.ID,
			PatientID:  patient.ID,
			StoredName: storedName,
			Filename:   filename,
		}
		if err := tx.Create(&file).Error; err != nil {
			return err
		}

		result.FileID = file.ID
		result.PatientID = patient.ID
		result.StudyID = study.ID
		result.SeriesID = series.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ingested DICOM file",
		zap.Uint("file_id", result.FileID),
		zap.Uint("patient_id", result.PatientID),
		zap.Uint("series_id", result.SeriesID),
		zap.String("stored_name", storedName))
	return result, nil
}

// resolvePatient finds a patient by exact name or creates one. When the
// record supplies a birthdate for an existing patient, the stored value is
// overwritten unconditionally (last write wins).
func resolvePatient(tx *gorm.DB, name string, birthdate *string) (*models.Patient, error) {
	var patient models.Patient
	err := tx.Where("name = ?", name).First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		patient = models.Patient{Name: name, Birthdate: birthdate}
		if err := tx.Create(&patient).Error; err != nil {
			return nil, err
		}
		return &patient, nil
	}
	if err != nil {
		return nil, err
	}
	if birthdate != nil {
		if err := tx.Model(&patient).Update("birthdate", *birthdate).Error; err != nil {
			return nil, err
		}
	}
	return &patient, nil
}

// resolveStudy finds a study by (patient, label) or creates one. An empty
// label is a valid key and matches other empty-labeled studies.
func resolveStudy(tx *gorm.DB, patientID uint, studyName string) (*models.Study, error) {
	if err := dependencyExists(tx, &models.Patient{}, patientID, "patient"); err != nil {
		return nil, err
	}
	var study models.Study
	err := tx.Where("patient_id = ? AND study_name = ?", patientID, studyName).First(&study).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		study = models.Study{PatientID: patientID, StudyName: studyName}
		if err := tx.Create(&study).Error; err != nil {
			return nil, err
		}
		return &study, nil
	}
	if err != nil {
		return nil, err
	}
	return &study, nil
}

// resolveModality finds a modality by exact, case-sensitive name or creates
// one. "CT" and "ct" are distinct modalities.
func resolveModality(tx *gorm.DB, name string) (*models.Modality, error) {
	var modality models.Modality
	err := tx.Where("name = ?", name).First(&modality).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		modality = models.Modality{Name: name}
		if err := tx.Create(&modality).Error; err != nil {
			return nil, err
		}
		return &modality, nil
	}
	if err != nil {
		return nil, err
	}
	return &modality, nil
}

func dependencyExists(tx *gorm.DB, model interface{}, id uint, entity string) error {
	err := tx.First(model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &DependencyNotFoundError{Entity: entity, ID: id}
	}
	return err
}

// normalizeBirthdate converts the tool's dotted date form ("1980.01.01") to
// the stored hyphenated form ("1980-01-01"). Empty input stays unset.
func normalizeBirthdate(raw string) *string {
	if raw == "" {
		return nil
	}
	normalized := strings.ReplaceAll(raw, ".", "-")
	return &normalized
}
