// internal/catalog/service.go
package catalog

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dicom-catalog/internal/models"
)

// Service is the typed query/mutation facade over the catalog tables. It owns
// no connection state itself; the shared handle is passed in at construction.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log}
}

// ListPatients returns every patient with studies, series (with modality) and
// files eagerly loaded.
func (s *Service) ListPatients(ctx context.Context) ([]models.Patient, error) {
	var patients []models.Patient
	err := s.db.WithContext(ctx).
		Preload("Studies.Series.Files").
		Preload("Studies.Series.Modality").
		Find(&patients).Error
	return patients, err
}

func (s *Service) ListStudies(ctx context.Context) ([]models.Study, error) {
	var studies []models.Study
	err := s.db.WithContext(ctx).
		Preload("Series.Files").
		Preload("Series.Modality").
		Find(&studies).Error
	return studies, err
}

func (s *Service) ListSeries(ctx context.Context) ([]models.Series, error) {
	var series []models.Series
	err := s.db.WithContext(ctx).
		Preload("Modality").
		Preload("Files").
		Find(&series).Error
	return series, err
}

func (s *Service) ListModalities(ctx context.Context) ([]models.Modality, error) {
	var modalities []models.Modality
	err := s.db.WithContext(ctx).Preload("Series").Find(&modalities).Error
	return modalities, err
}

// ListFiles returns the files belonging to one series.
func (s *Service) ListFiles(ctx context.Context, seriesID uint) ([]models.File, error) {
	var files []models.File
	err := s.db.WithContext(ctx).Where("series_id = ?", seriesID).Find(&files).Error
	return files, err
}

// FileDetails is the flattened file listing joined with its patient and
// series for display. Absent join legs are substituted with placeholder
// strings; that substitution is the display contract, not an error.
type FileDetails struct {
	FileID      uint   `json:"fileid"`
	StoredName  string `json:"filepath"`
	Filename    string `json:"filename"`
	PatientName string `json:"patientName"`
	Birthdate   string `json:"birthdate"`
	SeriesName  string `json:"seriesName"`
}

func (s *Service) ListFileDetails(ctx context.Context) ([]FileDetails, error) {
	var rows []struct {
		FileID      uint
		StoredName  string
		Filename    string
		PatientName *string
		Birthdate   *string
		SeriesDesc  *string
	}
	err := s.db.WithContext(ctx).
		Table("files").
		Select("files.id AS file_id, files.stored_name, files.filename, patients.name AS patient_name, patients.birthdate, series.series_description AS series_desc").
		Joins("LEFT JOIN patients ON patients.id = files.patient_id").
		Joins("LEFT JOIN series ON series.id = files.series_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	details := make([]FileDetails, 0, len(rows))
	for _, r := range rows {
		d := FileDetails{
			FileID:      r.FileID,
			StoredName:  r.StoredName,
			Filename:    r.Filename,
			PatientName: "Unknown Patient",
			Birthdate:   "Unknown Date",
			SeriesName:  "Unknown Series",
		}
		if r.PatientName != nil && *r.PatientName != "" {
			d.PatientName = *r.PatientName
		}
		if r.Birthdate != nil && *r.Birthdate != "" {
			d.Birthdate = *r.Birthdate
		}
		if r.SeriesDesc != nil && *r.SeriesDesc != "" {
			d.SeriesName = *r.SeriesDesc
		}
		details = append(details, d)
	}
	return details, nil
}

// GetFileByStoredName resolves a stored-artifact reference to its file row.
func (s *Service) GetFileByStoredName(ctx context.Context, storedName string) (*models.File, error) {
	var file models.File
	err := s.db.WithContext(ctx).Where("stored_name = ?", storedName).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (s *Service) CreatePatient(ctx context.Context, name, birthdate string) (*models.Patient, error) {
	patient := models.Patient{Name: name}
	if birthdate != "" {
		patient.Birthdate = &birthdate
	}
	if err := s.db.WithContext(ctx).Create(&patient).Error; err != nil {
		return nil, err
	}
	return &patient, nil
}

func (s *Service) CreateStudy(ctx context.Context, patientID uint, studyName string) (*models.Study, error) {
	if err := s.exists(ctx, &models.Patient{}, patientID, "patient"); err != nil {
		return nil, err
	}
	study := models.Study{PatientID: patientID, StudyName: studyName}
	if err := s.db.WithContext(ctx).Create(&study).Error; err != nil {
		return nil, err
	}
	return &study, nil
}

func (s *Service) CreateModality(ctx context.Context, name string) (*models.Modality, error) {
	modality := models.Modality{Name: name}
	if err := s.db.WithContext(ctx).Create(&modality).Error; err != nil {
		return nil, err
	}
	return &modality, nil
}

// CreateSeries validates the referenced study (and modality, when given) and
// keeps the denormalized patient identifier consistent with the parent study.
func (s *Service) CreateSeries(ctx context.Context, studyID, patientID uint, modalityID *uint, name, description string) (*models.Series, error) {
	var study models.Study
	err := s.db.WithContext(ctx).First(&study, studyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ReferenceNotFoundError{Entity: "study", ID: studyID}
	}
	if err != nil {
		return nil, err
	}
	if patientID != study.PatientID {
		return nil, ErrHierarchyMismatch
	}
	if modalityID != nil {
		if err := s.exists(ctx, &models.Modality{}, *modalityID, "modality"); err != nil {
			return nil, err
		}
	}

	series := models.Series{
		PatientID:         study.PatientID,
		StudyID:           study.ID,
		ModalityID:        modalityID,
		SeriesName:        name,
		SeriesDescription: description,
	}
	if err := s.db.WithContext(ctx).Create(&series).Error; err != nil {
		return nil, err
	}
	return &series, nil
}

// RecordFile links an already-stored artifact to a series. The supplied
// study/patient identifiers must agree with the series' ancestor chain.
func (s *Service) RecordFile(ctx context.Context, seriesID, studyID, patientID uint, filename, storedName string) (*models.File, error) {
	if err := s.exists(ctx, &models.Patient{}, patientID, "patient"); err != nil {
		return nil, err
	}
	if err := s.exists(ctx, &models.Study{}, studyID, "study"); err != nil {
		return nil, err
	}
	var series models.Series
	err := s.db.WithContext(ctx).First(&series, seriesID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ReferenceNotFoundError{Entity: "series", ID: seriesID}
	}
	if err != nil {
		return nil, err
	}
	if series.StudyID != studyID || series.PatientID != patientID {
		return nil, ErrHierarchyMismatch
	}

	file := models.File{
		SeriesID:   series.ID,
		StudyID:    series.StudyID,
		PatientID:  series.PatientID,
		StoredName: storedName,
		Filename:   filename,
	}
	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// DeletePatient removes a patient and all descendant studies, series and
// files. The cascade is explicit so it holds regardless of whether the
// storage engine enforces referential actions.
func (s *Service) DeletePatient(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Patient{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("patient_id = ?", id).Delete(&models.File{}).Error; err != nil {
			return err
		}
		if err := tx.Where("patient_id = ?", id).Delete(&models.Series{}).Error; err != nil {
			return err
		}
		return tx.Where("patient_id = ?", id).Delete(&models.Study{}).Error
	})
}

func (s *Service) DeleteStudy(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Study{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("study_id = ?", id).Delete(&models.File{}).Error; err != nil {
			return err
		}
		return tx.Where("study_id = ?", id).Delete(&models.Series{}).Error
	})
}

func (s *Service) DeleteSeries(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Series{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("series_id = ?", id).Delete(&models.File{}).Error
	})
}

// DeleteModality detaches dependent series (modality reference cleared)
// rather than deleting them.
func (s *Service) DeleteModality(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Modality{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Series{}).Where("modality_id = ?", id).Update("modality_id", nil).Error
	})
}

// exists checks a primary key and reports a ReferenceNotFoundError naming the
// entity when the row is absent.
func (s *Service) exists(ctx context.Context, model interface{}, id uint, entity string) error {
	err := s.db.WithContext(ctx).First(model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ReferenceNotFoundError{Entity: entity, ID: id}
	}
	return err
}
