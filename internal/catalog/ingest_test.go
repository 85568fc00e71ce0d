// internal/catalog/ingest_test.go
package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicom-catalog/internal/models"
	"dicom-catalog/pkg/dicom"
)

func validMetadata() *dicom.Metadata {
	return &dicom.Metadata{
		Width:             intPtr(512),
		Height:            intPtr(512),
		Minimum:           floatPtr(0),
		Maximum:           floatPtr(255),
		Modality:          "CT",
		PatientName:       "Jane Doe",
		PatientBirthDate:  "1980.01.01",
		StudyName:         "S1",
		SeriesDescription: "Chest",
	}
}

func TestIngestCreatesFullHierarchy(t *testing.T) {
	db, svc := setupService(t)

	result, err := svc.Ingest(context.Background(), validMetadata(), "abc123", "scan.dcm")
	require.NoError(t, err)
	require.NotZero(t, result.FileID)

	var patient models.Patient
	require.NoError(t, db.Where("name = ?", "Jane Doe").First(&patient).Error)
	require.NotNil(t, patient.Birthdate)
	assert.Equal(t, "1980-01-01", *patient.Birthdate)

	var study models.Study
	require.NoError(t, db.Where("patient_id = ? AND study_name = ?", patient.ID, "S1").First(&study).Error)

	var modality models.Modality
	require.NoError(t, db.Where("name = ?", "CT").First(&modality).Error)

	var series models.Series
	require.NoError(t, db.First(&series, result.SeriesID).Error)
	assert.Equal(t, patient.ID, series.PatientID)
	assert.Equal(t, study.ID, series.StudyID)
	require.NotNil(t, series.ModalityID)
	assert.Equal(t, modality.ID, *series.ModalityID)
	assert.Equal(t, "Chest", series.SeriesDescription)
	assert.Equal(t, 512, series.Width)
	assert.Equal(t, 512, series.Height)

	var file models.File
	require.NoError(t, db.First(&file, result.FileID).Error)
	assert.Equal(t, "abc123", file.StoredName)
	assert.Equal(t, "scan.dcm", file.Filename)
	assert.Equal(t, series.ID, file.SeriesID)
	assert.Equal(t, study.ID, file.StudyID)
	assert.Equal(t, patient.ID, file.PatientID)
}

func TestIngestReusesExistingHierarchy(t *testing.T) {
	db, svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, validMetadata(), "ref-1", "a.dcm")
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, validMetadata(), "ref-2", "b.dcm")
	require.NoError(t, err)

	assert.EqualValues(t, 1, countRows(t, db, &models.Patient{}))
	assert.EqualValues(t, 1, countRows(t, db, &models.Study{}))
	assert.EqualValues(t, 1, countRows(t, db, &models.Modality{}))
	// A new series and file per upload, always.
	assert.EqualValues(t, 2, countRows(t, db, &models.Series{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.File{}))
}

func TestIngestDifferentStudyLabelCreatesStudy(t *testing.T) {
	db, svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, validMetadata(), "ref-1", "a.dcm")
	require.NoError(t, err)

	meta := validMetadata()
	meta.StudyName = "S2"
	_, err = svc.Ingest(ctx, meta, "ref-2", "b.dcm")
	require.NoError(t, err)

	assert.EqualValues(t, 1, countRows(t, db, &models.Patient{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.Study{}))
}

func TestIngestEmptyStudyLabelIsAKey(t *testing.T) {
	db, svc := setupService(t)
	ctx := context.Background()

	meta := validMetadata()
	meta.StudyName = ""
	_, err := svc.Ingest(ctx, meta, "ref-1", "a.dcm")
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, meta, "ref-2", "b.dcm")
	require.NoError(t, err)

	assert.EqualValues(t, 1, countRows(t, db, &models.Study{}))
}

func TestIngestBirthdateLastWriteWins(t *testing.T) {
	db, svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, validMetadata(), "ref-1", "a.dcm")
	require.NoError(t, err)

	meta := validMetadata()
	meta.PatientBirthDate = "1999.12.31"
	_, err = svc.Ingest(ctx, meta, "ref-2", "b.dcm")
	require.NoError(t, err)

	var patient models.Patient
	require.NoError(t, db.Where("name = ?", "Jane Doe").First(&patient).Error)
	require.NotNil(t, patient.Birthdate)
	assert.Equal(t, "1999-12-31", *patient.Birthdate)
}

func TestIngestAbsentBirthdateLeavesStoredValue(t *testing.T) {
	db, svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, validMetadata(), "ref-1", "a.dcm")
	require.NoError(t, err)

	meta := validMetadata()
	meta.PatientBirthDate = ""
	_, err = svc.Ingest(ctx, meta, "ref-2", "b.dcm")
	require.NoError(t, err)

	var patient models.Patient
	require.NoError(t, db.Where("name = ?", "Jane Doe").First(&patient).Error)
	require.NotNil(t, patient.Birthdate)
	assert.Equal(t, "1980-01-01", *patient.Birthdate)
}

func TestIngestModalityMatchIsCaseSensitive(t *testing.T) {
	db, svc := setupService(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Modality{Name: "ct"}).Error)

	_, err := svc.Ingest(ctx, validMetadata(), "ref-1", "a.dcm")
	require.NoError(t, err)

	assert.EqualValues(t, 2, countRows(t, db, &models.Modality{}))
}

func TestIngestRejectsIncompleteMetadata(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*dicom.Metadata)
	}{
		{"missing width", func(m *dicom.Metadata) { m.Width = nil }},
		{"missing height", func(m *dicom.Metadata) { m.Height = nil }},
		{"missing modality", func(m *dicom.Metadata) { m.Modality = "" }},
		{"missing patient name", func(m *dicom.Metadata) { m.PatientName = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, svc := setupService(t)

			meta := validMetadata()
			tc.mutate(meta)

			_, err := svc.Ingest(context.Background(), meta, "ref-1", "a.dcm")
			var incomplete *IncompleteMetadataError
			require.ErrorAs(t, err, &incomplete)

			assert.EqualValues(t, 0, countRows(t, db, &models.Patient{}))
			assert.EqualValues(t, 0, countRows(t, db, &models.Study{}))
			assert.EqualValues(t, 0, countRows(t, db, &models.Modality{}))
			assert.EqualValues(t, 0, countRows(t, db, &models.Series{}))
			assert.EqualValues(t, 0, countRows(t, db, &models.File{}))
		})
	}
}

func TestIngestRollsBackOnFailure(t *testing.T) {
	db, svc := setupService(t)
	ctx := context.Background()

	// Occupy the stored name so the final file insert violates uniqueness.
	_, err := svc.Ingest(ctx, validMetadata(), "dup", "a.dcm")
	require.NoError(t, err)

	meta := validMetadata()
	meta.PatientName = "John Roe"
	_, err = svc.Ingest(ctx, meta, "dup", "b.dcm")
	require.Error(t, err)

	// Nothing from the failed ingestion survives, not even the new patient.
	var n int64
	require.NoError(t, db.Model(&models.Patient{}).Where("name = ?", "John Roe").Count(&n).Error)
	assert.EqualValues(t, 0, n)
	assert.EqualValues(t, 1, countRows(t, db, &models.Series{}))
	assert.EqualValues(t, 1, countRows(t, db, &models.File{}))
}

func TestNormalizeBirthdate(t *testing.T) {
	assert.Nil(t, normalizeBirthdate(""))
	require.NotNil(t, normalizeBirthdate("1980.01.01"))
	assert.Equal(t, "1980-01-01", *normalizeBirthdate("1980.01.01"))
	assert.Equal(t, "1980-01-01", *normalizeBirthdate("1980-01-01"))
}

func TestIngestErrorsAreNotFoundCompatible(t *testing.T) {
	err := error(&DependencyNotFoundError{Entity: "study", ID: 7})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "study")
}
