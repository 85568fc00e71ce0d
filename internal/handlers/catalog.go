// internal/handlers/catalog.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dicom-catalog/internal/catalog"
)

func ListPatients(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		patients, err := svc.ListPatients(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch patients"})
			return
		}
		c.JSON(http.StatusOK, patients)
	}
}

func ListStudies(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		studies, err := svc.ListStudies(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch studies"})
			return
		}
		c.JSON(http.StatusOK, studies)
	}
}

func ListSeries(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		series, err := svc.ListSeries(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch series"})
			return
		}
		c.JSON(http.StatusOK, series)
	}
}

func ListModalities(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		modalities, err := svc.ListModalities(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch modalities"})
			return
		}
		c.JSON(http.StatusOK, modalities)
	}
}

// ListFiles returns the files of one series (?seriesid=), or the flattened
// display listing when the details flag is set.
func ListFiles(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("details") == "true" {
			details, err := svc.ListFileDetails(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch file details"})
				return
			}
			c.JSON(http.StatusOK, details)
			return
		}

		seriesID, err := strconv.ParseUint(c.Query("seriesid"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "seriesid query parameter required"})
			return
		}
		files, err := svc.ListFiles(c.Request.Context(), uint(seriesID))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch files"})
			return
		}
		c.JSON(http.StatusOK, files)
	}
}

type createPatientRequest struct {
	Name      string `json:"name" binding:"required"`
	Birthdate string `json:"birthdate"`
}

func CreatePatient(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPatientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		patient, err := svc.CreatePatient(c.Request.Context(), req.Name, req.Birthdate)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create patient"})
			return
		}
		c.JSON(http.StatusCreated, patient)
	}
}

type createStudyRequest struct {
	PatientID uint   `json:"patientid" binding:"required"`
	StudyName string `json:"studyname"`
}

func CreateStudy(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createStudyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		study, err := svc.CreateStudy(c.Request.Context(), req.PatientID, req.StudyName)
		if err != nil {
			respondMutationError(c, err)
			return
		}
		c.JSON(http.StatusCreated, study)
	}
}

type createModalityRequest struct {
	Name string `json:"name" binding:"required"`
}

func CreateModality(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createModalityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		modality, err := svc.CreateModality(c.Request.Context(), req.Name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create modality"})
			return
		}
		c.JSON(http.StatusCreated, modality)
	}
}

type createSeriesRequest struct {
	StudyID           uint   `json:"studyid" binding:"required"`
	PatientID         uint   `json:"patientid" binding:"required"`
	ModalityID        *uint  `json:"modalityid"`
	SeriesName        string `json:"seriesname"`
	SeriesDescription string `json:"seriesdescription"`
}

func CreateSeries(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSeriesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		series, err := svc.CreateSeries(c.Request.Context(), req.StudyID, req.PatientID, req.ModalityID, req.SeriesName, req.SeriesDescription)
		if err != nil {
			respondMutationError(c, err)
			return
		}
		c.JSON(http.StatusCreated, series)
	}
}

type recordFileRequest struct {
	SeriesID   uint   `json:"seriesid" binding:"required"`
	StudyID    uint   `json:"studyid" binding:"required"`
	PatientID  uint   `json:"patientid" binding:"required"`
	Filename   string `json:"filename" binding:"required"`
	StoredName string `json:"filepath" binding:"required"`
}

func RecordFile(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recordFileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		file, err := svc.RecordFile(c.Request.Context(), req.SeriesID, req.StudyID, req.PatientID, req.Filename, req.StoredName)
		if err != nil {
			respondMutationError(c, err)
			return
		}
		c.JSON(http.StatusCreated, file)
	}
}

// DeleteEntity maps :id onto the matching cascade/detach delete.
func DeleteEntity(del func(ctx context.Context, id uint) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
			return
		}
		if err := del(c.Request.Context(), uint(id)); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func respondMutationError(c *gin.Context, err error) {
	var refErr *catalog.ReferenceNotFoundError
	if errors.As(err, &refErr) {
		c.JSON(http.StatusNotFound, gin.H{"error": refErr.Error()})
		return
	}
	if errors.Is(err, catalog.ErrHierarchyMismatch) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Operation failed"})
}
