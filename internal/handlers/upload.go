// internal/handlers/upload.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"dicom-catalog/internal/catalog"
	"dicom-catalog/internal/storage"
	"dicom-catalog/pkg/dicom"
)

// UploadDICOM accepts one DICOM file, runs the extraction tool, stores the
// bytes in blob storage and reconciles the metadata into the catalog.
func UploadDICOM(svc *catalog.Service, extractor *dicom.Extractor, blobs storage.BlobStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("dicomFile")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No DICOM file provided"})
			return
		}

		tempPath := filepath.Join(os.TempDir(), fmt.Sprintf("upload_%s", uuid.New().String()))
		if err := c.SaveUploadedFile(file, tempPath); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
			return
		}
		defer os.Remove(tempPath)

		meta, err := extractor.Extract(c.Request.Context(), tempPath)
		if err != nil {
			var procErr *dicom.ProcessError
			if errors.As(err, &procErr) {
				log.Error("extraction process failed", zap.String("filename", file.Filename), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process DICOM file", "details": procErr.Stderr})
				return
			}
			log.Error("extraction output unparsable", zap.String("filename", file.Filename), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse DICOM output"})
			return
		}

		storedName := storage.GenerateObjectName(file.Filename)
		if err := blobs.Upload(c.Request.Context(), storedName, tempPath, "application/dicom"); err != nil {
			log.Error("artifact upload failed", zap.String("stored_name", storedName), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload to storage"})
			return
		}

		result, err := svc.Ingest(c.Request.Context(), meta, storedName, file.Filename)
		if err != nil {
			var incomplete *catalog.IncompleteMetadataError
			if errors.As(err, &incomplete) {
				// The artifact is orphaned without a row; drop it again.
				_ = blobs.Delete(c.Request.Context(), storedName)
				c.JSON(http.StatusBadRequest, gin.H{"error": "DICOM data incomplete", "details": incomplete.Error()})
				return
			}
			_ = blobs.Delete(c.Request.Context(), storedName)
			log.Error("ingestion failed", zap.String("stored_name", storedName), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save DICOM metadata"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":  "DICOM file processed and saved successfully",
			"file_id":  result.FileID,
			"filepath": storedName,
			"metadata": result.Metadata,
		})
	}
}
