// internal/handlers/files.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dicom-catalog/internal/catalog"
	"dicom-catalog/internal/storage"
)

// DownloadFile streams a stored artifact back to the client. The database is
// the source of truth for the display name: the Content-Disposition filename
// is the original upload name, never the internal object name.
func DownloadFile(svc *catalog.Service, blobs storage.BlobStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		storedName := c.Param("stored")

		file, err := svc.GetFileByStoredName(c.Request.Context(), storedName)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up file"})
			return
		}

		reader, size, err := blobs.Get(c.Request.Context(), file.StoredName)
		if err != nil {
			if errors.Is(err, storage.ErrObjectMissing) {
				// Row exists but the bytes are gone: storage and database
				// have drifted. Surfaced distinctly from plain not-found.
				log.Error("stored artifact missing", zap.String("stored_name", storedName), zap.Uint("file_id", file.ID))
				c.JSON(http.StatusInternalServerError, gin.H{"error": catalog.ErrArtifactMissing.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
			return
		}
		defer reader.Close()

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
		c.DataFromReader(http.StatusOK, size, "application/dicom", reader, nil)
	}
}
