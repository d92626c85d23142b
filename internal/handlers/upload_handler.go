package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/primabonus/backend/internal/jobs"
	"github.com/primabonus/backend/internal/models"
	"github.com/primabonus/backend/internal/services/ingest"
	"gorm.io/gorm"
)

// UploadHandler receives ERP statement files and hands them to the
// background ingestion pipeline.
type UploadHandler struct {
	db        *gorm.DB
	uploadJob *jobs.UploadJob
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(db *gorm.DB, uploadJob *jobs.UploadJob) *UploadHandler {
	return &UploadHandler{
		db:        db,
		uploadJob: uploadJob,
	}
}

// Upload accepts one statement file and queues it for processing. The
// schema is validated up front so obviously broken files fail fast; the
// heavy two-pass processing happens in the background.
func (h *UploadHandler) Upload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open file"})
		return
	}
	defer file.Close()

	rs, err := ingest.ReadCSV(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := ingest.ValidateColumns(rs); err != nil {
		var schemaErr *ingest.SchemaError
		if errors.As(err, &schemaErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": schemaErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate file"})
		return
	}

	upload := models.FileUpload{
		FileName:     fileHeader.Filename,
		Status:       models.UploadPending,
		UploadedByID: &userID,
	}
	if err := h.db.Create(&upload).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record upload"})
		return
	}

	if _, err := h.uploadJob.Enqueue(upload.ID, rs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue upload"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"upload": upload})
}

// GetUpload returns one upload's processing state
func (h *UploadHandler) GetUpload(c *gin.Context) {
	uploadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload ID"})
		return
	}

	var upload models.FileUpload
	if err := h.db.First(&upload, "id = ?", uploadID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"upload": upload})
}

// ListUploads lists uploads, newest first
func (h *UploadHandler) ListUploads(c *gin.Context) {
	page, pageSize := pagination(c)

	var uploads []models.FileUpload
	var total int64

	if err := h.db.Model(&models.FileUpload{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count uploads"})
		return
	}
	err := h.db.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&uploads).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load uploads"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploads":   uploads,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
