package routes

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"document-search-platform/internal/config"
	"document-search-platform/internal/queue"
	"document-search-platform/models"
	"document-search-platform/services"
	"document-search-platform/utils"
)

// SetupDocumentRoutes registers upload and single-document endpoints.
func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, pipeline *services.IngestionPipeline, retrieval *services.RetrievalService, queueClient *asynq.Client) {
	api := router.Group("/api")
	api.POST("/documents", HandleUpload(cfg, pipeline, queueClient))
	api.GET("/documents/:id", HandleGetDocument(retrieval))
}

// HandleUpload ingests a multipart upload (file + title + tags). Files above
// the sync processing limit have the raw object written inline and the index
// work deferred to the queue worker.
func HandleUpload(cfg *config.Config, pipeline *services.IngestionPipeline, queueClient *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large",
				"File size exceeds maximum limit", nil)
			return
		}

		title := strings.TrimSpace(c.PostForm("title"))
		if title == "" {
			utils.RespondWithBadRequest(c, "A document title is required", nil)
			return
		}
		tags := strings.TrimSpace(c.PostForm("tags"))

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "no_file",
				"No document file provided", nil)
			return
		}
		defer file.Close()

		if header.Size > cfg.MaxFileSize {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large",
				"File size exceeds maximum limit", nil)
			return
		}

		raw, err := io.ReadAll(file)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read uploaded file", nil)
			return
		}
		if !supportedFormat(raw) {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_file_type",
				"Only PDF and XLSX documents are supported", nil)
			return
		}

		// Large uploads: store the object now, index in the background.
		if queueClient != nil && header.Size > cfg.SyncProcessingLimit {
			id, err := pipeline.Stage(c.Request.Context(), raw, title, tags)
			if err != nil {
				utils.RespondWithDomainError(c, err)
				return
			}
			task, err := queue.NewIndexDocumentTask(id)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to create indexing task", nil)
				return
			}
			info, err := queueClient.Enqueue(task)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to enqueue indexing task", nil)
				return
			}
			c.JSON(http.StatusAccepted, models.UploadResponse{
				ID:       id,
				Status:   models.StatusQueued,
				Message:  "Document stored; indexing in progress",
				TaskID:   info.ID,
				Deferred: true,
			})
			return
		}

		report, err := pipeline.Ingest(c.Request.Context(), raw, title, tags)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}

		status := models.StatusIndexed
		message := "Document indexed"
		if report.Degraded() {
			status = models.StatusDegraded
			message = "Document stored but some index entries are missing: " + strings.Join(report.FailedSteps, ", ")
		}
		c.JSON(http.StatusCreated, models.UploadResponse{
			ID:      report.DocumentID,
			Status:  status,
			Message: message,
		})
	}
}

// HandleGetDocument returns the metadata record and a fresh presigned URL
// for one document id.
func HandleGetDocument(retrieval *services.RetrievalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		result, err := retrieval.FetchDocument(c.Request.Context(), id)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		if result == nil {
			utils.RespondWithNotFound(c, "No document with that id")
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func supportedFormat(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF")) || bytes.HasPrefix(data, []byte("PK\x03\x04"))
}
