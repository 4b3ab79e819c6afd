package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"document-search-platform/models"
	"document-search-platform/services"
	"document-search-platform/utils"
)

// SetupSearchRoutes registers the two query paths.
func SetupSearchRoutes(router *gin.Engine, retrieval *services.RetrievalService) {
	api := router.Group("/api")
	api.GET("/search", HandleMetadataSearch(retrieval))
	api.POST("/search/semantic", HandleSemanticSearch(retrieval))
}

// HandleMetadataSearch answers GET /api/search?field=title|tags&q=...
// An empty q matches everything; that choice belongs to the caller.
func HandleMetadataSearch(retrieval *services.RetrievalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		field := c.DefaultQuery("field", models.FieldTitle)
		query := c.Query("q")

		results, err := retrieval.SearchByField(c.Request.Context(), field, query)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"count":   len(results),
			"results": results,
		})
	}
}

type semanticSearchRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

// HandleSemanticSearch answers POST /api/search/semantic {query, k}.
func HandleSemanticSearch(retrieval *services.RetrievalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req semanticSearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "A non-empty query is required", err.Error())
			return
		}
		if req.K == 0 {
			req.K = 5
		}

		results, err := retrieval.SearchBySimilarity(c.Request.Context(), req.Query, req.K)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"count":   len(results),
			"results": results,
		})
	}
}
