package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github/astrolozee/consult/models"
	"github/astrolozee/consult/services"
)

// ConsultController handles the HTTP requests for the consultation API. It
// depends on the service layer for the actual business logic.
type ConsultController struct {
	consultService   services.ConsultService
	knowledgeService *services.KnowledgeService
}

// NewConsultController is called from main.go to inject the service
// dependencies.
func NewConsultController(consultService services.ConsultService, knowledgeService *services.KnowledgeService) *ConsultController {
	return &ConsultController{
		consultService:   consultService,
		knowledgeService: knowledgeService,
	}
}

// APIKeyAuth rejects requests whose x-api-key header does not match the
// configured shared key.
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("x-api-key") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// Ask is the Gin handler for POST /api/v1/ask. It binds the consultation
// request, delegates to the service layer, and maps service errors onto HTTP
// statuses: only an invalid question is the client's fault.
func (c *ConsultController) Ask(ctx *gin.Context) {
	var req models.ConsultRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.consultService.Consult(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidQuestion) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate consultation"})
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// ClearSession is the Gin handler for DELETE /api/v1/session/:id.
func (c *ConsultController) ClearSession(ctx *gin.Context) {
	sessionID := ctx.Param("id")
	c.consultService.ClearSession(sessionID)
	ctx.JSON(http.StatusOK, gin.H{"message": "Session cleared"})
}

// IngestKnowledge is the Gin handler for POST /api/v1/knowledge.
func (c *ConsultController) IngestKnowledge(ctx *gin.Context) {
	var req models.IngestKnowledgeRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := c.knowledgeService.Ingest(ctx.Request.Context(), req); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest knowledge"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Knowledge ingested successfully"})
}

// ListKnowledge is the Gin handler for GET /api/v1/knowledge.
func (c *ConsultController) ListKnowledge(ctx *gin.Context) {
	response, err := c.knowledgeService.List(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve knowledge"})
		return
	}

	ctx.JSON(http.StatusOK, response)
}
