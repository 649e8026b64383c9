package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PuneWines/Document-manager/config"
	"github.com/PuneWines/Document-manager/middleware"
	"github.com/PuneWines/Document-manager/model"
	"github.com/PuneWines/Document-manager/pkg/logger"
	"github.com/PuneWines/Document-manager/service"
)

type ApprovalHandler struct {
	sheets *service.SheetsService
	config *config.Config
}

func NewApprovalHandler(sheets *service.SheetsService, cfg *config.Config) *ApprovalHandler {
	return &ApprovalHandler{sheets: sheets, config: cfg}
}

// List returns the approval queue, newest first. Admins see every
// submission; other users see only their own. The status query parameter
// narrows the result further.
func (h *ApprovalHandler) List(c *gin.Context) {
	docs, err := h.sheets.FetchDocuments(h.config.Sheets.ApprovalSheet, model.ApprovalSheet)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to fetch approval queue", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch approval queue: " + err.Error()})
		return
	}

	if middleware.GetRole(c) != middleware.RoleAdmin {
		username := middleware.GetUsername(c)
		own := make([]model.Document, 0, len(docs))
		for _, d := range docs {
			if d.SubmittedBy == username {
				own = append(own, d)
			}
		}
		docs = own
	}

	if status := c.Query("status"); status != "" {
		filtered := make([]model.Document, 0, len(docs))
		for _, d := range docs {
			if d.Status == status {
				filtered = append(filtered, d)
			}
		}
		docs = filtered
	}

	docs = service.Reconcile(docs, nil)

	now := time.Now()
	result := make([]documentView, 0, len(docs))
	for _, d := range docs {
		result = append(result, newDocumentView(d, now))
	}

	c.JSON(http.StatusOK, gin.H{"documents": result})
}

type DecisionRequest struct {
	SerialNo  string `json:"serialNo" binding:"required"`
	Timestamp string `json:"timestamp" binding:"required"`
}

// Approve marks a pending submission as approved. The timestamp pins the
// exact row, since resubmissions can reuse a serial.
func (h *ApprovalHandler) Approve(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.sheets.Approve(req.SerialNo, req.Timestamp); err != nil {
		logger.Error(c.Request.Context(), "failed to approve document", "serial", req.SerialNo, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to approve document: " + err.Error()})
		return
	}

	logger.Info(c.Request.Context(), "document approved", "serial", req.SerialNo)
	c.JSON(http.StatusOK, gin.H{"message": "Document approved", "serialNo": req.SerialNo, "status": model.StatusApproved})
}

// Reject marks a pending submission as rejected.
func (h *ApprovalHandler) Reject(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.sheets.Reject(req.SerialNo, req.Timestamp); err != nil {
		logger.Error(c.Request.Context(), "failed to reject document", "serial", req.SerialNo, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to reject document: " + err.Error()})
		return
	}

	logger.Info(c.Request.Context(), "document rejected", "serial", req.SerialNo)
	c.JSON(http.StatusOK, gin.H{"message": "Document rejected", "serialNo": req.SerialNo, "status": model.StatusRejected})
}
