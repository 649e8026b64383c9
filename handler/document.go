package handler

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PuneWines/Document-manager/config"
	"github.com/PuneWines/Document-manager/middleware"
	"github.com/PuneWines/Document-manager/model"
	"github.com/PuneWines/Document-manager/pkg/dateutil"
	"github.com/PuneWines/Document-manager/pkg/logger"
	"github.com/PuneWines/Document-manager/service"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern = regexp.MustCompile(`^\d{10}$`)
)

type DocumentHandler struct {
	sheets   *service.SheetsService
	uploader service.FileUploader
	config   *config.Config
}

func NewDocumentHandler(sheets *service.SheetsService, uploader service.FileUploader, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{
		sheets:   sheets,
		uploader: uploader,
		config:   cfg,
	}
}

// documentView is the list representation of a reconciled document.
type documentView struct {
	model.Document
	DisplayDate string `json:"displayDate"`
	Expired     bool   `json:"expired"`
}

func newDocumentView(d model.Document, now time.Time) documentView {
	return documentView{
		Document:    d,
		DisplayDate: dateutil.DisplayDateTime(d.Timestamp),
		Expired:     d.NeedsRenewal && dateutil.Expired(d.RenewalDate, now),
	}
}

// fetchReconciled pulls the base and overlay partitions and folds them into
// one logical list.
func (h *DocumentHandler) fetchReconciled() ([]model.Document, error) {
	base, err := h.sheets.FetchDocuments(h.config.Sheets.DocumentsSheet, model.DocumentsSheet)
	if err != nil {
		return nil, err
	}
	updates, err := h.sheets.FetchRenewalUpdates()
	if err != nil {
		return nil, err
	}
	return service.Reconcile(base, updates), nil
}

// List returns the reconciled document list, optionally narrowed by the
// search and filter query parameters.
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.fetchReconciled()
	if err != nil {
		logger.Error(c.Request.Context(), "failed to fetch documents", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch documents: " + err.Error()})
		return
	}

	search := c.Query("search")
	category := c.DefaultQuery("filter", service.FilterAll)
	docs = service.Filter(docs, search, category)

	now := time.Now()
	result := make([]documentView, 0, len(docs))
	for _, d := range docs {
		result = append(result, newDocumentView(d, now))
	}

	c.JSON(http.StatusOK, gin.H{"documents": result})
}

// Renewals returns the documents flagged for renewal, each annotated with
// its expiry state.
func (h *DocumentHandler) Renewals(c *gin.Context) {
	docs, err := h.fetchReconciled()
	if err != nil {
		logger.Error(c.Request.Context(), "failed to fetch documents", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch documents: " + err.Error()})
		return
	}

	docs = service.Filter(docs, c.Query("search"), service.FilterRenewal)

	now := time.Now()
	result := make([]documentView, 0, len(docs))
	for _, d := range docs {
		result = append(result, newDocumentView(d, now))
	}

	c.JSON(http.StatusOK, gin.H{"documents": result})
}

// DocumentInput is one document in a create batch. The file travels as
// base64 next to its metadata, mirroring the upload action's contract.
type DocumentInput struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Category     string `json:"category"`
	Company      string `json:"company"`
	Tags         string `json:"tags"`
	PersonName   string `json:"personName"`
	NeedsRenewal bool   `json:"needsRenewal"`
	RenewalDate  string `json:"renewalDate"`
	Email        string `json:"email"`
	Mobile       string `json:"mobile"`
	FileName     string `json:"fileName"`
	MimeType     string `json:"mimeType"`
	FileData     string `json:"fileData"`
}

type CreateRequest struct {
	Documents []DocumentInput `json:"documents" binding:"required"`
}

// validateInput checks one batch entry. Runs before any network call so a
// bad entry blocks the whole batch without side effects.
func validateInput(i int, in DocumentInput) error {
	if in.Name == "" {
		return fmt.Errorf("document %d: name is required", i+1)
	}
	if in.Category == "" {
		return fmt.Errorf("document %d: category is required", i+1)
	}
	if in.Email == "" {
		return fmt.Errorf("document %d: email is required", i+1)
	}
	if !emailPattern.MatchString(in.Email) {
		return fmt.Errorf("document %d: invalid email address", i+1)
	}
	if in.Mobile != "" && !mobilePattern.MatchString(in.Mobile) {
		return fmt.Errorf("document %d: mobile must be 10 digits", i+1)
	}
	if in.NeedsRenewal && in.RenewalDate == "" {
		return fmt.Errorf("document %d: renewal date is required when renewal is enabled", i+1)
	}
	if in.FileData == "" {
		return fmt.Errorf("document %d: file is required", i+1)
	}
	return nil
}

// Create submits a batch of documents into the approval queue. Serials are
// allocated from one counter snapshot so the batch gets consecutive
// numbers. Inserts run in order and stop at the first failure; rows already
// inserted stay persisted, and the response reports how far the batch got.
func (h *DocumentHandler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if len(req.Documents) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No documents provided"})
		return
	}

	// Validate the whole batch before touching the network.
	files := make([][]byte, len(req.Documents))
	for i, in := range req.Documents {
		if err := validateInput(i, in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data, err := base64.StdEncoding.DecodeString(in.FileData)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("document %d: invalid file data", i+1)})
			return
		}
		files[i] = data
	}

	alloc, err := h.serialAllocator(c)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to allocate serial numbers: " + err.Error()})
		return
	}

	username := middleware.GetUsername(c)
	now := time.Now()

	inserted := make([]gin.H, 0, len(req.Documents))
	for i, in := range req.Documents {
		serial := alloc.Next(in.Category)

		imageURL, err := h.uploader.Upload(c.Request.Context(), in.FileName, in.MimeType, files[i])
		if err != nil {
			h.reportPartialFailure(c, i, serial, inserted, fmt.Errorf("file upload failed: %w", err))
			return
		}

		doc := model.Document{
			Name:         in.Name,
			Type:         in.Type,
			Category:     in.Category,
			Company:      in.Company,
			Tags:         model.ParseTags(in.Tags),
			PersonName:   in.PersonName,
			NeedsRenewal: in.NeedsRenewal,
			RenewalDate:  in.RenewalDate,
			ImageURL:     imageURL,
			Email:        in.Email,
			Mobile:       in.Mobile,
		}
		fileSize := fmt.Sprintf("%.2f MB", float64(len(files[i]))/(1024*1024))
		row := model.InsertRow(now.Format(time.RFC3339), serial, doc, fileSize, username)

		if err := h.sheets.InsertRow(h.config.Sheets.ApprovalSheet, row); err != nil {
			h.reportPartialFailure(c, i, serial, inserted, err)
			return
		}

		inserted = append(inserted, gin.H{"serialNo": serial, "name": in.Name, "imageUrl": imageURL})
	}

	logger.Info(c.Request.Context(), "document batch submitted",
		"count", len(inserted),
		"user", username,
	)
	c.JSON(http.StatusOK, gin.H{"documents": inserted, "status": model.StatusPending})
}

// reportPartialFailure surfaces a mid-batch error. Earlier rows remain in
// the sheet; there is no compensating rollback.
func (h *DocumentHandler) reportPartialFailure(c *gin.Context, i int, serial string, inserted []gin.H, err error) {
	logger.Error(c.Request.Context(), "batch submission stopped",
		"failed_index", i,
		"serial", serial,
		"inserted", len(inserted),
		"error", err,
	)
	c.JSON(http.StatusBadGateway, gin.H{
		"error":     fmt.Sprintf("document %d (%s): %s", i+1, serial, err.Error()),
		"documents": inserted,
	})
}

// serialAllocator prefers the endpoint's counter snapshot and falls back to
// scanning existing serials when the snapshot is unavailable.
func (h *DocumentHandler) serialAllocator(c *gin.Context) (*service.SerialAllocator, error) {
	counters, err := h.sheets.NextSerials()
	if err == nil {
		return service.NewSerialAllocator(counters), nil
	}
	logger.Warn(c.Request.Context(), "serial snapshot unavailable, scanning existing documents", "error", err)

	docs, err := h.sheets.FetchDocuments(h.config.Sheets.DocumentsSheet, model.DocumentsSheet)
	if err != nil {
		return nil, err
	}
	return service.AllocatorFromDocuments(docs), nil
}

// Delete soft-deletes a document. The row keeps its place in the sheet and
// disappears from every view. The timestamp query parameter pins the exact
// row alongside the serial.
func (h *DocumentHandler) Delete(c *gin.Context) {
	serialNo := c.Param("serialNo")
	if serialNo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Serial number required"})
		return
	}
	timestamp := c.Query("timestamp")
	if timestamp == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Timestamp required"})
		return
	}

	if err := h.sheets.MarkDeleted(h.config.Sheets.DocumentsSheet, serialNo, timestamp); err != nil {
		logger.Error(c.Request.Context(), "failed to mark document deleted", "serial", serialNo, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to delete document: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted", "serialNo": serialNo})
}

type RenewalUpdateRequest struct {
	SerialNo     string `json:"serialNo" binding:"required"`
	NewSerialNo  string `json:"newSerialNo"`
	NeedsRenewal bool   `json:"needsRenewal"`
	RenewalDate  string `json:"renewalDate"`
	ImageURL     string `json:"imageUrl"`
}

// UpdateRenewal appends an overlay row recording a renewal change. The
// original row is never touched.
func (h *DocumentHandler) UpdateRenewal(c *gin.Context) {
	var req RenewalUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.NeedsRenewal && req.RenewalDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Renewal date is required when renewal is enabled"})
		return
	}

	upd := model.RenewalUpdate{
		Timestamp:        time.Now().Format(time.RFC3339),
		SerialNo:         req.NewSerialNo,
		OriginalSerialNo: req.SerialNo,
		NeedsRenewal:     req.NeedsRenewal,
		RenewalDate:      req.RenewalDate,
		ImageURL:         req.ImageURL,
	}

	if err := h.sheets.UpdateRenewal(upd); err != nil {
		logger.Error(c.Request.Context(), "failed to record renewal update", "serial", req.SerialNo, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to update renewal: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Renewal updated", "serialNo": req.SerialNo})
}
