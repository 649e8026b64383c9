package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/PuneWines/Document-manager/config"
	"github.com/PuneWines/Document-manager/middleware"
	"github.com/PuneWines/Document-manager/model"
	"github.com/PuneWines/Document-manager/pkg/logger"
	"github.com/PuneWines/Document-manager/service"
)

var nonDigits = regexp.MustCompile(`\D`)

type ShareHandler struct {
	sheets *service.SheetsService
	store  *service.ShareStore
	config *config.Config
}

func NewShareHandler(sheets *service.SheetsService, cfg *config.Config) *ShareHandler {
	return &ShareHandler{
		sheets: sheets,
		store:  service.GetShareStore(),
		config: cfg,
	}
}

type EmailShareRequest struct {
	Email     string   `json:"email"`
	SerialNos []string `json:"serialNos"`
}

// ShareEmail mails the selected document links through the scripting
// endpoint. Validation runs before any fetch so a bad request costs no
// network calls.
func (h *ShareHandler) ShareEmail(c *gin.Context) {
	var req EmailShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Recipient email is required"})
		return
	}
	if !emailPattern.MatchString(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}
	if len(req.SerialNos) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No documents selected"})
		return
	}

	docs, err := h.resolveDocuments(req.SerialNos)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to resolve documents for share", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch documents: " + err.Error()})
		return
	}
	if len(docs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No matching documents found"})
		return
	}

	if err := h.sheets.ShareViaEmail(req.Email, docs); err != nil {
		logger.Error(c.Request.Context(), "failed to share via email", "recipient", req.Email, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to share documents: " + err.Error()})
		return
	}

	record := &model.ShareRecord{
		ID:        uuid.New().String(),
		Channel:   model.ChannelEmail,
		Recipient: req.Email,
		SerialNos: serials(docs),
		SharedBy:  middleware.GetUsername(c),
	}
	h.store.Save(record)

	logger.Info(c.Request.Context(), "documents shared via email",
		"recipient", req.Email,
		"count", len(docs),
	)
	c.JSON(http.StatusOK, gin.H{"message": "Documents shared", "share": record})
}

type WhatsAppShareRequest struct {
	Mobile    string   `json:"mobile"`
	SerialNos []string `json:"serialNos"`
}

// ShareWhatsApp builds a wa.me link carrying the selected document links.
// No message is sent server-side; the client opens the link.
func (h *ShareHandler) ShareWhatsApp(c *gin.Context) {
	var req WhatsAppShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	number := nonDigits.ReplaceAllString(req.Mobile, "")
	if len(number) < 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid mobile number is required"})
		return
	}
	if len(req.SerialNos) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No documents selected"})
		return
	}

	docs, err := h.resolveDocuments(req.SerialNos)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to resolve documents for share", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch documents: " + err.Error()})
		return
	}
	if len(docs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No matching documents found"})
		return
	}

	link := whatsAppLink(number, docs)

	record := &model.ShareRecord{
		ID:        uuid.New().String(),
		Channel:   model.ChannelWhatsApp,
		Recipient: number,
		SerialNos: serials(docs),
		SharedBy:  middleware.GetUsername(c),
		Link:      link,
	}
	h.store.Save(record)

	c.JSON(http.StatusOK, gin.H{"link": link, "share": record})
}

// List returns share history: admins see everything, other users only
// their own shares.
func (h *ShareHandler) List(c *gin.Context) {
	var records []*model.ShareRecord
	if middleware.GetRole(c) == middleware.RoleAdmin {
		records = h.store.List()
	} else {
		records = h.store.ListByUser(middleware.GetUsername(c))
	}

	c.JSON(http.StatusOK, gin.H{"shares": records})
}

// resolveDocuments maps requested serials onto the reconciled list.
// Serials that no longer exist are silently dropped.
func (h *ShareHandler) resolveDocuments(serialNos []string) ([]model.Document, error) {
	base, err := h.sheets.FetchDocuments(h.config.Sheets.DocumentsSheet, model.DocumentsSheet)
	if err != nil {
		return nil, err
	}
	updates, err := h.sheets.FetchRenewalUpdates()
	if err != nil {
		return nil, err
	}
	all := service.Reconcile(base, updates)

	wanted := make(map[string]bool, len(serialNos))
	for _, s := range serialNos {
		wanted[s] = true
	}

	var docs []model.Document
	for _, d := range all {
		if wanted[d.SerialNo] {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func serials(docs []model.Document) []string {
	result := make([]string, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.SerialNo)
	}
	return result
}

// whatsAppLink builds the wa.me URL with the document list as message text.
func whatsAppLink(number string, docs []model.Document) string {
	var b strings.Builder
	b.WriteString("Documents shared with you:\n")
	for _, d := range docs {
		fmt.Fprintf(&b, "%s (%s): %s\n", d.Name, d.SerialNo, d.ImageURL)
	}
	return "https://wa.me/" + number + "?text=" + url.QueryEscape(b.String())
}
