package service

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuneWines/Document-manager/config"
	"github.com/PuneWines/Document-manager/model"
)

// SheetsService talks to the spreadsheet scripting endpoint that backs all
// document persistence. Reads are GETs with query parameters, mutations are
// form-encoded POSTs carrying an action discriminator. The endpoint is the
// single source of truth; nothing is cached here.
type SheetsService struct {
	config     *config.SheetsConfig
	httpClient *http.Client
}

// scriptResponse is the envelope every endpoint action replies with. Only
// the fields relevant to the action are populated: fetch fills data,
// uploadFile fills fileUrl, getNextSerials fills nextSerials.
type scriptResponse struct {
	Success     bool            `json:"success"`
	Error       string          `json:"error,omitempty"`
	Message     string          `json:"message,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	FileURL     string          `json:"fileUrl,omitempty"`
	NextSerials map[string]int  `json:"nextSerials,omitempty"`
}

func NewSheetsService(cfg *config.SheetsConfig) *SheetsService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &SheetsService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchRows retrieves the raw value grid of one sheet, header row included.
func (s *SheetsService) FetchRows(sheetName string) ([][]any, error) {
	result, err := s.get(url.Values{
		"action": {"fetch"},
		"sheet":  {sheetName},
	})
	if err != nil {
		return nil, err
	}

	var rows [][]any
	if len(result.Data) > 0 {
		if err := json.Unmarshal(result.Data, &rows); err != nil {
			return nil, fmt.Errorf("failed to parse sheet rows: %w", err)
		}
	}
	return rows, nil
}

// NextSerials fetches the per-category serial counter snapshot used as the
// starting point for batch allocation.
func (s *SheetsService) NextSerials() (map[string]int, error) {
	result, err := s.get(url.Values{
		"action": {"getNextSerials"},
	})
	if err != nil {
		return nil, err
	}
	return result.NextSerials, nil
}

// FetchDocuments retrieves a sheet and parses its data rows into documents.
// The header row is skipped and rows too short to carry a serial number are
// dropped with a warning instead of failing the whole fetch.
func (s *SheetsService) FetchDocuments(sheetName string, variant model.SheetVariant) ([]model.Document, error) {
	rows, err := s.FetchRows(sheetName)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	docs := make([]model.Document, 0, len(rows)-1)
	for i, row := range rows[1:] {
		doc, err := model.ParseDocumentRow(row, variant)
		if err != nil {
			slog.Warn("skipping malformed sheet row", "sheet", sheetName, "row", i+2, "error", err)
			continue
		}
		doc.SourceSheet = sheetName
		docs = append(docs, doc)
	}
	return docs, nil
}

// FetchRenewalUpdates retrieves and parses the renewal overlay sheet.
func (s *SheetsService) FetchRenewalUpdates() ([]model.RenewalUpdate, error) {
	rows, err := s.FetchRows(s.config.RenewalSheet)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	updates := make([]model.RenewalUpdate, 0, len(rows)-1)
	for i, row := range rows[1:] {
		upd, err := model.ParseRenewalUpdateRow(row)
		if err != nil {
			slog.Warn("skipping malformed renewal row", "row", i+2, "error", err)
			continue
		}
		updates = append(updates, upd)
	}
	return updates, nil
}

// InsertRow appends one row to the named sheet.
func (s *SheetsService) InsertRow(sheetName string, row []any) error {
	rowData, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	_, err = s.postForm(url.Values{
		"action":    {"insert"},
		"sheetName": {sheetName},
		"rowData":   {string(rowData)},
	})
	return err
}

// MarkDeleted soft-deletes a document by writing its deletion marker. The
// row stays in the sheet and is filtered out on read. The timestamp pins
// the exact row, since resubmissions can reuse a serial.
func (s *SheetsService) MarkDeleted(sheetName, serialNo, timestamp string) error {
	_, err := s.postForm(url.Values{
		"action":    {"markDeleted"},
		"sheetName": {sheetName},
		"serialNo":  {serialNo},
		"timestamp": {timestamp},
	})
	return err
}

// Approve transitions a pending document to Approved. The timestamp
// disambiguates resubmissions that share a serial number.
func (s *SheetsService) Approve(serialNo, timestamp string) error {
	_, err := s.postForm(url.Values{
		"action":    {"approve"},
		"sheetName": {s.config.ApprovalSheet},
		"serialNo":  {serialNo},
		"timestamp": {timestamp},
	})
	return err
}

// Reject transitions a pending document to Rejected.
func (s *SheetsService) Reject(serialNo, timestamp string) error {
	_, err := s.postForm(url.Values{
		"action":    {"reject"},
		"sheetName": {s.config.ApprovalSheet},
		"serialNo":  {serialNo},
		"timestamp": {timestamp},
	})
	return err
}

// UpdateRenewal records a renewal change as a new overlay row keyed by the
// original document's serial and timestamp. The base row is never edited in
// place; readers reconcile the overlay on top.
func (s *SheetsService) UpdateRenewal(upd model.RenewalUpdate) error {
	needsRenewal := "No"
	if upd.NeedsRenewal {
		needsRenewal = "Yes"
	}
	_, err := s.postForm(url.Values{
		"action":           {"updateRenewal"},
		"sheetName":        {s.config.RenewalSheet},
		"serialNo":         {upd.SerialNo},
		"originalSerialNo": {upd.OriginalSerialNo},
		"timestamp":        {upd.Timestamp},
		"needsRenewal":     {needsRenewal},
		"renewalDate":      {upd.RenewalDate},
		"imageUrl":         {upd.ImageURL},
	})
	return err
}

// UploadFile pushes file bytes through the endpoint's uploadFile action and
// returns the public link of the stored file.
func (s *SheetsService) UploadFile(fileName, mimeType string, data []byte) (string, error) {
	resp, err := s.postForm(url.Values{
		"action":     {"uploadFile"},
		"fileName":   {fileName},
		"mimeType":   {mimeType},
		"base64Data": {base64.StdEncoding.EncodeToString(data)},
		"folderId":   {s.config.UploadFolderID},
	})
	if err != nil {
		return "", err
	}
	if resp.FileURL == "" {
		return "", fmt.Errorf("upload succeeded but no file URL returned")
	}
	return resp.FileURL, nil
}

// ShareViaEmail asks the endpoint to mail the given document links to a
// recipient.
func (s *SheetsService) ShareViaEmail(recipient string, docs []model.Document) error {
	type shareItem struct {
		SerialNo string `json:"serialNo"`
		Name     string `json:"name"`
		ImageURL string `json:"imageUrl"`
	}

	items := make([]shareItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, shareItem{SerialNo: d.SerialNo, Name: d.Name, ImageURL: d.ImageURL})
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal share payload: %w", err)
	}

	_, err = s.postForm(url.Values{
		"action":    {"shareViaEmail"},
		"email":     {recipient},
		"documents": {string(payload)},
	})
	return err
}

// get sends one read action as a GET with query parameters and decodes the
// response envelope.
func (s *SheetsService) get(query url.Values) (*scriptResponse, error) {
	req, err := http.NewRequest("GET", s.config.ScriptURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	return decodeScriptResponse(resp)
}

// postForm sends one form-encoded action to the endpoint and decodes the
// response envelope.
func (s *SheetsService) postForm(form url.Values) (*scriptResponse, error) {
	req, err := http.NewRequest("POST", s.config.ScriptURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	return decodeScriptResponse(resp)
}

func decodeScriptResponse(resp *http.Response) (*scriptResponse, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("script endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result scriptResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}
	if !result.Success {
		return nil, fmt.Errorf("script endpoint error: %s", errorText(result))
	}
	return &result, nil
}

func errorText(r scriptResponse) string {
	if r.Error != "" {
		return r.Error
	}
	if r.Message != "" {
		return r.Message
	}
	return "unknown error"
}
