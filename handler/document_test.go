package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/PuneWines/Document-manager/config"
	"github.com/PuneWines/Document-manager/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// scriptStub fakes the spreadsheet scripting endpoint. Sheets are keyed by
// name; form posts are recorded for assertions.
type scriptStub struct {
	sheets    map[string][][]any
	posts     []map[string]string
	calls     int64
	failOn    string // action that should return success:false
	failAfter int    // fail the Nth matching action (1-based), 0 = always
	seen      int
}

func (s *scriptStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&s.calls, 1)

		if r.Method == "GET" {
			switch r.URL.Query().Get("action") {
			case "fetch":
				rows := s.sheets[r.URL.Query().Get("sheet")]
				json.NewEncoder(w).Encode(map[string]any{"success": true, "data": rows})
			case "getNextSerials":
				// The endpoint keys the snapshot in lowercase
				json.NewEncoder(w).Encode(map[string]any{
					"success":     true,
					"nextSerials": map[string]int{"personal": 5, "company": 1, "director": 1},
				})
			default:
				json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "unknown action"})
			}
			return
		}

		r.ParseForm()
		form := make(map[string]string)
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		s.posts = append(s.posts, form)

		action := form["action"]
		if action == s.failOn {
			s.seen++
			if s.failAfter == 0 || s.seen == s.failAfter {
				json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "backend unavailable"})
				return
			}
		}

		if action == "uploadFile" {
			json.NewEncoder(w).Encode(map[string]any{"success": true, "fileUrl": "https://drive.example.com/file/" + form["fileName"]})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}
}

func testConfig(scriptURL string) *config.Config {
	return &config.Config{
		Sheets: config.SheetsConfig{
			ScriptURL:      scriptURL,
			DocumentsSheet: "Documents",
			RenewalSheet:   "Updated Renewal",
			ApprovalSheet:  "Approval Documents",
			TimeoutSeconds: 5,
		},
		Upload: config.UploadConfig{Backend: "script"},
	}
}

func newDocumentRouter(cfg *config.Config) *gin.Engine {
	sheets := service.NewSheetsService(&cfg.Sheets)
	h := NewDocumentHandler(sheets, service.NewScriptUploader(sheets), cfg)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("username", "testuser")
		c.Set("role", "user")
	})
	router.GET("/api/documents", h.List)
	router.GET("/api/documents/renewal", h.Renewals)
	router.POST("/api/documents", h.Create)
	router.DELETE("/api/documents/:serialNo", h.Delete)
	router.POST("/api/documents/renewal", h.UpdateRenewal)
	return router
}

func docRow(timestamp, serial, name, category string) []any {
	return []any{timestamp, serial, name, "identity", category, "Acme", "", "Ravi", "No", "", "https://drive.example.com/f/" + serial, "", "ravi@example.com", "9876543210", ""}
}

func TestListDocuments(t *testing.T) {
	stub := &scriptStub{sheets: map[string][][]any{
		"Documents": {
			{"Timestamp", "Serial No"},
			docRow("2024-01-01T10:00:00Z", "PN-001", "Passport", "Personal"),
			docRow("2024-02-01T10:00:00Z", "CN-001", "GST Certificate", "Company"),
		},
		"Updated Renewal": {{"Timestamp"}},
	}}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	router := newDocumentRouter(testConfig(server.URL))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/documents", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Documents []struct {
			ID       int    `json:"id"`
			SerialNo string `json:"serialNo"`
		} `json:"documents"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(resp.Documents) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(resp.Documents))
	}
	// Newest first, IDs reassigned
	if resp.Documents[0].SerialNo != "CN-001" || resp.Documents[0].ID != 1 {
		t.Errorf("Expected CN-001 with ID 1 first, got %s/%d", resp.Documents[0].SerialNo, resp.Documents[0].ID)
	}
}

func TestListDocumentsWithFilter(t *testing.T) {
	stub := &scriptStub{sheets: map[string][][]any{
		"Documents": {
			{"Timestamp", "Serial No"},
			docRow("2024-01-01T10:00:00Z", "PN-001", "Passport", "Personal"),
			docRow("2024-02-01T10:00:00Z", "CN-001", "GST Certificate", "Company"),
		},
		"Updated Renewal": {},
	}}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	router := newDocumentRouter(testConfig(server.URL))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/documents?filter=Personal&search=passport", nil))

	var resp struct {
		Documents []struct {
			SerialNo string `json:"serialNo"`
		} `json:"documents"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Documents) != 1 || resp.Documents[0].SerialNo != "PN-001" {
		t.Errorf("Expected only PN-001, got %v", resp.Documents)
	}
}

func TestRenewalsAnnotatesExpired(t *testing.T) {
	expired := docRow("2024-01-01T10:00:00Z", "PN-001", "Passport", "Personal")
	expired[8] = "Yes"
	expired[9] = "15/01/2020"

	stub := &scriptStub{sheets: map[string][][]any{
		"Documents":       {{"Timestamp"}, expired},
		"Updated Renewal": {},
	}}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	router := newDocumentRouter(testConfig(server.URL))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/documents/renewal", nil))

	var resp struct {
		Documents []struct {
			SerialNo string `json:"serialNo"`
			Expired  bool   `json:"expired"`
		} `json:"documents"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Documents) != 1 {
		t.Fatalf("Expected 1 renewal document, got %d", len(resp.Documents))
	}
	if !resp.Documents[0].Expired {
		t.Error("Expected past renewal date to be flagged expired")
	}
}

func createBody(t *testing.T, docs []DocumentInput) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(CreateRequest{Documents: docs})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	return bytes.NewBuffer(body)
}

func validInput(name string) DocumentInput {
	return DocumentInput{
		Name:     name,
		Type:     "identity",
		Category: "Personal",
		Email:    "ravi@example.com",
		Mobile:   "9876543210",
		FileName: name + ".jpg",
		MimeType: "image/jpeg",
		FileData: base64.StdEncoding.EncodeToString([]byte("fake bytes")),
	}
}

func TestCreateMissingEmailBlocksWithoutNetworkCalls(t *testing.T) {
	stub := &scriptStub{sheets: map[string][][]any{}}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	doc := validInput("Passport")
	doc.Email = ""

	router := newDocumentRouter(testConfig(server.URL))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/documents", createBody(t, []DocumentInput{doc}))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if atomic.LoadInt64(&stub.calls) != 0 {
		t.Errorf("Expected zero network calls for validation failure, got %d", stub.calls)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DocumentInput)
	}{
		{"missing name", func(d *DocumentInput) { d.Name = "" }},
		{"missing category", func(d *DocumentInput) { d.Category = "" }},
		{"invalid email", func(d *DocumentInput) { d.Email = "not-an-email" }},
		{"short mobile", func(d *DocumentInput) { d.Mobile = "12345" }},
		{"renewal without date", func(d *DocumentInput) { d.NeedsRenewal = true; d.RenewalDate = "" }},
		{"missing file", func(d *DocumentInput) { d.FileData = "" }},
		{"bad base64", func(d *DocumentInput) { d.FileData = "!!!not-base64!!!" }},
	}

	stub := &scriptStub{sheets: map[string][][]any{}}
	server := httptest.NewServer(stub.handler())
	defer server.Close()
	router := newDocumentRouter(testConfig(server.URL))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validInput("Passport")
			tt.mutate(&doc)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/documents", createBody(t, []DocumentInput{doc}))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestCreateBatchAllocatesConsecutiveSerials(t *testing.T) {
	stub := &scriptStub{sheets: map[string][][]any{}}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	docs := []DocumentInput{validInput("Passport"), validInput("Aadhaar"), validInput("PAN Card")}

	router := newDocumentRouter(testConfig(server.URL))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/documents", createBody(t, docs))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Documents []struct {
			SerialNo string `json:"serialNo"`
		} `json:"documents"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)

	want := []string{"PN-005", "PN-006", "PN-007"}
	if len(resp.Documents) != 3 {
		t.Fatalf("Expected 3 inserted documents, got %d", len(resp.Documents))
	}
	for i, w := range want {
		if resp.Documents[i].SerialNo != w {
			t.Errorf("Document %d: expected serial %s, got %s", i, w, resp.Documents[i].SerialNo)
		}
	}

	// Inserted rows land in the approval queue
	inserts := 0
	for _, p := range stub.posts {
		if p["action"] == "insert" {
			inserts++
			if p["sheetName"] != "Approval Documents" {
				t.Errorf("Expected insert into approval sheet, got %s", p["sheetName"])
			}
		}
	}
	if inserts != 3 {
		t.Errorf("Expected 3 inserts, got %d", inserts)
	}
}

func TestCreateStopsAtFirstFailure(t *testing.T) {
	stub := &scriptStub{
		sheets:    map[string][][]any{},
		failOn:    "insert",
		failAfter: 2,
	}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	docs := []DocumentInput{validInput("Passport"), validInput("Aadhaar"), validInput("PAN Card")}

	router := newDocumentRouter(testConfig(server.URL))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/documents", createBody(t, docs))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", w.Code)
	}

	var resp struct {
		Error     string `json:"error"`
		Documents []struct {
			SerialNo string `json:"serialNo"`
		} `json:"documents"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)

	// First row stays persisted, the third is never attempted
	if len(resp.Documents) != 1 || resp.Documents[0].SerialNo != "PN-005" {
		t.Errorf("Expected exactly the first document persisted, got %v", resp.Documents)
	}
	inserts := 0
	for _, p := range stub.posts {
		if p["action"] == "insert" {
			inserts++
		}
	}
	if inserts != 2 {
		t.Errorf("Expected batch to stop after the failing insert, got %d inserts", inserts)
	}
}

func TestDeleteDocument(t *testing.T) {
	stub := &scriptStub{sheets: map[string][][]any{}}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	router := newDocumentRouter(testConfig(server.URL))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/documents/PN-003?timestamp=2024-03-09T14:30:00Z", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if len(stub.posts) != 1 || stub.posts[0]["action"] != "markDeleted" || stub.posts[0]["serialNo"] != "PN-003" {
		t.Errorf("Expected one markDeleted post for PN-003, got %v", stub.posts)
	}
	if stub.posts[0]["timestamp"] != "2024-03-09T14:30:00Z" {
		t.Errorf("Expected timestamp in markDeleted post, got %v", stub.posts[0])
	}
}

func TestDeleteDocumentRequiresTimestamp(t *testing.T) {
	stub := &scriptStub{sheets: map[string][][]any{}}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	router := newDocumentRouter(testConfig(server.URL))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/documents/PN-003", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without timestamp, got %d", w.Code)
	}
	if atomic.LoadInt64(&stub.calls) != 0 {
		t.Errorf("Expected zero network calls, got %d", stub.calls)
	}
}

func TestUpdateRenewalValidation(t *testing.T) {
	stub := &scriptStub{sheets: map[string][][]any{}}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	body := bytes.NewBufferString(`{"serialNo":"CN-002","needsRenewal":true}`)

	router := newDocumentRouter(testConfig(server.URL))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/documents/renewal", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without renewal date, got %d", w.Code)
	}
	if atomic.LoadInt64(&stub.calls) != 0 {
		t.Errorf("Expected zero network calls, got %d", stub.calls)
	}
}

func TestUpdateRenewal(t *testing.T) {
	stub := &scriptStub{sheets: map[string][][]any{}}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	body := bytes.NewBufferString(`{"serialNo":"CN-002","needsRenewal":true,"renewalDate":"01/01/2026"}`)

	router := newDocumentRouter(testConfig(server.URL))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/documents/renewal", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(stub.posts) != 1 {
		t.Fatalf("Expected one post, got %d", len(stub.posts))
	}
	post := stub.posts[0]
	if post["action"] != "updateRenewal" || post["originalSerialNo"] != "CN-002" || post["renewalDate"] != "01/01/2026" {
		t.Errorf("Unexpected updateRenewal post: %v", post)
	}
}
