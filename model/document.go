package model

import (
	"fmt"
	"log/slog"
	"strings"
)

// Document represents one logical document row from the spreadsheet backend.
type Document struct {
	ID            int      `json:"id"`
	Timestamp     string   `json:"timestamp"`
	SerialNo      string   `json:"serialNo"`
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Category      string   `json:"category"`
	Company       string   `json:"company"`
	Tags          []string `json:"tags"`
	PersonName    string   `json:"personName"`
	NeedsRenewal  bool     `json:"needsRenewal"`
	RenewalDate   string   `json:"renewalDate"`
	ImageURL      string   `json:"imageUrl"`
	Email         string   `json:"email"`
	Mobile        string   `json:"mobile"`
	Status        string   `json:"status,omitempty"`
	SubmittedBy   string   `json:"submittedBy,omitempty"`
	SourceSheet   string   `json:"-"`
	DeletedMarker string   `json:"-"`
}

// RenewalUpdate is an overlay row from the Updated Renewal sheet. It never
// mutates the original document row; the reconciler folds it in at read time.
type RenewalUpdate struct {
	Timestamp        string `json:"timestamp"`
	SerialNo         string `json:"serialNo"`
	OriginalSerialNo string `json:"originalSerialNo"`
	NeedsRenewal     bool   `json:"needsRenewal"`
	RenewalDate      string `json:"renewalDate"`
	ImageURL         string `json:"imageUrl"`
}

// Approval status constants
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// Column indices for document sheets. The backend returns positional row
// arrays; every access goes through this table, never a bare literal.
const (
	colTimestamp    = 0
	colSerialNo     = 1
	colName         = 2
	colType         = 3
	colCategory     = 4
	colCompany      = 5
	colTags         = 6
	colPersonName   = 7
	colNeedsRenewal = 8
	colRenewalDate  = 9
	colImageURLDocs = 10 // Documents sheet
	colImageURLAppr = 11 // Approval sheet (10 holds the file size there)
	colEmail        = 12
	colMobile       = 13
	colMarker       = 14 // Documents: deletion marker; Approval: status
	colSubmittedBy  = 15 // Approval sheet only
)

// docRowWidth is the padded row width; shorter rows default the tail to
// empty cells.
const docRowWidth = 16

// SheetVariant selects the column layout of a document sheet.
type SheetVariant int

const (
	// DocumentsSheet is the base partition (col 10 = image URL, col 14 =
	// deletion marker).
	DocumentsSheet SheetVariant = iota
	// ApprovalSheet is the approval queue (col 11 = image URL, col 14 =
	// status).
	ApprovalSheet
)

// ParseDocumentRow decodes one positional row into a Document. Missing
// trailing cells default to empty; a row shorter than the serial column is
// rejected as malformed.
func ParseDocumentRow(row []any, variant SheetVariant) (Document, error) {
	if len(row) <= colSerialNo {
		return Document{}, fmt.Errorf("row too short: %d cells", len(row))
	}

	padded := make([]any, docRowWidth)
	copy(padded, row)

	imageCol := colImageURLDocs
	if variant == ApprovalSheet {
		imageCol = colImageURLAppr
	}

	doc := Document{
		Timestamp:    cellString(padded[colTimestamp]),
		SerialNo:     cellString(padded[colSerialNo]),
		Name:         cellString(padded[colName]),
		Type:         cellString(padded[colType]),
		Category:     cellString(padded[colCategory]),
		Company:      cellString(padded[colCompany]),
		Tags:         ParseTags(cellString(padded[colTags])),
		PersonName:   cellString(padded[colPersonName]),
		NeedsRenewal: ParseRenewalFlag(cellString(padded[colNeedsRenewal])),
		RenewalDate:  cellString(padded[colRenewalDate]),
		ImageURL:     cellString(padded[imageCol]),
		Email:        cellString(padded[colEmail]),
		Mobile:       cellString(padded[colMobile]),
	}

	marker := cellString(padded[colMarker])
	if variant == ApprovalSheet {
		doc.Status = marker
		if doc.Status == "" {
			doc.Status = StatusPending
		}
		doc.SubmittedBy = cellString(padded[colSubmittedBy])
	} else {
		doc.DeletedMarker = marker
	}

	return doc, nil
}

// Renewal overlay sheet columns.
const (
	updColTimestamp        = 0
	updColSerialNo         = 1
	updColOriginalSerialNo = 2
	updColNeedsRenewal     = 3
	updColRenewalDate      = 4
	updColImageURL         = 5

	updateRowWidth = 6
)

// ParseRenewalUpdateRow decodes one row of the Updated Renewal sheet.
func ParseRenewalUpdateRow(row []any) (RenewalUpdate, error) {
	if len(row) <= updColSerialNo {
		return RenewalUpdate{}, fmt.Errorf("row too short: %d cells", len(row))
	}

	padded := make([]any, updateRowWidth)
	copy(padded, row)

	return RenewalUpdate{
		Timestamp:        cellString(padded[updColTimestamp]),
		SerialNo:         cellString(padded[updColSerialNo]),
		OriginalSerialNo: cellString(padded[updColOriginalSerialNo]),
		NeedsRenewal:     ParseRenewalFlag(cellString(padded[updColNeedsRenewal])),
		RenewalDate:      cellString(padded[updColRenewalDate]),
		ImageURL:         cellString(padded[updColImageURL]),
	}, nil
}

// InsertRow builds the 16-column row array for a new approval-queue insert.
func InsertRow(timestamp, serialNo string, d Document, fileSize, submittedBy string) []any {
	needsRenewal := "No"
	if d.NeedsRenewal {
		needsRenewal = "Yes"
	}
	return []any{
		timestamp,
		serialNo,
		d.Name,
		d.Type,
		d.Category,
		d.Company,
		strings.Join(d.Tags, ", "),
		d.PersonName,
		needsRenewal,
		d.RenewalDate,
		fileSize,
		d.ImageURL,
		d.Email,
		d.Mobile,
		StatusPending,
		submittedBy,
	}
}

// ParseTags splits a comma-separated tag cell, trimming each entry and
// preserving order. Duplicates are kept as stored.
func ParseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ParseRenewalFlag reads the needs-renewal cell. The sheet stores either a
// spreadsheet boolean ("TRUE") or the form value ("Yes").
func ParseRenewalFlag(s string) bool {
	return s == "TRUE" || s == "Yes"
}

// IsDeleted reports whether the soft-delete marker is set.
func (d Document) IsDeleted() bool {
	return strings.TrimSpace(d.DeletedMarker) != ""
}

// cellString renders an arbitrary JSON cell as a string. Numbers come back
// from the sheet as float64 (mobile numbers in particular).
func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case bool:
		if c {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		if c == float64(int64(c)) {
			return fmt.Sprintf("%d", int64(c))
		}
		return fmt.Sprintf("%v", c)
	default:
		return fmt.Sprintf("%v", c)
	}
}

// Category names and serial prefixes. Additional organization-specific
// categories can be layered in from config via RegisterCategory.
const (
	CategoryPersonal = "Personal"
	CategoryCompany  = "Company"
	CategoryDirector = "Director"

	defaultPrefix = "DN"
)

var serialPrefixes = map[string]string{
	CategoryPersonal: "PN",
	CategoryCompany:  "CN",
	CategoryDirector: "DN",
}

// RegisterCategory adds or overrides a category→prefix mapping.
func RegisterCategory(category, prefix string) {
	if category == "" || prefix == "" {
		return
	}
	serialPrefixes[category] = prefix
}

// SerialPrefix returns the serial-number prefix for a category. The match
// ignores case: the counter snapshot keys categories in lowercase
// ("personal", "company") while form input carries them capitalized.
// Unknown categories fall back to the default prefix with a warning.
func SerialPrefix(category string) string {
	if p, ok := serialPrefixes[category]; ok {
		return p
	}
	for name, p := range serialPrefixes {
		if strings.EqualFold(name, category) {
			return p
		}
	}
	slog.Warn("unknown document category, using default serial prefix",
		"category", category,
		"prefix", defaultPrefix,
	)
	return defaultPrefix
}

// KnownCategory reports whether a category has an explicit prefix mapping.
func KnownCategory(category string) bool {
	_, ok := serialPrefixes[category]
	return ok
}
