package service

import (
	"strings"

	"github.com/PuneWines/Document-manager/model"
)

// Category filter values with special meaning.
const (
	FilterAll     = "All"
	FilterRenewal = "Renewal"
)

// Matches reports whether a document passes both the free-text search and
// the category filter. Search is a case-insensitive substring test across
// the identifying fields and tags. The category filter matches the stored
// category string exactly, case-sensitive; "All" passes everything and
// "Renewal" passes only documents flagged for renewal.
func Matches(doc model.Document, searchTerm, categoryFilter string) bool {
	return matchesCategory(doc, categoryFilter) && matchesSearch(doc, searchTerm)
}

// Filter applies Matches over a reconciled list, preserving order.
func Filter(docs []model.Document, searchTerm, categoryFilter string) []model.Document {
	result := make([]model.Document, 0, len(docs))
	for _, d := range docs {
		if Matches(d, searchTerm, categoryFilter) {
			result = append(result, d)
		}
	}
	return result
}

func matchesCategory(doc model.Document, categoryFilter string) bool {
	switch categoryFilter {
	case "", FilterAll:
		return true
	case FilterRenewal:
		return doc.NeedsRenewal
	default:
		return doc.Category == categoryFilter
	}
}

func matchesSearch(doc model.Document, searchTerm string) bool {
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	if term == "" {
		return true
	}

	fields := []string{
		doc.Name,
		doc.Type,
		doc.Category,
		doc.Company,
		doc.Email,
		doc.Mobile,
		doc.SerialNo,
		doc.PersonName,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	for _, tag := range doc.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}
