package service

import (
	"sort"

	"github.com/PuneWines/Document-manager/model"
	"github.com/PuneWines/Document-manager/pkg/dateutil"
)

// Reconcile merges the base document partition with the renewal overlay
// into one de-duplicated, soft-delete-filtered list, newest first.
//
// Each overlay row is matched against a base record by the base record's
// original serial or its current one. A match overwrites serial (when the
// overlay carries its own), renewal fields, timestamp, and image URL (when
// supplied), making the most recent renewal action the record of truth.
// Overlay rows older than what a record already carries are discarded, so
// overlapping renewal edits resolve last-write-wins by timestamp. An
// overlay row with no matching base record becomes a synthetic document
// prepended to the list; that happens when the base row was archived and
// is recoverable, not an error.
func Reconcile(base []model.Document, updates []model.RenewalUpdate) []model.Document {
	docs := make([]model.Document, len(base))
	copy(docs, base)

	// Serials as fetched, before any overlay rewrites them. Later overlay
	// rows still reference the original serial.
	baseSerials := make([]string, len(docs))
	for i, d := range docs {
		baseSerials[i] = d.SerialNo
	}

	var synthetic []model.Document
	for _, upd := range updates {
		idx := -1
		for i := range docs {
			if matchesSerial(baseSerials[i], upd) || matchesSerial(docs[i].SerialNo, upd) {
				idx = i
				break
			}
		}
		if idx == -1 {
			synthetic = append(synthetic, syntheticDocument(upd))
			continue
		}

		doc := &docs[idx]
		if dateutil.SortInstant(upd.Timestamp).Before(dateutil.SortInstant(doc.Timestamp)) {
			continue
		}
		if upd.SerialNo != "" {
			doc.SerialNo = upd.SerialNo
		}
		doc.NeedsRenewal = upd.NeedsRenewal
		doc.RenewalDate = upd.RenewalDate
		doc.Timestamp = upd.Timestamp
		if upd.ImageURL != "" {
			doc.ImageURL = upd.ImageURL
		}
	}

	merged := make([]model.Document, 0, len(synthetic)+len(docs))
	merged = append(merged, synthetic...)
	merged = append(merged, docs...)

	result := merged[:0]
	for _, d := range merged {
		if !d.IsDeleted() {
			result = append(result, d)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return dateutil.SortInstant(result[i].Timestamp).After(dateutil.SortInstant(result[j].Timestamp))
	})

	for i := range result {
		result[i].ID = i + 1
	}
	return result
}

func matchesSerial(serial string, upd model.RenewalUpdate) bool {
	if serial == "" {
		return false
	}
	return serial == upd.SerialNo || serial == upd.OriginalSerialNo
}

// syntheticDocument lifts an orphaned overlay row into a standalone record.
func syntheticDocument(upd model.RenewalUpdate) model.Document {
	serial := upd.SerialNo
	if serial == "" {
		serial = upd.OriginalSerialNo
	}
	return model.Document{
		Timestamp:    upd.Timestamp,
		SerialNo:     serial,
		NeedsRenewal: upd.NeedsRenewal,
		RenewalDate:  upd.RenewalDate,
		ImageURL:     upd.ImageURL,
	}
}
