package service

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/PuneWines/Document-manager/model"
)

// serialPattern matches issued serials like "PN-007" and captures the
// prefix and counter. Overlay serials with a revision suffix do not match
// and never feed the allocator.
var serialPattern = regexp.MustCompile(`^([A-Z]+)-(\d+)$`)

// SerialAllocator hands out category-prefixed serial numbers for one
// submission batch. Counters are per prefix and increment locally, so a
// batch of three Personal documents gets three consecutive numbers from
// one fetched starting point.
//
// The fetch-then-increment sequence is not atomic with the remote insert;
// two concurrent submitters can be handed overlapping serials. Known
// limitation of the backing store, kept as-is.
type SerialAllocator struct {
	counters map[string]int
}

// NewSerialAllocator builds an allocator from the endpoint's per-category
// counter snapshot.
func NewSerialAllocator(nextSerials map[string]int) *SerialAllocator {
	counters := make(map[string]int, len(nextSerials))
	for category, n := range nextSerials {
		counters[model.SerialPrefix(category)] = n
	}
	return &SerialAllocator{counters: counters}
}

// AllocatorFromDocuments builds an allocator by scanning existing serials
// for the maximum issued counter per prefix. Fallback for when the
// endpoint's counter snapshot is unavailable.
func AllocatorFromDocuments(docs []model.Document) *SerialAllocator {
	maxSeen := make(map[string]int)
	for _, d := range docs {
		m := serialPattern.FindStringSubmatch(d.SerialNo)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if n > maxSeen[m[1]] {
			maxSeen[m[1]] = n
		}
	}

	counters := make(map[string]int, len(maxSeen))
	for prefix, n := range maxSeen {
		counters[prefix] = n + 1
	}
	return &SerialAllocator{counters: counters}
}

// Next returns the next serial for a category and advances its counter.
// A prefix with no prior counter starts at 1.
func (a *SerialAllocator) Next(category string) string {
	prefix := model.SerialPrefix(category)
	n := a.counters[prefix]
	if n < 1 {
		n = 1
	}
	a.counters[prefix] = n + 1
	return fmt.Sprintf("%s-%03d", prefix, n)
}
