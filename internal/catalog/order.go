package catalog

import (
	"cmp"
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/wko-katas/katas-engine/internal/models"
)

// Collators keep scratch buffers and are not safe for concurrent use
var collators = sync.Pool{
	New: func() any {
		return collate.New(language.Spanish)
	},
}

// Compare orders katas by belt display name (Spanish collation, not hierarchy
// rank), then by numeric order. Katas without an order sort after numbered ones
// of the same belt.
func Compare(a, b models.Kata) int {
	if a.BeltLevel != b.BeltLevel {
		col := collators.Get().(*collate.Collator)
		c := col.CompareString(string(a.BeltLevel), string(b.BeltLevel))
		collators.Put(col)
		if c != 0 {
			return c
		}
	}

	switch {
	case a.Order == nil && b.Order == nil:
		return 0
	case a.Order == nil:
		return 1
	case b.Order == nil:
		return -1
	default:
		return cmp.Compare(*a.Order, *b.Order)
	}
}

// Sort orders katas in place with Compare; equal elements keep their input order
func Sort(katas []models.Kata) {
	slices.SortStableFunc(katas, Compare)
}

// IsSorted reports whether katas are already in catalog order
func IsSorted(katas []models.Kata) bool {
	return slices.IsSortedFunc(katas, Compare)
}
