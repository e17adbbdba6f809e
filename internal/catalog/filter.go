package catalog

import (
	"slices"
	"strings"

	"github.com/wko-katas/katas-engine/internal/models"
)

// Filter returns the katas matching the search term, belt selection and
// favorites flag, in catalog order. The input slice is not modified.
func Filter(katas []models.Kata, f models.FilterState, favorites map[string]bool) []models.Kata {
	term := strings.ToLower(f.SearchTerm)

	out := make([]models.Kata, 0, len(katas))
	for _, k := range katas {
		if term != "" && !strings.Contains(strings.ToLower(k.KataName), term) {
			continue
		}
		if len(f.SelectedBelts) > 0 && !slices.Contains(f.SelectedBelts, k.BeltLevel) {
			continue
		}
		if f.ShowFavoritesOnly && !favorites[k.ID] {
			continue
		}
		out = append(out, k)
	}

	Sort(out)
	return out
}
