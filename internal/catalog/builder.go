package catalog

import (
	"fmt"
	"log/slog"

	"github.com/wko-katas/katas-engine/internal/models"
)

// Build classifies every listed file into a kata and returns them in catalog order.
// Files whose names cannot be classified are logged and skipped.
func Build(files []models.SourceFile, logger *slog.Logger) []models.Kata {
	if logger == nil {
		logger = slog.Default()
	}

	katas := make([]models.Kata, 0, len(files))
	for _, file := range files {
		fields, err := Classify(file.Name)
		if err != nil {
			logger.Warn("skipping unrecognized kata file",
				"file", file.Name,
				"file_id", file.ID,
				"error", err,
			)
			continue
		}

		katas = append(katas, models.Kata{
			ID:          file.ID,
			KataName:    fields.KataName,
			BeltLevel:   fields.BeltLevel,
			SourceID:    file.ID,
			SourceURL:   file.WebViewLink,
			Category:    fields.Category,
			Order:       fields.Order,
			Description: describe(fields),
		})
	}

	Sort(katas)
	return katas
}

func describe(f Fields) string {
	return fmt.Sprintf("Kata %s para cinturón %s", f.KataName, f.BeltLevel)
}

// SummarizeByBelt counts katas per belt, listing belts in hierarchy order
func SummarizeByBelt(katas []models.Kata) []BeltCount {
	counts := make(map[models.BeltLevel]int)
	for _, k := range katas {
		counts[k.BeltLevel]++
	}

	out := make([]BeltCount, 0, len(counts))
	for _, level := range models.BeltHierarchy() {
		if n, ok := counts[level]; ok {
			out = append(out, BeltCount{Belt: level, Count: n})
		}
	}
	return out
}

// BeltCount is the number of katas for one belt
type BeltCount struct {
	Belt  models.BeltLevel `json:"belt"`
	Count int              `json:"count"`
}
