package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wko-katas/katas-engine/internal/models"
)

// ReadSnapshot loads a static catalog file. Files ending in .yaml or .yml are
// decoded as YAML, everything else as a JSON array.
func ReadSnapshot(path string) ([]models.Kata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var katas []models.Kata
	if isYAML(path) {
		err = yaml.Unmarshal(data, &katas)
	} else {
		err = json.Unmarshal(data, &katas)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}

	return katas, nil
}

// WriteSnapshot stores the catalog atomically in the format implied by the extension
func WriteSnapshot(path string, katas []models.Kata) error {
	if katas == nil {
		katas = []models.Kata{}
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(katas)
	} else {
		data, err = json.MarshalIndent(katas, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
