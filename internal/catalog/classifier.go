// Package catalog turns raw video listings into the sorted kata catalog and
// filters it for viewers.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/wko-katas/katas-engine/internal/models"
)

var (
	ErrMalformedName = errors.New("unrecognized file name format")
	ErrUnknownBelt   = errors.New("unrecognized belt token")
)

const (
	nameDelimiter = "_"
	minNameParts  = 4
)

// videoExtensions are stripped from file names before splitting
var videoExtensions = []string{".mp4", ".m4v", ".mov", ".webm", ".mkv"}

// Fields are the kata attributes encoded in a video file name,
// e.g. "01_Taikyoku_Sono_Ichi_AzulAmarillo.mp4".
type Fields struct {
	Order     *int
	KataName  string
	BeltLevel models.BeltLevel
	Category  models.Category
}

// Classify parses a file name into kata fields
func Classify(fileName string) (Fields, error) {
	parts := strings.Split(stripExtension(fileName), nameDelimiter)
	if len(parts) < minNameParts {
		return Fields{}, fmt.Errorf("%w: %s", ErrMalformedName, fileName)
	}

	token := parts[len(parts)-1]
	belt, ok := models.BeltFromToken(token)
	if !ok {
		return Fields{}, fmt.Errorf("%w: %s in file %s", ErrUnknownBelt, token, fileName)
	}

	return Fields{
		Order:     parseLeadingInt(parts[0]),
		KataName:  strings.Join(parts[1:len(parts)-1], " "),
		BeltLevel: belt,
		Category:  models.CategoryFor(belt),
	}, nil
}

func stripExtension(fileName string) string {
	lower := strings.ToLower(fileName)
	for _, ext := range videoExtensions {
		if strings.HasSuffix(lower, ext) {
			return fileName[:len(fileName)-len(ext)]
		}
	}
	return fileName
}

// parseLeadingInt reads an optionally signed run of leading decimal digits,
// ignoring leading whitespace and any trailing text. It returns nil when no
// digit is found.
func parseLeadingInt(s string) *int {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return nil
	}

	n, err := strconv.Atoi(sign + s[:end])
	if err != nil {
		return nil
	}
	return &n
}
