package gallery

import (
	"sort"
	"strings"

	"github.com/mmcdole/photure/internal/domain"
	"github.com/sahilm/fuzzy"
)

// Filter keeps the photos whose display name fuzzy-matches query, in their
// original order. An empty query returns photos unchanged.
func Filter(photos []domain.Photo, query string) []domain.Photo {
	query = strings.TrimSpace(query)
	if query == "" {
		return photos
	}

	lowerNames := make([]string, len(photos))
	for i, p := range photos {
		lowerNames[i] = strings.ToLower(p.DisplayName())
	}

	matches := fuzzy.Find(strings.ToLower(query), lowerNames)

	idx := make([]int, len(matches))
	for i, match := range matches {
		idx[i] = match.Index
	}
	sort.Ints(idx)

	out := make([]domain.Photo, len(idx))
	for i, j := range idx {
		out[i] = photos[j]
	}
	return out
}
