package search

import (
	"strings"

	"parts-finder/internal/domain"

	"github.com/samber/lo"
)

// Options tunes the AI match channel
type Options struct {
	// CaseInsensitiveAIName makes the detected-name channel ignore case like
	// the text channel does. Off by default: the detected name is matched
	// case-sensitively.
	CaseInsensitiveAIName bool
}

// Matcher filters an inventory collection by text query and AI result
type Matcher struct {
	opts Options
}

// NewMatcher creates a matcher with the given options
func NewMatcher(opts Options) *Matcher {
	return &Matcher{opts: opts}
}

// Filter returns the items matching the query or the AI result, in input order.
//
// An item matches when the query is a case-insensitive substring of its name,
// part number or description, or when aiResult is non-nil and one of its
// possible part numbers is a case-insensitive substring of the item's part
// number, or the item's name contains the detected name. The AI channel only
// ever adds matches.
func (m *Matcher) Filter(items []domain.InventoryItem, query string, aiResult *domain.AISearchResult) []domain.InventoryItem {
	term := strings.ToLower(query)

	return lo.Filter(items, func(item domain.InventoryItem, _ int) bool {
		return matchesText(item, term) || (aiResult != nil && m.matchesAI(item, aiResult))
	})
}

func matchesText(item domain.InventoryItem, term string) bool {
	if strings.Contains(strings.ToLower(item.Name), term) ||
		strings.Contains(strings.ToLower(item.PartNumber), term) {
		return true
	}
	return item.Description != "" && strings.Contains(strings.ToLower(item.Description), term)
}

func (m *Matcher) matchesAI(item domain.InventoryItem, ai *domain.AISearchResult) bool {
	partNumber := strings.ToLower(item.PartNumber)
	if lo.SomeBy(ai.PossiblePartNumbers, func(pn string) bool {
		return strings.Contains(partNumber, strings.ToLower(pn))
	}) {
		return true
	}

	if m.opts.CaseInsensitiveAIName {
		return strings.Contains(strings.ToLower(item.Name), strings.ToLower(ai.DetectedName))
	}
	return strings.Contains(item.Name, ai.DetectedName)
}

// ByOrigin keeps the items whose origin equals the given tag.
// A nil origin keeps everything.
func ByOrigin(items []domain.InventoryItem, origin *domain.Origin) []domain.InventoryItem {
	if origin == nil {
		return items
	}
	return lo.Filter(items, func(item domain.InventoryItem, _ int) bool {
		return item.Origin == *origin
	})
}
