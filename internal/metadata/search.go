package metadata

import (
	"context"
	"strings"

	"crmbridge/internal/lexicon"
)

// SearchEntities returns entity summaries whose logical name, display name,
// or display-collection name contains the search text. Matching is
// case-insensitive and diacritic-insensitive.
func (c *Cache) SearchEntities(ctx context.Context, text string) ([]EntitySummary, error) {
	entries, err := c.ListEntities(ctx, false)
	if err != nil {
		return nil, err
	}

	needle := lexicon.Normalize(text)
	if needle == "" {
		return entries, nil
	}

	matches := make([]EntitySummary, 0)
	for _, entry := range entries {
		if containsNormalized(entry.Name, needle) ||
			containsNormalized(entry.DisplayName, needle) ||
			containsNormalized(entry.DisplayCollectionName, needle) {
			matches = append(matches, entry)
		}
	}
	return matches, nil
}

// SearchAttributes returns an entity's attributes whose logical or display
// name contains the search text, loading the entity's schema if needed.
func (c *Cache) SearchAttributes(ctx context.Context, entity, text string) ([]Attribute, error) {
	schema, err := c.GetEntityDetails(ctx, entity, DetailOptions{IncludeAttributes: true})
	if err != nil {
		return nil, err
	}

	needle := lexicon.Normalize(text)
	matches := make([]Attribute, 0)
	for _, attr := range schema.Attributes {
		if needle == "" ||
			containsNormalized(attr.LogicalName, needle) ||
			containsNormalized(attr.DisplayName, needle) {
			matches = append(matches, attr)
		}
	}
	return matches, nil
}

func containsNormalized(haystack, needle string) bool {
	return strings.Contains(lexicon.Normalize(haystack), needle)
}
