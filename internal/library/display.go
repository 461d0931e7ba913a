package library

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fabula/internal/format"
)

// DisplayTitle picks the best human-readable title for a pack group:
// the enrichment record first, then embedded archive metadata, then a
// title-cased rendering of the newest entry's file name.
func (g *Group) DisplayTitle() string {
	if g.Enriched != nil && strings.TrimSpace(g.Enriched.Title) != "" {
		return g.Enriched.Title
	}
	for _, entry := range g.Entries {
		if entry.Metadata != nil && strings.TrimSpace(entry.Metadata.Title) != "" {
			return entry.Metadata.Title
		}
	}
	if len(g.Entries) == 0 {
		return g.UUID
	}
	return titleFromName(g.Entries[0].Name, g.Entries[0].Format)
}

// titleFromName derives a display title from a library file name by
// stripping the format extension and title-casing the remainder.
func titleFromName(name string, f format.PackFormat) string {
	base := strings.TrimSuffix(name, f.Extension())
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return name
	}
	return cases.Title(language.Und).String(base)
}
