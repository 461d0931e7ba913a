package library

import (
	"testing"
	"time"

	"fabula/internal/format"
	"fabula/internal/metadata"
)

func TestDisplayTitleFallsBackToFileName(t *testing.T) {
	g := &Group{
		UUID: "c4139d59-872a-4d15-8cf1-76d34cdf38c6",
		Entries: []Entry{{
			Name:      "winter_tales-vol.2.zip",
			Format:    format.Archive,
			Timestamp: time.Now(),
		}},
	}

	if got := g.DisplayTitle(); got != "Winter Tales Vol 2" {
		t.Errorf("DisplayTitle = %q", got)
	}
}

func TestDisplayTitlePrefersEnrichment(t *testing.T) {
	g := &Group{
		UUID:     "c4139d59-872a-4d15-8cf1-76d34cdf38c6",
		Enriched: &metadata.PackMetadata{Title: "Official Title"},
		Entries: []Entry{{
			Name:   "whatever.pack",
			Format: format.Raw,
		}},
	}
	if got := g.DisplayTitle(); got != "Official Title" {
		t.Errorf("DisplayTitle = %q", got)
	}
}

func TestDisplayTitleEmptyGroup(t *testing.T) {
	g := &Group{UUID: "c4139d59-872a-4d15-8cf1-76d34cdf38c6"}
	if got := g.DisplayTitle(); got != g.UUID {
		t.Errorf("DisplayTitle = %q, want uuid fallback", got)
	}
}
