package models

import (
	"strings"
)

// SourceKind selects how a seed source is turned into queue entries
type SourceKind string

const (
	// SourceKindPage enqueues the seed URL itself
	SourceKindPage SourceKind = "page"
	// SourceKindFeed fetches the seed URL as RSS/Atom and enqueues entry links
	SourceKindFeed SourceKind = "feed"
)

// DefaultSourcePriority is assigned to catalog entries that omit a priority
const DefaultSourcePriority = -10

// NewsSource is one entry of the seed-source catalog
type NewsSource struct {
	Name     string     `yaml:"name" json:"name" validate:"required"`
	BaseURL  string     `yaml:"base_url" json:"base_url" validate:"required,url"`
	Path     string     `yaml:"path" json:"path"`
	Priority int        `yaml:"priority" json:"priority"`
	Kind     SourceKind `yaml:"kind" json:"kind" validate:"omitempty,oneof=page feed"`
}

// SeedURL joins base URL and path with exactly one separating slash
func (s *NewsSource) SeedURL() string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(s.Path, "/")
}

// Normalize fills in defaults for omitted fields. A zero priority takes
// the catalog default; an empty kind means page.
func (s *NewsSource) Normalize() {
	if s.Priority == 0 {
		s.Priority = DefaultSourcePriority
	}
	if s.Kind == "" {
		s.Kind = SourceKindPage
	}
}
