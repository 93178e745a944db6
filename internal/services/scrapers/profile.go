package scrapers

import (
	"github.com/ternarybob/aranea/internal/services/distiller"
)

// Profile tunes link discovery for one host family. Profiles are data;
// the scrape recipe itself is identical for every host.
type Profile struct {
	Name string

	// MergeResolvedLinks unions the loose same-host discovery pass into
	// the article links.
	MergeResolvedLinks    bool
	MinResolvedLinkLength int

	// SlugRules enables the slug-heuristic detector for hosts whose
	// article URLs carry no trailing numeric ID.
	SlugRules *distiller.SlugConfig
}

// GenericProfile relies on the numeric-ID detector alone.
func GenericProfile() *Profile {
	return &Profile{Name: "generic"}
}

// NDTVProfile merges loose discovery because NDTV section pages link
// many articles through short URLs the ID detector misses.
func NDTVProfile() *Profile {
	return &Profile{
		Name:                  "ndtv",
		MergeResolvedLinks:    true,
		MinResolvedLinkLength: 25,
	}
}

// RepublicProfile uses slug detection; Republic article URLs end in a
// long hyphenated headline instead of a numeric ID.
func RepublicProfile() *Profile {
	return &Profile{
		Name:                  "republic",
		MergeResolvedLinks:    true,
		MinResolvedLinkLength: 25,
		SlugRules: &distiller.SlugConfig{
			MinSlugLength:      30,
			MinHyphenCount:     3,
			MinPathDepth:       1,
			MinTotalPathLength: 50,
			MinHyphenRatio:     0.05,
			RequireLowercase:   true,
			ExcludePaths:       []string{"about", "contact", "privacy", "terms", "login", "signup", "home", "index"},
		},
	}
}
