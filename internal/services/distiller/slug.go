package distiller

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SlugConfig tunes the slug-heuristic article detector for hosts whose
// article URLs carry no trailing numeric ID. Zero values disable the
// corresponding check.
type SlugConfig struct {
	MinSlugLength      int
	MinHyphenCount     int
	MinPathDepth       int
	MinTotalPathLength int
	MinHyphenRatio     float64
	RequireLowercase   bool
	ExcludePaths       []string
}

func (c *SlugConfig) pathExcluded(part string) bool {
	for _, excluded := range c.ExcludePaths {
		if part == excluded {
			return true
		}
	}
	return false
}

// IsProbableArticleSlug reports whether a URL path looks like an
// article permalink: deep enough, not a utility page, and ending in a
// long hyphenated slug.
func IsProbableArticleSlug(path string, cfg *SlugConfig) bool {
	var parts []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 || len(parts) < cfg.MinPathDepth {
		return false
	}

	for _, part := range parts {
		if cfg.pathExcluded(strings.ToLower(part)) {
			return false
		}
	}

	if len(strings.Join(parts, "/")) < cfg.MinTotalPathLength {
		return false
	}

	slug := parts[len(parts)-1]
	if len(slug) < cfg.MinSlugLength {
		return false
	}

	hyphens := strings.Count(slug, "-")
	if hyphens < cfg.MinHyphenCount {
		return false
	}
	if float64(hyphens)/float64(len(slug)) < cfg.MinHyphenRatio {
		return false
	}

	if cfg.RequireLowercase && slug != strings.ToLower(slug) {
		return false
	}

	return true
}

// SlugArticleLinks finds same-host links whose path passes the slug
// heuristic. Queries and fragments are stripped before resolution.
func (d *Distiller) SlugArticleLinks(baseURL string, cfg *SlugConfig) []string {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" || cfg == nil {
		return nil
	}

	seen := make(map[string]struct{})
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if idx := strings.IndexAny(href, "?#"); idx >= 0 {
			href = href[:idx]
		}
		absolute, ok := absolutizeSameHost(href, base.Host)
		if !ok {
			return
		}
		parsed, err := url.Parse(absolute)
		if err != nil || !IsProbableArticleSlug(parsed.Path, cfg) {
			return
		}
		seen[absolute] = struct{}{}
	})
	return sortedKeys(seen)
}
