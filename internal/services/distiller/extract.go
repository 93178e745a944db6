package distiller

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// articleIDPattern matches the trailing numeric ID most news CMSes put
// at the end of an article path.
var articleIDPattern = regexp.MustCompile(`-\d+$`)

// imageSourceAttrs are the attributes lazy-loading variants stash image
// URLs in.
var imageSourceAttrs = []string{"src", "data-src", "data-lazy", "data-original", "data-srcset"}

// MetaTags returns every <meta> as key/value, where the key is the
// first non-empty of property, name, itemprop. Tags without a key or
// without content are skipped; later duplicates overwrite earlier ones.
func (d *Distiller) MetaTags() map[string]string {
	tags := make(map[string]string)
	d.doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key := firstNonEmptyAttr(s, "property", "name", "itemprop")
		if key == "" {
			return
		}
		content, _ := s.Attr("content")
		if content == "" {
			return
		}
		tags[strings.TrimSpace(key)] = strings.TrimSpace(content)
	})
	return tags
}

// ImageURLs returns the union of every image source attribute across
// all <img> tags, trimmed, deduped and sorted.
func (d *Distiller) ImageURLs() []string {
	seen := make(map[string]struct{})
	d.doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range imageSourceAttrs {
			val, ok := s.Attr(attr)
			if !ok {
				continue
			}
			if trimmed := strings.TrimSpace(val); trimmed != "" {
				seen[trimmed] = struct{}{}
			}
		}
	})
	return sortedKeys(seen)
}

// JSONLDBlocks returns the trimmed text of each JSON-LD script in
// document order.
func (d *Distiller) JSONLDBlocks() []string {
	var blocks []string
	d.doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); text != "" {
			blocks = append(blocks, strings.TrimSpace(text))
		}
	})
	return blocks
}

// ArticleLinks finds same-host links that end in a numeric article ID.
// Root-relative hrefs are absolutized against the base host, query
// strings are stripped, and short URLs are rejected; what survives must
// have a path ending in -<digits>.
func (d *Distiller) ArticleLinks(baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil
	}

	seen := make(map[string]struct{})
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		absolute, ok := absolutizeSameHost(href, base.Host)
		if !ok {
			return
		}
		if idx := strings.Index(absolute, "?"); idx >= 0 {
			absolute = absolute[:idx]
		}
		if len(absolute) < 80 {
			return
		}
		parsed, err := url.Parse(absolute)
		if err != nil || !articleIDPattern.MatchString(parsed.Path) {
			return
		}
		seen[absolute] = struct{}{}
	})
	return sortedKeys(seen)
}

// ResolvedLinks is the loose discovery pass: every same-host link
// longer than minLength, absolutized, deduped and sorted.
func (d *Distiller) ResolvedLinks(baseURL string, minLength int) []string {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil
	}

	seen := make(map[string]struct{})
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		absolute, ok := absolutizeSameHost(href, base.Host)
		if !ok {
			return
		}
		if len(absolute) > minLength {
			seen[absolute] = struct{}{}
		}
	})
	return sortedKeys(seen)
}

// absolutizeSameHost resolves a root-relative href against the base
// host and accepts absolute hrefs only when their host matches.
// Protocol-relative and path-relative hrefs are skipped.
func absolutizeSameHost(href, baseHost string) (string, bool) {
	switch {
	case href == "", strings.HasPrefix(href, "//"):
		return "", false
	case strings.HasPrefix(href, "/"):
		return "https://" + baseHost + href, true
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		parsed, err := url.Parse(href)
		if err != nil || parsed.Host != baseHost {
			return "", false
		}
		return href, true
	default:
		return "", false
	}
}

func firstNonEmptyAttr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if val, ok := s.Attr(name); ok && val != "" {
			return val
		}
	}
	return ""
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
