package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/common"
)

// defaultExcludeURLPatterns reject listing/utility/asset URLs before
// they reach the frontier.
var defaultExcludeURLPatterns = []string{
	`/tag/`,
	`/category/`,
	`/author/`,
	`/search\?`,
	`\.(pdf|doc|docx|xls|xlsx|zip|rar)$`,
	`#`,
}

// robotsNoindexPattern matches a robots meta that asks not to be indexed.
var robotsNoindexPattern = `<meta\s+name=["']robots["']\s+content=["']noindex`

// ogTypePattern captures the og:type value; RE2 has no negative
// lookahead, so the article check happens in code.
var ogTypePattern = regexp.MustCompile(`(?i)<meta\s+property=["']og:type["']\s+content=["']([^"']+)`)

// Rule is one exclusion rule. Either check may be a no-op; a non-empty
// reason explains the match.
type Rule interface {
	Name() string
	ExcludeURL(url string) (bool, string)
	ExcludeContent(url, content string) (bool, string)
}

// PatternRule excludes by regex over the URL and the raw content.
type PatternRule struct {
	name            string
	urlPatterns     []*regexp.Regexp
	contentPatterns []*regexp.Regexp
}

// NewPatternRule compiles case-insensitive URL and content patterns.
func NewPatternRule(name string, urlPatterns, contentPatterns []string) (*PatternRule, error) {
	rule := &PatternRule{name: name}
	for _, pattern := range urlPatterns {
		compiled, err := regexp.Compile(`(?i)` + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid url pattern %q: %w", pattern, err)
		}
		rule.urlPatterns = append(rule.urlPatterns, compiled)
	}
	for _, pattern := range contentPatterns {
		compiled, err := regexp.Compile(`(?i)` + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid content pattern %q: %w", pattern, err)
		}
		rule.contentPatterns = append(rule.contentPatterns, compiled)
	}
	return rule, nil
}

func (r *PatternRule) Name() string { return r.name }

func (r *PatternRule) ExcludeURL(url string) (bool, string) {
	for _, pattern := range r.urlPatterns {
		if pattern.MatchString(url) {
			return true, fmt.Sprintf("url matches %s", pattern.String())
		}
	}
	return false, ""
}

func (r *PatternRule) ExcludeContent(url, content string) (bool, string) {
	for _, pattern := range r.contentPatterns {
		if pattern.MatchString(content) {
			return true, fmt.Sprintf("content matches %s", pattern.String())
		}
	}
	return false, ""
}

// OGTypeRule excludes pages whose og:type meta names a non-article
// type (video, website, profile and so on).
type OGTypeRule struct{}

func (OGTypeRule) Name() string { return "og-type" }

func (OGTypeRule) ExcludeURL(url string) (bool, string) { return false, "" }

func (OGTypeRule) ExcludeContent(url, content string) (bool, string) {
	match := ogTypePattern.FindStringSubmatch(content)
	if match == nil {
		return false, ""
	}
	ogType := strings.TrimSpace(match[1])
	if ogType == "" || strings.HasPrefix(strings.ToLower(ogType), "article") {
		return false, ""
	}
	return true, fmt.Sprintf("og:type %q is not an article", ogType)
}

// FilterService applies ordered rules with short-circuit on the first
// exclusion.
type FilterService struct {
	rules  []Rule
	logger arbor.ILogger
}

// NewFilterService builds a filter chain from explicit rules.
func NewFilterService(logger arbor.ILogger, rules ...Rule) *FilterService {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &FilterService{rules: rules, logger: logger}
}

// NewDefaultFilterService builds the standard chain: URL patterns plus
// robots noindex, then the og:type check.
func NewDefaultFilterService(logger arbor.ILogger) *FilterService {
	rule, err := NewPatternRule("default-patterns", defaultExcludeURLPatterns, []string{robotsNoindexPattern})
	if err != nil {
		// Default patterns are literals; this cannot happen.
		panic(err)
	}
	return NewFilterService(logger, rule, OGTypeRule{})
}

// Exclude evaluates every rule against the URL and content. Either
// argument may be empty; URL checks run before content checks within
// each rule.
func (s *FilterService) Exclude(url string, content string) (bool, string) {
	for _, rule := range s.rules {
		if url != "" {
			if excluded, reason := rule.ExcludeURL(url); excluded {
				s.logger.Debug().
					Str("rule", rule.Name()).
					Str("url", url).
					Str("reason", reason).
					Msg("URL excluded")
				return true, reason
			}
		}
		if content != "" {
			if excluded, reason := rule.ExcludeContent(url, content); excluded {
				s.logger.Debug().
					Str("rule", rule.Name()).
					Str("url", url).
					Str("reason", reason).
					Msg("Content excluded")
				return true, reason
			}
		}
	}
	return false, ""
}
