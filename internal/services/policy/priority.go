package policy

import "regexp"

// Priority classes; lower values drain first.
const (
	PriorityHigh = -10
	PriorityLow  = 10
)

// excludeSectionPatterns name site sections that never carry market
// moving news.
var excludeSectionPatterns = compilePatterns([]string{
	`/sports?/`,
	`/cricket/`,
	`/football/`,
	`/tennis/`,
	`/basketball/`,
	`/olympics?/`,
	`/entertainment/`,
	`/bollywood/`,
	`/hollywood/`,
	`/celebrity/`,
	`/movie/`,
	`/music/`,
	`/tv/`,
	`/lifestyle/`,
	`/fashion/`,
	`/beauty/`,
	`/travel/`,
	`/food/`,
	`/recipe/`,
	`/horoscope/`,
	`/astrology/`,
})

var highPriorityPatterns = compilePatterns([]string{
	`/business/`,
	`/markets?/`,
	`/economy/`,
	`/economics/`,
	`/finance/`,
	`/stocks?/`,
	`/companies?/`,
	`/industry/`,
	`/bank(s|ing)/`,
	`/commodities?/`,
	`/ipo/`,
	`/earnings?/`,
	`/results?/`,
	`/policy/`,
	`/regulator/`,
	`/rbi/`,
	`/sebi/`,
	`/government/`,
})

var lowPriorityPatterns = compilePatterns([]string{
	`/opinion/`,
	`/editorial/`,
	`/feature/`,
	`/analysis/`,
	`/interview/`,
})

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+pattern))
	}
	return compiled
}

// PriorityPolicy scores URLs by their path sections. Business and
// regulatory sections drain first, commentary drains last, and junk
// sections are rejected outright.
type PriorityPolicy struct {
	exclude []*regexp.Regexp
	high    []*regexp.Regexp
	low     []*regexp.Regexp
}

// NewPriorityPolicy returns the policy with the default section patterns.
func NewPriorityPolicy() *PriorityPolicy {
	return &PriorityPolicy{
		exclude: excludeSectionPatterns,
		high:    highPriorityPatterns,
		low:     lowPriorityPatterns,
	}
}

// Score returns the priority for a URL and whether it is excluded.
// Excluded URLs never enter the frontier regardless of priority.
func (p *PriorityPolicy) Score(url string) (int, bool) {
	for _, pattern := range p.exclude {
		if pattern.MatchString(url) {
			return 0, true
		}
	}
	for _, pattern := range p.high {
		if pattern.MatchString(url) {
			return PriorityHigh, false
		}
	}
	for _, pattern := range p.low {
		if pattern.MatchString(url) {
			return PriorityLow, false
		}
	}
	return 0, false
}
