package scrapers

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/interfaces"
	"github.com/ternarybob/aranea/internal/models"
	"github.com/ternarybob/aranea/internal/services/distiller"
)

// Service dispatches each URL to its host profile and runs the scrape
// recipe: fetch, extract, clean.
type Service struct {
	client interfaces.FetchClient
	logger arbor.ILogger

	mu       sync.RWMutex
	profiles map[string]*Profile
	generic  *Profile
}

// NewService creates the dispatcher with the built-in host profiles
// registered.
func NewService(client interfaces.FetchClient, logger arbor.ILogger) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	s := &Service{
		client:   client,
		logger:   logger,
		profiles: make(map[string]*Profile),
		generic:  GenericProfile(),
	}

	ndtv := NDTVProfile()
	for _, host := range []string{"ndtv.com", "www.ndtv.com", "ndtvprofit.com", "www.ndtvprofit.com"} {
		s.Register(host, ndtv)
	}
	s.Register("republicworld.com", RepublicProfile())

	return s
}

// Register binds a host to a profile, replacing any previous binding.
func (s *Service) Register(host string, profile *Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[strings.ToLower(host)] = profile
}

// ProfileFor looks up a host exactly, then with the www prefix
// stripped, and falls back to the generic profile.
func (s *Service) ProfileFor(host string) *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	host = strings.ToLower(host)
	if profile, ok := s.profiles[host]; ok {
		return profile
	}
	if stripped := strings.TrimPrefix(host, "www."); stripped != host {
		if profile, ok := s.profiles[stripped]; ok {
			return profile
		}
	}
	return s.generic
}

// Scrape fetches the URL through the fallback pipeline and distills it
// into a ScrapeResult under the host's profile.
func (s *Service) Scrape(ctx context.Context, rawURL string) (*models.ScrapeResult, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid scrape url %q: %w", rawURL, err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid scrape url %q: missing host", rawURL)
	}

	profile := s.ProfileFor(parsed.Host)
	s.logger.Info().
		Str("url", rawURL).
		Str("profile", profile.Name).
		Msg("Starting scrape")

	resp, err := s.client.Fetch(ctx, &models.HTTPRequest{URL: rawURL})
	if err != nil {
		return nil, err
	}

	d, err := distiller.New(resp.Content, s.logger)
	if err != nil {
		return nil, err
	}

	meta := d.MetaTags()
	images := d.ImageURLs()
	jsonLD := d.JSONLDBlocks()
	links := d.ArticleLinks(rawURL)

	if profile.SlugRules != nil {
		links = mergeLinks(links, d.SlugArticleLinks(rawURL, profile.SlugRules))
	}
	if profile.MergeResolvedLinks {
		links = mergeLinks(links, d.ResolvedLinks(rawURL, profile.MinResolvedLinkLength))
	}

	cleaned, err := d.Clean()
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("url", rawURL).
		Str("profile", profile.Name).
		Int("meta_tags", len(meta)).
		Int("images", len(images)).
		Int("json_ld", len(jsonLD)).
		Int("article_links", len(links)).
		Msg("Scrape completed")

	return &models.ScrapeResult{
		URL:          rawURL,
		HTML:         resp.Content,
		CleanedHTML:  cleaned,
		MetaTags:     meta,
		Images:       images,
		JSONLDBlocks: jsonLD,
		ArticleLinks: links,
	}, nil
}

func mergeLinks(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, link := range a {
		seen[link] = struct{}{}
	}
	for _, link := range b {
		seen[link] = struct{}{}
	}
	merged := make([]string, 0, len(seen))
	for link := range seen {
		merged = append(merged, link)
	}
	sort.Strings(merged)
	return merged
}
