package sources

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/aranea/internal/models"
)

// builtinSources is the default seed catalog: the major Indian financial
// news frontpages plus the government press-release channels. Government
// sources carry a higher urgency because their pages rotate fast and are
// not linked from the news sites.
func builtinSources() []*models.NewsSource {
	catalog := []*models.NewsSource{
		{Name: "Moneycontrol", BaseURL: "https://www.moneycontrol.com/", Path: "/"},
		{Name: "Economic Times", BaseURL: "https://economictimes.indiatimes.com/", Path: "/"},
		{Name: "Business Standard", BaseURL: "https://www.business-standard.com/", Path: "/"},
		{Name: "Mint (LiveMint)", BaseURL: "https://www.livemint.com/", Path: "/"},
		{Name: "CNBC-TV18", BaseURL: "https://www.cnbctv18.com/", Path: "/"},
		{Name: "NDTV Profit", BaseURL: "https://www.ndtvprofit.com/", Path: "/"},
		{
			Name:     "PIB (Press Information Bureau)",
			BaseURL:  "https://pib.gov.in/",
			Path:     "/RssMain.aspx?ModId=6&Lang=1&Regid=3",
			Priority: -15,
			Kind:     models.SourceKindFeed,
		},
		{Name: "Ministry of Finance", BaseURL: "https://finmin.gov.in/", Path: "/press-releases", Priority: -15},
		{
			Name:     "SEBI (Securities & Exchange Board)",
			BaseURL:  "https://www.sebi.gov.in/",
			Path:     "/sebiweb/home/HomeAction.do?doListing=yes&sid=1&ssid=7&smid=0",
			Priority: -15,
		},
		{
			Name:     "RBI (Reserve Bank of India)",
			BaseURL:  "https://www.rbi.org.in/",
			Path:     "/pressreleases_rss.xml",
			Priority: -15,
			Kind:     models.SourceKindFeed,
		},
		{Name: "GST Council", BaseURL: "https://gstcouncil.gov.in/", Path: "/press-release", Priority: -15},
	}
	for _, source := range catalog {
		source.Normalize()
	}
	return catalog
}

// LoadCatalog returns the built-in catalog merged with the optional YAML
// file at path. File entries sharing a name with a built-in replace it in
// place; new names append in file order. An empty path returns the
// built-ins unchanged.
func LoadCatalog(path string) ([]*models.NewsSource, error) {
	catalog := builtinSources()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source catalog %s: %w", path, err)
	}

	var entries []*models.NewsSource
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse source catalog %s: %w", path, err)
	}

	validate := validator.New()
	index := make(map[string]int, len(catalog))
	for i, source := range catalog {
		index[source.Name] = i
	}

	for i, entry := range entries {
		if entry == nil {
			return nil, fmt.Errorf("source catalog %s: entry %d is empty", path, i+1)
		}
		if err := validate.Struct(entry); err != nil {
			return nil, fmt.Errorf("source catalog %s: invalid entry %d (%s): %w", path, i+1, entry.Name, err)
		}
		entry.Normalize()

		if pos, ok := index[entry.Name]; ok {
			catalog[pos] = entry
			continue
		}
		index[entry.Name] = len(catalog)
		catalog = append(catalog, entry)
	}

	return catalog, nil
}
