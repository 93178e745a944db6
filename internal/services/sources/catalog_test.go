package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/aranea/internal/models"
)

func writeCatalogFile(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoadCatalog_BuiltinsOnly(t *testing.T) {
	catalog, err := LoadCatalog("")
	require.NoError(t, err)
	require.Len(t, catalog, 11)

	byName := make(map[string]*models.NewsSource, len(catalog))
	for _, source := range catalog {
		byName[source.Name] = source
	}

	mc := byName["Moneycontrol"]
	require.NotNil(t, mc)
	assert.Equal(t, models.SourceKindPage, mc.Kind)
	assert.Equal(t, -10, mc.Priority)
	assert.Equal(t, "https://www.moneycontrol.com/", mc.SeedURL())

	rbi := byName["RBI (Reserve Bank of India)"]
	require.NotNil(t, rbi)
	assert.Equal(t, models.SourceKindFeed, rbi.Kind)
	assert.Equal(t, -15, rbi.Priority)
	assert.Equal(t, "https://www.rbi.org.in/pressreleases_rss.xml", rbi.SeedURL())
}

func TestLoadCatalog_FileOverridesBuiltinByName(t *testing.T) {
	path := writeCatalogFile(t, `
- name: Moneycontrol
  base_url: https://www.moneycontrol.com
  path: /news/business/markets/
  priority: -12
- name: Exchange Filings
  base_url: https://www.nseindia.com
  path: /companies-listing/corporate-filings-announcements
  priority: -15
`)

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalog, 12)

	// Overrides keep the built-in's position.
	assert.Equal(t, "Moneycontrol", catalog[0].Name)
	assert.Equal(t, -12, catalog[0].Priority)
	assert.Equal(t, "https://www.moneycontrol.com/news/business/markets/", catalog[0].SeedURL())

	last := catalog[len(catalog)-1]
	assert.Equal(t, "Exchange Filings", last.Name)
	assert.Equal(t, -15, last.Priority)
	assert.Equal(t, models.SourceKindPage, last.Kind)
}

func TestLoadCatalog_NormalizesFileEntries(t *testing.T) {
	path := writeCatalogFile(t, `
- name: Financial Express
  base_url: https://www.financialexpress.com
`)

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)

	added := catalog[len(catalog)-1]
	assert.Equal(t, "Financial Express", added.Name)
	assert.Equal(t, models.DefaultSourcePriority, added.Priority)
	assert.Equal(t, models.SourceKindPage, added.Kind)
}

func TestLoadCatalog_RejectsEntryWithoutBaseURL(t *testing.T) {
	path := writeCatalogFile(t, `
- name: Broken Source
  path: /news
`)

	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken Source")
}

func TestLoadCatalog_RejectsUnknownKind(t *testing.T) {
	path := writeCatalogFile(t, `
- name: Odd Source
  base_url: https://odd.example.com
  kind: sitemap
`)

	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Odd Source")
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read source catalog")
}

func TestLoadCatalog_MalformedYAML(t *testing.T) {
	path := writeCatalogFile(t, "sources: [\n")

	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse source catalog")
}
