package distiller

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func mustDistiller(t *testing.T, html string) *Distiller {
	t.Helper()
	d, err := New(html, arbor.NewLogger())
	require.NoError(t, err)
	return d
}

func TestClean_RemovesScriptsKeepsJSONLD(t *testing.T) {
	d := mustDistiller(t, `<html><body>
		<script>window.track()</script>
		<script type="application/ld+json">{"@type":"NewsArticle"}</script>
		<p>story text</p>
	</body></html>`)

	cleaned, err := d.Clean()
	require.NoError(t, err)
	assert.NotContains(t, cleaned, "window.track")
	assert.Contains(t, cleaned, `{"@type":"NewsArticle"}`)
	assert.Contains(t, cleaned, "story text")
}

func TestClean_RemovesCSSAndStyleAttributes(t *testing.T) {
	d := mustDistiller(t, `<html><head><style>p{color:red}</style></head><body>
		<p style="font-size:12px">styled text</p>
	</body></html>`)

	cleaned, err := d.Clean()
	require.NoError(t, err)
	assert.NotContains(t, cleaned, "color:red")
	assert.NotContains(t, cleaned, "style=")
	assert.Contains(t, cleaned, "styled text")
}

func TestClean_RemovesIframesAndSVG(t *testing.T) {
	d := mustDistiller(t, `<html><body>
		<iframe src="https://ads.example.com/frame"></iframe>
		<svg viewBox="0 0 10 10"><circle r="4"/></svg>
		<p>kept</p>
	</body></html>`)

	cleaned, err := d.Clean()
	require.NoError(t, err)
	assert.NotContains(t, cleaned, "iframe")
	assert.NotContains(t, cleaned, "svg")
	assert.Contains(t, cleaned, "kept")
}

func TestClean_RemovesJunkTextBlocks(t *testing.T) {
	d := mustDistiller(t, `<html><body>
		<div><span>Advertisement</span></div>
		<div>Related Articles</div>
		<p>the actual story continues here</p>
	</body></html>`)

	cleaned, err := d.Clean()
	require.NoError(t, err)
	assert.NotContains(t, cleaned, "Advertisement")
	assert.NotContains(t, cleaned, "Related Articles")
	assert.Contains(t, cleaned, "the actual story continues here")
}

func TestClean_RemovesClassesAndIDs(t *testing.T) {
	d := mustDistiller(t, `<html><body>
		<p class="lead story" id="para-1" data-track="keep-if-nonempty">text body</p>
	</body></html>`)

	cleaned, err := d.Clean()
	require.NoError(t, err)
	assert.NotContains(t, cleaned, "class=")
	assert.NotContains(t, cleaned, "id=")
	assert.Contains(t, cleaned, "data-track")
	assert.Contains(t, cleaned, "text body")
}

func TestClean_DropsEmptyAttributesAndLayoutTags(t *testing.T) {
	d := mustDistiller(t, `<html><body>
		<nav><a href="/home">home</a></nav>
		<header>masthead</header>
		<p data-empty="" title="note">content line</p>
		<footer>copyright</footer>
	</body></html>`)

	cleaned, err := d.Clean()
	require.NoError(t, err)
	assert.NotContains(t, cleaned, "nav")
	assert.NotContains(t, cleaned, "masthead")
	assert.NotContains(t, cleaned, "copyright")
	assert.NotContains(t, cleaned, "data-empty")
	assert.Contains(t, cleaned, `title="note"`)
	assert.Contains(t, cleaned, "content line")
}

func TestClean_CollapsesDeeplyNestedWrappers(t *testing.T) {
	html := strings.Repeat("<div>", 5000) + "<p>text</p>" + strings.Repeat("</div>", 5000)
	d := mustDistiller(t, html)

	cleaned, err := d.Clean()
	require.NoError(t, err)
	assert.Equal(t, "<p>text</p>", cleaned)
}

func TestClean_DeepPrunesEmptyContainers(t *testing.T) {
	// The inner span is empty; removing it leaves the section empty,
	// which the fixed point then removes as well.
	d := mustDistiller(t, `<html><body>
		<section><div><span>   </span></div></section>
		<p>survivor</p>
	</body></html>`)

	cleaned, err := d.Clean()
	require.NoError(t, err)
	assert.NotContains(t, cleaned, "section")
	assert.NotContains(t, cleaned, "span")
	assert.Contains(t, cleaned, "survivor")
}

func TestClean_KeepsOnlyBodyContent(t *testing.T) {
	d := mustDistiller(t, `<html><head><title>Page Title</title>
		<meta name="description" content="desc"></head>
		<body><p>body content</p></body></html>`)

	cleaned, err := d.Clean()
	require.NoError(t, err)
	assert.NotContains(t, cleaned, "Page Title")
	assert.NotContains(t, cleaned, "meta")
	assert.Contains(t, cleaned, "body content")
}

func TestClean_Idempotent(t *testing.T) {
	d := mustDistiller(t, `<html><head><style>a{}</style></head><body>
		<div class="wrap" id="main"><div><article>
			<script>junk()</script>
			<p style="color:blue">first paragraph</p>
			<div><span></span></div>
			<div>Sponsored</div>
		</article></div></div>
	</body></html>`)

	once, err := d.Clean()
	require.NoError(t, err)

	again, err := mustDistiller(t, once).Clean()
	require.NoError(t, err)
	assert.Equal(t, once, again)
}
