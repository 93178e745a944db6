package markdown

import (
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/common"
)

// Converter turns cleaned article HTML into markdown. Conversion is
// best-effort: when the converter fails or produces nothing from
// non-empty input, the tags are stripped instead so the caller always
// gets the readable text.
type Converter struct {
	logger arbor.ILogger
}

// NewConverter creates a markdown converter.
func NewConverter(logger arbor.ILogger) *Converter {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Converter{logger: logger}
}

// Convert renders HTML as commonmark markdown.
func (c *Converter) Convert(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}

	converter := md.NewConverter("", true, nil)
	converted, err := converter.ConvertString(content)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Markdown conversion failed, stripping tags instead")
		return stripTags(content), nil
	}

	if strings.TrimSpace(converted) == "" {
		c.logger.Debug().
			Int("html_length", len(content)).
			Msg("Markdown conversion produced no output, stripping tags instead")
		return stripTags(content), nil
	}

	return converted, nil
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

func stripTags(content string) string {
	stripped := tagPattern.ReplaceAllString(content, " ")
	stripped = whitespacePattern.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(html.UnescapeString(stripped))
}
