package distiller

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/net/html"

	"github.com/ternarybob/aranea/internal/common"
)

// Distiller parses one HTML document and exposes extraction plus the
// cleaning pipeline over the same parsed tree. Extraction reads the
// live tree, so callers extract first and clean after; Clean mutates
// the tree in place.
type Distiller struct {
	doc    *goquery.Document
	logger arbor.ILogger
}

// New parses raw HTML into a Distiller.
func New(rawHTML string, logger arbor.ILogger) (*Distiller, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Distiller{doc: doc, logger: logger}, nil
}

// junkTextBlocks are boilerplate labels; any element whose entire
// trimmed text is one of these is dropped with its subtree.
var junkTextBlocks = map[string]struct{}{
	"advertisement":    {},
	"sponsored":        {},
	"promoted":         {},
	"related articles": {},
	"recommended":      {},
	"you may like":     {},
	"newsletters":      {},
}

// Clean runs the full cleaning pipeline and returns the serialized
// content of <body>. The pipeline is idempotent: cleaning its own
// output changes nothing.
func (d *Distiller) Clean() (string, error) {
	d.removeScripts()
	d.removeCSS()
	d.removeIframes()
	d.removeSVG()
	d.removeJunkTextBlocks()
	d.removeClassesAndIDs()
	d.removeEmptyTags()
	d.aggressiveCleanup()
	if err := d.keepOnlyBody(); err != nil {
		return "", err
	}
	d.removeLayoutTags()
	d.collapseWrappers()
	d.deepPruneEmpty()

	cleaned, err := d.doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize cleaned HTML: %w", err)
	}
	return cleaned, nil
}

// removeScripts drops every <script> except JSON-LD, which survives
// cleaning as structured article data.
func (d *Distiller) removeScripts() {
	d.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if t, _ := s.Attr("type"); strings.EqualFold(strings.TrimSpace(t), "application/ld+json") {
			return
		}
		s.Remove()
	})
}

func (d *Distiller) removeCSS() {
	d.doc.Find("style").Remove()
	d.doc.Find("[style]").RemoveAttr("style")
}

func (d *Distiller) removeIframes() {
	d.doc.Find("iframe").Remove()
}

func (d *Distiller) removeSVG() {
	d.doc.Find("svg").Remove()
}

func (d *Distiller) removeJunkTextBlocks() {
	d.doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "html", "head", "body":
			return
		}
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		if _, junk := junkTextBlocks[text]; junk {
			s.Remove()
		}
	})
}

func (d *Distiller) removeClassesAndIDs() {
	d.doc.Find("[class]").RemoveAttr("class")
	d.doc.Find("[id]").RemoveAttr("id")
}

// removeEmptyTags is the single-pass sweep; deepPruneEmpty below runs
// the fixed-point version after wrappers collapse.
func (d *Distiller) removeEmptyTags() {
	d.doc.Find("div, span, section, article, p, aside, header, footer").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() == 0 && strings.TrimSpace(s.Text()) == "" {
			s.Remove()
		}
	})
}

// aggressiveCleanup drops empty-valued attributes and whitespace-only
// text nodes via direct node surgery.
func (d *Distiller) aggressiveCleanup() {
	for _, root := range d.doc.Nodes {
		pruneNode(root)
	}
}

func pruneNode(n *html.Node) {
	if n.Type == html.ElementNode {
		attrs := n.Attr[:0]
		for _, a := range n.Attr {
			if a.Val != "" {
				attrs = append(attrs, a)
			}
		}
		n.Attr = attrs
	}
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.TextNode && strings.TrimSpace(child.Data) == "" {
			n.RemoveChild(child)
		} else {
			pruneNode(child)
		}
		child = next
	}
}

// keepOnlyBody reparses with the <body> subtree as the document root,
// discarding <head> and anything outside the body.
func (d *Distiller) keepOnlyBody() error {
	bodyHTML, err := d.doc.Find("body").Html()
	if err != nil {
		return fmt.Errorf("failed to serialize body: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML))
	if err != nil {
		return fmt.Errorf("failed to reparse body: %w", err)
	}
	d.doc = doc
	return nil
}

func (d *Distiller) removeLayoutTags() {
	d.doc.Find("nav, aside, footer, header, menu").Remove()
}

// collapseWrappers unwraps div-only nesting to a fixed point: a <div>
// with exactly one element child is replaced by that child.
func (d *Distiller) collapseWrappers() {
	for {
		collapsed := false
		d.doc.Find("div").Each(func(_ int, s *goquery.Selection) {
			children := s.Children()
			if children.Length() != 1 {
				return
			}
			s.ReplaceWithSelection(children)
			collapsed = true
		})
		if !collapsed {
			return
		}
	}
}

// deepPruneEmpty deletes childless, textless containers to a fixed
// point; collapsing wrappers can expose new empties.
func (d *Distiller) deepPruneEmpty() {
	for {
		removed := false
		d.doc.Find("div, span, section").Each(func(_ int, s *goquery.Selection) {
			if s.Children().Length() == 0 && strings.TrimSpace(s.Text()) == "" {
				s.Remove()
				removed = true
			}
		})
		if !removed {
			return
		}
	}
}
