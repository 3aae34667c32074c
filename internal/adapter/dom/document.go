package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/user/scraper-service/internal/repository"
)

// Document is a parsed DOM snapshot queried with CSS selectors.
type Document struct {
	node
}

// Parse builds a Document from HTML markup.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return &Document{node{sel: doc.Selection}}, nil
}

// ParseString is Parse for in-memory markup.
func ParseString(html string) (*Document, error) {
	return Parse(strings.NewReader(html))
}

type node struct {
	sel *goquery.Selection
}

var _ repository.Node = node{}

func (n node) find(selector string) *goquery.Selection {
	m, err := cascadia.Compile(selector)
	if err != nil {
		// Selectors are validated when the registry loads; an invalid one matches nothing.
		return n.sel.FilterFunction(func(int, *goquery.Selection) bool { return false })
	}
	return n.sel.FindMatcher(m)
}

func (n node) LocateAll(selector string) []repository.Node {
	found := n.find(selector)
	nodes := make([]repository.Node, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, node{sel: s})
	})
	return nodes
}

func (n node) LocateFirst(selector string) (repository.Node, bool) {
	found := n.find(selector).First()
	if found.Length() == 0 {
		return nil, false
	}
	return node{sel: found}, true
}

func (n node) Count(selector string) int {
	return n.find(selector).Length()
}

// invisible matches descendants whose text a rendered page never shows.
var invisible = cascadia.MustCompile(`script, style, noscript, template, [hidden], [style*="display:none"], [style*="display: none"]`)

// Text returns the visible text with whitespace runs collapsed, the way
// rendered innerText reads.
func (n node) Text() string {
	sel := n.sel
	if sel.FindMatcher(invisible).Length() > 0 {
		sel = sel.Clone()
		sel.FindMatcher(invisible).Remove()
	}
	return strings.Join(strings.Fields(sel.Text()), " ")
}

func (n node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

// ValidSelector reports whether selector compiles as CSS.
func ValidSelector(selector string) error {
	if _, err := cascadia.Compile(selector); err != nil {
		return fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return nil
}
