package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is the DOM query capability adapters read product pages through.
type Document interface {
	Exists(selector string) bool
	Text(selector string) string
	HTML(selector string) string
	Attr(selector, name string) (string, bool)
	Attrs(selector, name string) []string
	// Texts returns the text of every match, e.g. each JSON-LD script body.
	Texts(selector string) []string
	// Lines returns the list items of the first match, or its text split at
	// line breaks when it has none.
	Lines(selector string) []string
	// Elements returns every match detached from the tree.
	Elements(selector string) []Element
}

// Element is one matched node: its normalized text and its attributes.
type Element struct {
	Text  string
	Attrs map[string]string
}

func (e Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// HTMLDocument implements Document with goquery.
type HTMLDocument struct {
	doc *goquery.Document
}

func NewHTMLDocument(html string) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &HTMLDocument{doc: doc}, nil
}

// NewHTMLDocumentFrom wraps an already parsed goquery document.
func NewHTMLDocumentFrom(doc *goquery.Document) *HTMLDocument {
	return &HTMLDocument{doc: doc}
}

func (d *HTMLDocument) Exists(selector string) bool {
	return d.doc.Find(selector).Length() > 0
}

func (d *HTMLDocument) Text(selector string) string {
	return normalizeSpaces(d.doc.Find(selector).First().Text())
}

func (d *HTMLDocument) HTML(selector string) string {
	html, err := d.doc.Find(selector).First().Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(html)
}

func (d *HTMLDocument) Attr(selector, name string) (string, bool) {
	v, ok := d.doc.Find(selector).First().Attr(name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (d *HTMLDocument) Attrs(selector, name string) []string {
	var out []string
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(name); ok && strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	})
	return out
}

func (d *HTMLDocument) Texts(selector string) []string {
	var out []string
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

func (d *HTMLDocument) Lines(selector string) []string {
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}

	var lines []string
	if items := sel.Find("li"); items.Length() > 0 {
		items.Each(func(_ int, li *goquery.Selection) {
			if text := normalizeSpaces(li.Text()); text != "" {
				lines = append(lines, text)
			}
		})
		return lines
	}

	// work on a copy so the document itself keeps its <br> elements
	c := sel.Clone()
	c.Find("br").ReplaceWithHtml("\n")
	c.Find("p, div").AppendHtml("\n")
	for _, part := range strings.Split(c.Text(), "\n") {
		if text := normalizeSpaces(part); text != "" {
			lines = append(lines, text)
		}
	}
	return lines
}

func (d *HTMLDocument) Elements(selector string) []Element {
	var out []Element
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		el := Element{Text: normalizeSpaces(s.Text()), Attrs: make(map[string]string)}
		for _, node := range s.Nodes {
			for _, a := range node.Attr {
				el.Attrs[a.Key] = strings.TrimSpace(a.Val)
			}
		}
		out = append(out, el)
	})
	return out
}

// SectionFrom builds a classifier Section from a description selector and a
// lines selector. Either may be empty.
func SectionFrom(doc Document, descriptionSelector, linesSelector string) Section {
	var s Section
	if descriptionSelector != "" {
		s.Description = doc.Text(descriptionSelector)
	}
	if linesSelector != "" {
		s.Lines = doc.Lines(linesSelector)
	}
	return s
}
