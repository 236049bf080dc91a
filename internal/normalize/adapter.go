package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/maltedev/feed-normalizer/internal/models"
	"github.com/maltedev/feed-normalizer/internal/parser"
)

// Adapter turns one vendor page into normalizer input.
type Adapter interface {
	Adapt(doc parser.Document) (Input, error)
}

// Selectors configures a SelectorAdapter. Empty selectors are skipped.
type Selectors struct {
	Name        string
	Price       string
	SKU         string
	SKUAttr     string
	Images      string
	ImageAttr   string
	Description string
	// Lines are classified in order, e.g. a feature list then a spec table.
	Lines []string
	// Measurements are mined for dimensions and weight only.
	Measurements []string
	JSONLD       string
	// Options matches one <select> per option group. The group label is read
	// from OptionLabelAttr and every <option> becomes a value; its
	// data-price-delta attribute is the price delta.
	Options         string
	OptionLabelAttr string
}

// DefaultSelectors matches common storefront markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Name:            "h1",
		Price:           "[itemprop=price], .price",
		SKU:             "[itemprop=sku]",
		Images:          ".product-gallery img, img.product-image",
		ImageAttr:       "src",
		Description:     ".product-description",
		Lines:           []string{".product-features", ".product-specs"},
		Measurements:    []string{".product-dimensions"},
		JSONLD:          `script[type="application/ld+json"]`,
		Options:         "select[data-option-group]",
		OptionLabelAttr: "data-option-group",
	}
}

// SelectorAdapter reads a page through CSS selectors. Embedded JSON-LD fills
// whatever the selectors leave empty.
type SelectorAdapter struct {
	selectors Selectors
}

func NewSelectorAdapter(selectors Selectors) *SelectorAdapter {
	return &SelectorAdapter{selectors: selectors}
}

var rePrice = regexp.MustCompile(`\d[\d.,]*`)

func (a *SelectorAdapter) Adapt(doc parser.Document) (Input, error) {
	s := a.selectors

	node, err := a.embedded(doc)
	if err != nil {
		return Input{}, err
	}

	base := models.ProductDraft{
		Name:       text(doc, s.Name),
		ExternalID: a.sku(doc),
		Images:     attrs(doc, s.Images, s.ImageAttr),
	}
	// orderable unless structured data states otherwise
	base.Availability = 1
	if price, ok := parsePrice(text(doc, s.Price)); ok {
		base.Price = price
	}

	if node != nil {
		base = merge(base, node)
	}

	in := Input{Base: base}

	// the embedded description seeds the classifier and the page
	// description is appended after it
	if s.Description != "" || len(s.Lines) > 0 {
		in.Sections = append(in.Sections, parser.SectionFrom(doc, s.Description, ""))
		for _, sel := range s.Lines {
			in.Sections = append(in.Sections, parser.SectionFrom(doc, "", sel))
		}
	}

	for _, sel := range s.Measurements {
		if t := text(doc, sel); t != "" {
			in.MeasurementText = append(in.MeasurementText, t)
		}
	}

	in.Groups = a.groups(doc)

	return in, nil
}

func (a *SelectorAdapter) sku(doc parser.Document) string {
	s := a.selectors
	if s.SKU == "" {
		return ""
	}
	if s.SKUAttr != "" {
		v, _ := doc.Attr(s.SKU, s.SKUAttr)
		return v
	}
	return doc.Text(s.SKU)
}

// embedded returns the first JSON-LD Product node on the page, or nil. A
// script that does not decode abandons the product.
func (a *SelectorAdapter) embedded(doc parser.Document) (map[string]any, error) {
	if a.selectors.JSONLD == "" {
		return nil, nil
	}

	for i, raw := range doc.Texts(a.selectors.JSONLD) {
		v, err := parser.DecodeJSONLD(raw)
		if err != nil {
			return nil, fmt.Errorf("script %d: %w", i, err)
		}
		if node, ok := parser.FindJSONLDProduct(v); ok {
			return node, nil
		}
	}
	return nil, nil
}

func (a *SelectorAdapter) groups(doc parser.Document) []models.OptionGroup {
	s := a.selectors
	if s.Options == "" || s.OptionLabelAttr == "" {
		return nil
	}

	var groups []models.OptionGroup
	for _, sel := range doc.Elements(s.Options) {
		label, ok := sel.Attr(s.OptionLabelAttr)
		if !ok || label == "" {
			continue
		}

		group := models.OptionGroup{Label: label}
		query := fmt.Sprintf(`%s[%s=%q] option`, firstSelector(s.Options), s.OptionLabelAttr, label)
		for _, opt := range doc.Elements(query) {
			id, _ := opt.Attr("value")
			if id == "" {
				// placeholder entries such as "Choose an option"
				continue
			}
			value := models.OptionValue{ID: id, Label: opt.Text}
			if raw, ok := opt.Attr("data-price-delta"); ok {
				if delta, ok := parsePrice(raw); ok {
					value.PriceDelta = delta
					if strings.HasPrefix(strings.TrimSpace(raw), "-") {
						value.PriceDelta = -delta
					}
				}
			}
			if img, ok := opt.Attr("data-image"); ok && img != "" {
				value.Images = []string{img}
			}
			group.Values = append(group.Values, value)
		}
		groups = append(groups, group)
	}
	return groups
}

// merge fills the fields base left empty from the embedded Product node.
// Availability is only taken when the node states one.
func merge(base models.ProductDraft, node map[string]any) models.ProductDraft {
	embedded := parser.ProductFromJSONLD(node)
	if base.Name == "" {
		base.Name = embedded.Name
	}
	if base.ExternalID == "" {
		base.ExternalID = embedded.ExternalID
	}
	if base.URL == "" {
		base.URL = embedded.URL
	}
	if base.Price == 0 {
		base.Price = embedded.Price
	}
	if len(base.Images) == 0 {
		base.Images = embedded.Images
	}
	base.Description = embedded.Description
	if avail, ok := parser.JSONLDAvailability(node); ok {
		base.Availability = avail
	}
	base.Attributes = embedded.Attributes
	base.Dims = embedded.Dims
	base.Weight = embedded.Weight
	return base
}

func text(doc parser.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return doc.Text(selector)
}

func attrs(doc parser.Document, selector, name string) []string {
	if selector == "" || name == "" {
		return nil
	}
	return doc.Attrs(selector, name)
}

func parsePrice(s string) (float64, bool) {
	m := rePrice.FindString(s)
	if m == "" {
		return 0, false
	}
	return parser.ParseNumber(strings.TrimRight(m, ".,"))
}

// firstSelector returns the first entry of a selector group so an attribute
// filter can be appended to it.
func firstSelector(selector string) string {
	first, _, _ := strings.Cut(selector, ",")
	return strings.TrimSpace(first)
}
