package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/maltedev/feed-normalizer/internal/models"
)

// DecodeJSONLD decodes one JSON-LD script body. A failure wraps
// models.ErrUpstreamDecode.
func DecodeJSONLD(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err != nil {
		return nil, fmt.Errorf("failed to decode JSON-LD: %w: %v", models.ErrUpstreamDecode, err)
	}
	return v, nil
}

// FindJSONLDProduct walks decoded JSON-LD (objects, arrays, @graph) and
// returns the first node typed Product.
func FindJSONLDProduct(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		if hasType(t["@type"], "Product") {
			return t, true
		}
		if graph, ok := t["@graph"]; ok {
			return FindJSONLDProduct(graph)
		}
	case []any:
		for _, item := range t {
			if p, ok := FindJSONLDProduct(item); ok {
				return p, true
			}
		}
	}
	return nil, false
}

func hasType(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

// ProductFromJSONLD maps a schema.org Product node onto a draft.
func ProductFromJSONLD(m map[string]any) models.ProductDraft {
	p := models.ProductDraft{
		Name:        toString(m["name"]),
		ExternalID:  firstString(m["sku"], m["productID"], m["mpn"]),
		URL:         toString(m["url"]),
		Description: toString(m["description"]),
		Images:      toImages(m["image"]),
	}

	if brand := brandName(m["brand"]); brand != "" {
		p.Attributes = p.Attributes.Add("Brand", brand)
	}

	if offer, ok := firstOffer(m["offers"]); ok {
		if price := toFloatPtr(offer["price"]); price != nil {
			p.Price = *price
		} else if low := toFloatPtr(offer["lowPrice"]); low != nil {
			p.Price = *low
		}
	}
	if avail, ok := JSONLDAvailability(m); ok {
		p.Availability = avail
	}

	p.Weight = quantity(m["weight"], UnitPound)
	for axis, key := range map[models.Axis]string{models.AxisX: "width", models.AxisY: "height", models.AxisZ: "depth"} {
		if v := quantity(m[key], UnitInch); v != nil {
			p.Dims = p.Dims.With(axis, *v)
		}
	}

	return p
}

func firstOffer(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		if offers, ok := t["offers"]; ok && hasType(t["@type"], "AggregateOffer") {
			if o, ok := firstOffer(offers); ok {
				return o, true
			}
		}
		return t, true
	case []any:
		for _, item := range t {
			if o, ok := item.(map[string]any); ok {
				return o, true
			}
		}
	}
	return nil, false
}

// JSONLDAvailability reads the availability of the first offer of a Product
// node. ok is false when the node states no availability at all.
func JSONLDAvailability(m map[string]any) (int, bool) {
	offer, ok := firstOffer(m["offers"])
	if !ok || toString(offer["availability"]) == "" {
		return 0, false
	}
	return availability(offer["availability"]), true
}

// availability maps schema.org ItemAvailability onto 1 (orderable) or 0.
func availability(v any) int {
	s := strings.ToLower(toString(v))
	for _, in := range []string{"instock", "preorder", "backorder", "limitedavailability", "onlineonly"} {
		if strings.HasSuffix(s, in) {
			return 1
		}
	}
	return 0
}

// unitCodes maps UN/CEFACT codes used by QuantitativeValue.
var unitCodes = map[string]Unit{
	"INH": UnitInch,
	"CMT": UnitCentimeter,
	"MMT": UnitMillimeter,
	"FOT": UnitFoot,
	"LBR": UnitPound,
	"ONZ": UnitOunce,
	"KGM": UnitKilogram,
	"GRM": UnitGram,
}

// quantity reads a QuantitativeValue, a bare number or a string such as
// "12 in", converted to the canonical unit. def applies without a unit.
func quantity(v any, def Unit) *float64 {
	var (
		value *float64
		unit  = def
	)

	switch t := v.(type) {
	case map[string]any:
		value = toFloatPtr(t["value"])
		if code := strings.ToUpper(toString(t["unitCode"])); code != "" {
			if u, ok := unitCodes[code]; ok {
				unit = u
			}
		} else if u := ParseUnit(toString(t["unitText"])); u != UnitNone {
			unit = u
		}
	case string:
		fields := strings.Fields(t)
		if len(fields) == 0 {
			return nil
		}
		if f, ok := ParseNumber(fields[0]); ok {
			value = &f
		}
		if len(fields) > 1 {
			if u := ParseUnit(fields[1]); u != UnitNone {
				unit = u
			}
		}
	default:
		value = toFloatPtr(v)
	}

	if value == nil || *value == 0 {
		return nil
	}
	return models.Float(unit.Canonical(*value))
}

func brandName(v any) string {
	if m, ok := v.(map[string]any); ok {
		return toString(m["name"])
	}
	return toString(v)
}

func toImages(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case map[string]any:
		if s := firstString(t["contentUrl"], t["url"]); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, toImages(item)...)
		}
		return out
	}
	return nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return ""
}

func firstString(values ...any) string {
	for _, v := range values {
		if s := toString(v); s != "" {
			return s
		}
	}
	return ""
}

func toFloatPtr(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return &f
		}
	case string:
		if f, ok := ParseNumber(t); ok {
			return &f
		}
	}
	return nil
}
