package models

import "strings"

// Selection is the value chosen for one option group.
type Selection struct {
	Group string
	Value OptionValue
}

// Combination holds one selection per option group, in group order.
type Combination []Selection

// Name renders "<group>: <value>. " for every selection in order. A value
// label that already ends in "." is followed by a single space.
func (c Combination) Name() string {
	var b strings.Builder
	for _, s := range c {
		b.WriteString(s.Group)
		b.WriteString(": ")
		b.WriteString(s.Value.Label)
		if strings.HasSuffix(s.Value.Label, ".") {
			b.WriteString(" ")
		} else {
			b.WriteString(". ")
		}
	}
	return b.String()
}

// IDs returns the selected value ids in group order.
func (c Combination) IDs() []string {
	ids := make([]string, len(c))
	for i, s := range c {
		ids[i] = s.Value.ID
	}
	return ids
}

// Key joins the selected value ids with "-".
func (c Combination) Key() string {
	return strings.Join(c.IDs(), "-")
}

// PriceDelta sums the price deltas of every selected value.
func (c Combination) PriceDelta() float64 {
	var total float64
	for _, s := range c {
		total += s.Value.PriceDelta
	}
	return total
}

// Images returns the first non-empty image list among the selected values.
func (c Combination) Images() []string {
	for _, s := range c {
		if len(s.Value.Images) > 0 {
			return cloneStrings(s.Value.Images)
		}
	}
	return nil
}

// Dims collects the first present, non-zero value per axis across the selected values.
func (c Combination) Dims() Dimensions {
	var d Dimensions
	for _, s := range c {
		if s.Value.Dims != nil {
			d = d.Fill(*s.Value.Dims)
		}
	}
	return d
}

// Weight returns the first present, non-zero weight among the selected values.
func (c Combination) Weight() *float64 {
	for _, s := range c {
		if w := FirstSet(s.Value.Weight); w != nil {
			return w
		}
	}
	return nil
}

// Append returns a new combination with s added; c is not modified.
func (c Combination) Append(s Selection) Combination {
	out := make(Combination, len(c), len(c)+1)
	copy(out, c)
	return append(out, s)
}
