package models

// Dimensions are stored in inches. A nil axis means the value is unknown; it is never 0.
type Dimensions struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

// Axis identifies one measurement slot a pattern can write to.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisWeight
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	case AxisWeight:
		return "weight"
	default:
		return "unknown"
	}
}

// Get returns the value stored for a length axis.
func (d Dimensions) Get(axis Axis) *float64 {
	switch axis {
	case AxisX:
		return d.X
	case AxisY:
		return d.Y
	case AxisZ:
		return d.Z
	}
	return nil
}

// With returns a copy of d with axis set to v.
func (d Dimensions) With(axis Axis, v float64) Dimensions {
	switch axis {
	case AxisX:
		d.X = Float(v)
	case AxisY:
		d.Y = Float(v)
	case AxisZ:
		d.Z = Float(v)
	}
	return d
}

func (d Dimensions) IsEmpty() bool {
	return d.X == nil && d.Y == nil && d.Z == nil
}

// Fill keeps every axis of d that is present and non-zero and takes the
// remaining axes from fallback, one axis at a time.
func (d Dimensions) Fill(fallback Dimensions) Dimensions {
	return Dimensions{
		X: FirstSet(d.X, fallback.X),
		Y: FirstSet(d.Y, fallback.Y),
		Z: FirstSet(d.Z, fallback.Z),
	}
}

// Clone copies the axis values so the result shares no pointers with d.
func (d Dimensions) Clone() Dimensions {
	return Dimensions{X: clonePtr(d.X), Y: clonePtr(d.Y), Z: clonePtr(d.Z)}
}

// OptionValue is one selectable value of an OptionGroup.
type OptionValue struct {
	ID         string      `json:"id"`
	Label      string      `json:"label"`
	PriceDelta float64     `json:"price_delta"`
	Images     []string    `json:"images,omitempty"`
	Dims       *Dimensions `json:"dims,omitempty"`
	Weight     *float64    `json:"weight,omitempty"`
}

// OptionGroup is an independent product axis such as "Color". Value order is
// significant: it drives variant naming and identity strings.
type OptionGroup struct {
	Label  string        `json:"label"`
	Values []OptionValue `json:"values"`
}

// ChildProductDraft is one purchasable variant. It is built once from the base
// product and a combination and not modified afterwards.
type ChildProductDraft struct {
	Name         string     `json:"name"`
	ExternalID   string     `json:"external_id"`
	Price        float64    `json:"price"`
	Dims         Dimensions `json:"dims"`
	Weight       *float64   `json:"weight"`
	Images       []string   `json:"images"`
	Availability int        `json:"availability"`
}

// ProductDraft is the normalized record for one product page. Treat it as a
// value: the With helpers return copies and never modify the receiver's slices.
type ProductDraft struct {
	Name             string              `json:"name"`
	ExternalID       string              `json:"external_id"`
	URL              string              `json:"url,omitempty"`
	Price            float64             `json:"price"`
	Dims             Dimensions          `json:"dims"`
	Weight           *float64            `json:"weight"`
	Attributes       Attributes          `json:"attributes"`
	ShortDescription []string            `json:"short_description"`
	Description      string              `json:"description"`
	Images           []string            `json:"images"`
	Videos           []string            `json:"videos,omitempty"`
	Files            []string            `json:"files,omitempty"`
	IsGroup          bool                `json:"is_group"`
	Availability     int                 `json:"availability"`
	Children         []ChildProductDraft `json:"children,omitempty"`
}

// Clone returns a copy of p that shares no mutable state with it.
func (p ProductDraft) Clone() ProductDraft {
	out := p
	out.Dims = p.Dims.Clone()
	out.Weight = clonePtr(p.Weight)
	out.Attributes = p.Attributes.Clone()
	out.ShortDescription = cloneStrings(p.ShortDescription)
	out.Images = cloneStrings(p.Images)
	out.Videos = cloneStrings(p.Videos)
	out.Files = cloneStrings(p.Files)
	if p.Children != nil {
		out.Children = make([]ChildProductDraft, len(p.Children))
		copy(out.Children, p.Children)
	}
	return out
}

// WithMeasurements returns a copy whose dimensions and weight keep the draft's
// own axes and take missing ones from dims and weight.
func (p ProductDraft) WithMeasurements(dims Dimensions, weight *float64) ProductDraft {
	out := p.Clone()
	out.Dims = out.Dims.Fill(dims)
	out.Weight = FirstSet(out.Weight, weight)
	return out
}

// WithChildren returns a finalized copy carrying children. A draft without
// children is not a group.
func (p ProductDraft) WithChildren(children []ChildProductDraft) ProductDraft {
	out := p.Clone()
	out.Children = nil
	if len(children) > 0 {
		out.Children = make([]ChildProductDraft, len(children))
		copy(out.Children, children)
	}
	out.IsGroup = len(out.Children) > 0
	return out
}

func (p ProductDraft) Validate() []string {
	var errors []string

	if p.ExternalID == "" {
		errors = append(errors, "external id is required")
	}

	if p.Name == "" {
		errors = append(errors, "name is required")
	}

	if p.Price < 0 {
		errors = append(errors, "price must not be negative")
	}

	if p.IsGroup && len(p.Children) == 0 {
		errors = append(errors, "group product has no children")
	}

	return errors
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// FirstSet returns a copy of the first pointer that is non-nil and non-zero.
func FirstSet(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil && *v != 0 {
			return Float(*v)
		}
	}
	return nil
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
