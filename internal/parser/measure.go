package parser

import (
	"fmt"

	"github.com/maltedev/feed-normalizer/internal/models"
)

// Measurement is what mining one piece of text produced.
type Measurement struct {
	Dims   models.Dimensions
	Weight *float64
	// Matched lists the ids of patterns that contributed a value.
	Matched []string
}

func (m Measurement) IsEmpty() bool {
	return m.Dims.IsEmpty() && m.Weight == nil
}

// Measure applies every pattern of set to text, in priority order, and
// converts matched values into inches and pounds. It never fails: text with
// no match yields an empty Measurement.
func Measure(text string, set PatternSet) Measurement {
	text = prepare(text)
	var out Measurement
	if text == "" {
		return out
	}

	for _, p := range set.Patterns {
		loc := p.find(text)
		if loc == nil {
			continue
		}
		values := p.extract(text, loc)
		if len(values) == 0 {
			continue
		}

		contributed := false
		for _, axis := range []models.Axis{models.AxisX, models.AxisY, models.AxisZ, models.AxisWeight} {
			v, ok := values[axis]
			if !ok {
				continue
			}
			if axis == models.AxisWeight {
				if out.Weight == nil || set.Strategy == LastMatchWins {
					out.Weight = models.Float(v)
					contributed = true
				}
				continue
			}
			if out.Dims.Get(axis) == nil || set.Strategy == LastMatchWins {
				out.Dims = out.Dims.With(axis, v)
				contributed = true
			}
		}
		if contributed {
			out.Matched = append(out.Matched, p.ID)
		}
	}

	return out
}

// extract reads the bound captures of one match. Several bindings on the
// weight axis are summed, which is how "3 lbs 2 oz" becomes 3.125.
func (p Pattern) extract(text string, loc []int) map[models.Axis]float64 {
	values := make(map[models.Axis]float64, len(p.Bindings))
	fallback := p.resolveUnit(text, loc)

	for _, b := range p.Bindings {
		raw, ok := group(text, loc, b.Group)
		if !ok {
			continue
		}
		v, ok := ParseNumber(raw)
		if !ok || v == 0 {
			continue
		}

		unit := b.Unit
		if unit == UnitNone {
			if tok, ok := group(text, loc, b.UnitGroup); ok {
				unit = ParseUnit(tok)
			}
		}
		if unit == UnitNone {
			unit = fallback
		}

		v = unit.Canonical(v)
		if b.Axis == models.AxisWeight {
			values[b.Axis] += v
		} else {
			values[b.Axis] = v
		}
	}
	return values
}

func (p Pattern) resolveUnit(text string, loc []int) Unit {
	for _, g := range p.UnitGroups {
		if tok, ok := group(text, loc, g); ok {
			if u := ParseUnit(tok); u != UnitNone {
				return u
			}
		}
	}
	return p.Unit
}

func group(text string, loc []int, n int) (string, bool) {
	if n <= 0 || 2*n+1 >= len(loc) || loc[2*n] < 0 {
		return "", false
	}
	s := text[loc[2*n]:loc[2*n+1]]
	return s, s != ""
}

func prepare(text string) string {
	return normalizeSpaces(vulgarFractions.Replace(text))
}

// Miner mines dimensions and weight from free text with a vendor's pattern sets.
type Miner struct {
	dimensions PatternSet
	weight     PatternSet
}

func NewMiner(dimensions, weight PatternSet) *Miner {
	return &Miner{dimensions: dimensions, weight: weight}
}

// NewDefaultMiner uses every built-in family in the default priority.
func NewDefaultMiner() *Miner {
	return NewMiner(
		MustFamilies(FirstMatchWins, DefaultDimensionFamilies...),
		MustFamilies(FirstMatchWins, DefaultWeightFamilies...),
	)
}

func (m *Miner) DimensionPatterns() PatternSet { return m.dimensions }

func (m *Miner) WeightPatterns() PatternSet { return m.weight }

// Mine returns the dimensions found in text. Axes no pattern matched stay nil.
func (m *Miner) Mine(text string) models.Dimensions {
	return Measure(text, m.dimensions).Dims
}

// MineWeight returns the weight in pounds, or nil.
func (m *Miner) MineWeight(text string) *float64 {
	return Measure(text, m.weight).Weight
}

// Measure mines both dimensions and weight.
func (m *Miner) Measure(text string) Measurement {
	dims := Measure(text, m.dimensions)
	weight := Measure(text, m.weight)
	return Measurement{
		Dims:    dims.Dims,
		Weight:  weight.Weight,
		Matched: append(dims.Matched, weight.Matched...),
	}
}

// ExtractDimensions is Mine for callers that need to tell "nothing found" apart.
func (m *Miner) ExtractDimensions(text string) (models.Dimensions, error) {
	dims := m.Mine(text)
	if dims.IsEmpty() {
		return dims, fmt.Errorf("dimensions: %w", models.ErrMeasurementAmbiguous)
	}
	return dims, nil
}

func (m *Miner) ExtractWeight(text string) (*float64, error) {
	w := m.MineWeight(text)
	if w == nil {
		return nil, fmt.Errorf("weight: %w", models.ErrMeasurementAmbiguous)
	}
	return w, nil
}

// Matches reports whether some dimension or weight pattern covers the whole
// of text, as for a bullet that is nothing but a measurement.
func (m *Miner) Matches(text string) bool {
	text = prepare(text)
	if text == "" {
		return false
	}
	for _, set := range []PatternSet{m.dimensions, m.weight} {
		for _, p := range set.Patterns {
			if p.covers(text) {
				return true
			}
		}
	}
	return false
}
