package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/maltedev/feed-normalizer/internal/models"
)

// Strategy decides what happens when a pattern matches an axis that an
// earlier pattern already set during the same mining call.
type Strategy int

const (
	// FirstMatchWins keeps the value from the highest-priority matching pattern.
	FirstMatchWins Strategy = iota
	// LastMatchWins lets every later matching pattern overwrite the axis.
	LastMatchWins
)

// ParseStrategy accepts "first" or "last".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return FirstMatchWins, nil
	case "last":
		return LastMatchWins, nil
	default:
		return FirstMatchWins, fmt.Errorf("unknown match strategy: %s", s)
	}
}

// Binding maps one capture group onto an axis. Unit, when set, overrides
// whatever unit the pattern resolves; UnitGroup names a capture holding the
// unit text for this value only.
type Binding struct {
	Group     int
	Axis      models.Axis
	Unit      Unit
	UnitGroup int
}

// Pattern is one measurement matcher.
type Pattern struct {
	ID       string
	Bindings []Binding
	// Unit applies when no unit capture matched.
	Unit Unit
	// UnitGroups are capture indexes checked in order for a unit token.
	UnitGroups []int
	// FullMatch patterns only accept a match spanning the whole trimmed input.
	FullMatch bool

	expr     *regexp.Regexp
	anchored *regexp.Regexp
}

// NewPattern compiles expr. It panics on an invalid expression, like
// regexp.MustCompile, since patterns are built from constants or validated config.
func NewPattern(id, expr string, bindings []Binding, opts ...PatternOption) Pattern {
	p := Pattern{
		ID:       id,
		Bindings: bindings,
		Unit:     UnitInch,
		expr:     regexp.MustCompile(expr),
		anchored: regexp.MustCompile(`^(?:` + expr + `)$`),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

type PatternOption func(*Pattern)

func WithUnit(u Unit) PatternOption {
	return func(p *Pattern) { p.Unit = u }
}

func WithUnitGroups(groups ...int) PatternOption {
	return func(p *Pattern) { p.UnitGroups = groups }
}

func FullMatch() PatternOption {
	return func(p *Pattern) { p.FullMatch = true }
}

// find returns submatch indexes honoring FullMatch.
func (p Pattern) find(text string) []int {
	if p.FullMatch {
		return p.anchored.FindStringSubmatchIndex(text)
	}
	return p.expr.FindStringSubmatchIndex(text)
}

// covers reports whether the pattern matches the entire text.
func (p Pattern) covers(text string) bool {
	return p.anchored.MatchString(text)
}

func (p Pattern) String() string {
	return p.ID
}

// PatternSet is an ordered, caller-prioritized list of patterns plus the
// overwrite strategy used when several of them match.
type PatternSet struct {
	Patterns []Pattern
	Strategy Strategy
}

func (s PatternSet) IDs() []string {
	ids := make([]string, len(s.Patterns))
	for i, p := range s.Patterns {
		ids[i] = p.ID
	}
	return ids
}

// WithStrategy returns a copy of s using strategy.
func (s PatternSet) WithStrategy(strategy Strategy) PatternSet {
	out := PatternSet{Patterns: make([]Pattern, len(s.Patterns)), Strategy: strategy}
	copy(out.Patterns, s.Patterns)
	return out
}

const (
	numExpr  = `(\d+(?:[.,]\d+)?(?:[ -]+\d+/\d+)?|\d+/\d+)`
	unitExpr = `("|''|”|″|inches|inch|in\.?|cm|mm|ft\.?|feet|foot|')`
	sepExpr  = `\s*(?:[x×*]|by)\s*`
	lbExpr   = `(?:lbs?|pounds?)\b\.?`
	ozExpr   = `(?:oz|ounces?)\b\.?`
)

var axisLabels = map[string]struct {
	axis  models.Axis
	label string
}{
	"h": {models.AxisY, `(?:h|ht|height|high|tall)\b\.?`},
	"w": {models.AxisX, `(?:w|wd|width|wide)\b\.?`},
	"d": {models.AxisZ, `(?:d|dp|depth|deep)\b\.?`},
	"l": {models.AxisZ, `(?:l|lg|length|long)\b\.?`},
}

// labeled builds a multi-axis pattern such as `12" H x 8" W x 4" D` from the
// axis letters in order. Every number may carry its own unit.
func labeled(id string, order string) Pattern {
	parts := make([]string, 0, len(order))
	bindings := make([]Binding, 0, len(order))
	unitGroups := make([]int, 0, len(order))
	for i, r := range order {
		l := axisLabels[string(r)]
		parts = append(parts, numExpr+`\s*`+unitExpr+`?\s*`+l.label)
		bindings = append(bindings, Binding{Group: 2*i + 1, Axis: l.axis, UnitGroup: 2*i + 2})
		unitGroups = append(unitGroups, 2*i+2)
	}
	expr := `(?i)` + strings.Join(parts, sepExpr)
	return NewPattern(id, expr, bindings, WithUnitGroups(unitGroups...))
}

// single builds the two single-axis forms for one label ("12 in H" and
// "Height 12 in"); both require a full-string match.
func single(id, letter string) []Pattern {
	l := axisLabels[letter]
	suffix := `(?i)` + numExpr + `\s*` + unitExpr + `?\s*` + l.label
	prefix := `(?i)` + l.label + `\s*[:\-]?\s*` + numExpr + `\s*` + unitExpr + `?`
	return []Pattern{
		NewPattern(id, suffix, []Binding{{Group: 1, Axis: l.axis}}, WithUnitGroups(2), FullMatch()),
		NewPattern(id+"-prefix", prefix, []Binding{{Group: 1, Axis: l.axis}}, WithUnitGroups(2), FullMatch()),
	}
}

var families = map[string]func() []Pattern{
	"hwd": func() []Pattern { return []Pattern{labeled("hwd", "hwd")} },
	"lwh": func() []Pattern { return []Pattern{labeled("lwh", "lwh")} },
	"wdh": func() []Pattern { return []Pattern{labeled("wdh", "wdh")} },
	"whd": func() []Pattern { return []Pattern{labeled("whd", "whd")} },
	"wh":  func() []Pattern { return []Pattern{labeled("wh", "wh")} },
	"lxw": func() []Pattern { return []Pattern{labeled("lxw", "lw")} },
	"plain3": func() []Pattern {
		expr := `(?i)` + numExpr + `\s*` + unitExpr + `?` + sepExpr + numExpr + `\s*` + unitExpr + `?` + sepExpr + numExpr + `\s*` + unitExpr
		return []Pattern{NewPattern("plain3", expr, []Binding{
			{Group: 1, Axis: models.AxisZ, UnitGroup: 2},
			{Group: 3, Axis: models.AxisX, UnitGroup: 4},
			{Group: 5, Axis: models.AxisY, UnitGroup: 6},
		}, WithUnitGroups(6, 4, 2))}
	},
	"height": func() []Pattern { return single("height", "h") },
	"width":  func() []Pattern { return single("width", "w") },
	"depth":  func() []Pattern { return single("depth", "d") },
	"length": func() []Pattern { return single("length", "l") },
	"weight-lb-oz": func() []Pattern {
		expr := `(?i)` + numExpr + `\s*` + lbExpr + `(?:\s*,?\s*(?:and\s+)?` + numExpr + `\s*` + ozExpr + `)?`
		return []Pattern{NewPattern("weight-lb-oz", expr, []Binding{
			{Group: 1, Axis: models.AxisWeight, Unit: UnitPound},
			{Group: 2, Axis: models.AxisWeight, Unit: UnitOunce},
		}, WithUnit(UnitPound))}
	},
	"weight-oz": func() []Pattern {
		expr := `(?i)` + numExpr + `\s*` + ozExpr
		return []Pattern{NewPattern("weight-oz", expr, []Binding{{Group: 1, Axis: models.AxisWeight}}, WithUnit(UnitOunce))}
	},
	"weight-kg": func() []Pattern {
		expr := `(?i)` + numExpr + `\s*(?:kgs?|kilograms?)\b\.?`
		return []Pattern{NewPattern("weight-kg", expr, []Binding{{Group: 1, Axis: models.AxisWeight}}, WithUnit(UnitKilogram))}
	},
	"weight-g": func() []Pattern {
		expr := `(?i)` + numExpr + `\s*(?:g|gr|grams?)\b\.?`
		return []Pattern{NewPattern("weight-g", expr, []Binding{{Group: 1, Axis: models.AxisWeight}}, WithUnit(UnitGram))}
	},
}

// DefaultDimensionFamilies is the priority used when a vendor profile does not name one.
var DefaultDimensionFamilies = []string{"hwd", "lwh", "wdh", "whd", "plain3", "wh", "lxw", "height", "width", "depth", "length"}

// DefaultWeightFamilies lists pound/ounce forms before metric ones.
var DefaultWeightFamilies = []string{"weight-lb-oz", "weight-kg", "weight-g", "weight-oz"}

// Families builds a pattern set from registered family ids in the given priority order.
func Families(strategy Strategy, ids ...string) (PatternSet, error) {
	set := PatternSet{Strategy: strategy}
	for _, id := range ids {
		build, ok := families[strings.ToLower(strings.TrimSpace(id))]
		if !ok {
			return PatternSet{}, fmt.Errorf("unknown pattern family: %s", id)
		}
		set.Patterns = append(set.Patterns, build()...)
	}
	return set, nil
}

// MustFamilies is Families for constant input.
func MustFamilies(strategy Strategy, ids ...string) PatternSet {
	set, err := Families(strategy, ids...)
	if err != nil {
		panic(err)
	}
	return set
}

// FamilyIDs lists every registered family id.
func FamilyIDs() []string {
	ids := make([]string, 0, len(families))
	for id := range families {
		ids = append(ids, id)
	}
	return ids
}
