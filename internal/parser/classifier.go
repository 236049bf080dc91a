package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/maltedev/feed-normalizer/internal/models"
)

// Section is one DOM block already split into lines.
type Section struct {
	Description string
	Lines       []string
}

// ContentBlock is the running classification result. Classify threads it
// forward so several sections fold into one result.
type ContentBlock struct {
	Description      string
	ShortDescription []string
	Attributes       models.Attributes
	Dimensions       models.Dimensions
	Weight           *float64
	Skipped          []Skip
}

// Skip records a line the classifier dropped.
type Skip struct {
	Line   string
	Reason string
}

func (s Skip) Error() string {
	return fmt.Sprintf("%s: %q", s.Reason, s.Line)
}

func (s Skip) Unwrap() error {
	return models.ErrClassificationSkip
}

const (
	reasonDenylisted = "denylisted key"
	reasonEmptyKey   = "empty key"
)

type ClassifierOptions struct {
	// Denylist holds vendor noise keys. A key containing an entry is dropped,
	// compared case-insensitively.
	Denylist []string
	// MineAttributes also diverts "Key: Value" lines whose full text is a measurement.
	MineAttributes bool
	Logger         *slog.Logger
}

// Classifier sorts text lines into bullets and attributes and hands pure
// measurement lines to a Miner.
type Classifier struct {
	miner          *Miner
	denylist       []string
	mineAttributes bool
	logger         *slog.Logger
}

func NewClassifier(miner *Miner, opts ClassifierOptions) *Classifier {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	denylist := make([]string, 0, len(opts.Denylist))
	for _, d := range opts.Denylist {
		if d = strings.ToLower(normalizeSpaces(d)); d != "" {
			denylist = append(denylist, d)
		}
	}

	return &Classifier{
		miner:          miner,
		denylist:       denylist,
		mineAttributes: opts.MineAttributes,
		logger:         logger.With("component", "classifier"),
	}
}

// Classify adds the section's lines to seed and returns the result. The seed
// is not modified. Existing attribute keys and measurement axes win over
// anything found in the section.
func (c *Classifier) Classify(section Section, seed ContentBlock) ContentBlock {
	out := ContentBlock{
		Description:      seed.Description,
		ShortDescription: append([]string(nil), seed.ShortDescription...),
		Attributes:       seed.Attributes.Clone(),
		Dimensions:       seed.Dimensions.Clone(),
		Weight:           models.FirstSet(seed.Weight),
		Skipped:          append([]Skip(nil), seed.Skipped...),
	}

	if desc := strings.TrimSpace(section.Description); desc != "" {
		if out.Description == "" {
			out.Description = desc
		} else {
			out.Description += "\n\n" + desc
		}
	}

	for _, raw := range section.Lines {
		line := normalizeSpaces(raw)
		if line == "" {
			continue
		}

		key, value, isAttr := splitAttribute(line)
		if !isAttr {
			if !c.divert(&out, line) {
				out.ShortDescription = append(out.ShortDescription, line)
			}
			continue
		}

		switch {
		case key == "":
			c.skip(&out, line, reasonEmptyKey)
		case c.denied(key):
			c.skip(&out, line, reasonDenylisted)
		case c.mineAttributes && c.divert(&out, line):
		default:
			out.Attributes = out.Attributes.Add(key, value)
		}
	}

	return out
}

// splitAttribute accepts a line with exactly one colon and a non-empty value.
// A line with an empty value, no colon, or several colons is a bullet.
func splitAttribute(line string) (key, value string, ok bool) {
	if strings.Count(line, ":") != 1 {
		return "", "", false
	}
	k, v, _ := strings.Cut(line, ":")
	k, v = strings.TrimSpace(k), strings.TrimSpace(v)
	if v == "" {
		return "", "", false
	}
	return k, v, true
}

func (c *Classifier) denied(key string) bool {
	key = strings.ToLower(key)
	for _, d := range c.denylist {
		if strings.Contains(key, d) {
			return true
		}
	}
	return false
}

// divert mines line into out when it is nothing but a measurement.
func (c *Classifier) divert(out *ContentBlock, line string) bool {
	if c.miner == nil || !c.miner.Matches(line) {
		return false
	}
	m := c.miner.Measure(line)
	out.Dimensions = out.Dimensions.Fill(m.Dims)
	out.Weight = models.FirstSet(out.Weight, m.Weight)
	c.logger.Debug("measurement line diverted", "line", line, "patterns", m.Matched)
	return true
}

func (c *Classifier) skip(out *ContentBlock, line, reason string) {
	s := Skip{Line: line, Reason: reason}
	out.Skipped = append(out.Skipped, s)
	c.logger.Debug("line skipped", "error", s)
}
