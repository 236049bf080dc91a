package normalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/feed-normalizer/internal/fetch"
	"github.com/maltedev/feed-normalizer/internal/models"
	"github.com/maltedev/feed-normalizer/internal/parser"
	"github.com/maltedev/feed-normalizer/internal/variant"
)

// ErrNoOrchestrator is returned when an input asks for remote resolution but
// the normalizer was built without a fetcher.
var ErrNoOrchestrator = errors.New("remote strategy given but no orchestrator configured")

// Input is everything an adapter extracted from one product page.
type Input struct {
	// Base carries the fields the adapter read directly. Its own
	// measurements win over anything mined from text.
	Base     models.ProductDraft
	Sections []parser.Section
	// MeasurementText holds free text blocks that are mined for dimensions
	// and weight without being classified.
	MeasurementText []string
	Groups          []models.OptionGroup
	// Remote resolves children over the network when set.
	Remote fetch.Strategy
}

// Result pairs a normalized product with the error that abandoned it.
type Result struct {
	Product models.ProductDraft
	Err     error
}

// Normalizer runs one product through classification, measurement mining and
// variant expansion.
type Normalizer struct {
	classifier   *parser.Classifier
	miner        *parser.Miner
	orchestrator *fetch.Orchestrator
	logger       *slog.Logger
}

// NewNormalizer builds a normalizer. orchestrator may be nil when no input
// needs remote resolution.
func NewNormalizer(classifier *parser.Classifier, miner *parser.Miner, orchestrator *fetch.Orchestrator, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if miner == nil {
		miner = parser.NewDefaultMiner()
	}
	if classifier == nil {
		classifier = parser.NewClassifier(miner, parser.ClassifierOptions{Logger: logger})
	}

	return &Normalizer{
		classifier:   classifier,
		miner:        miner,
		orchestrator: orchestrator,
		logger:       logger.With("component", "normalizer"),
	}
}

// Miner returns the measurement miner the normalizer was built with.
func (n *Normalizer) Miner() *parser.Miner {
	return n.miner
}

// Normalize returns the finalized draft for in. Only upstream decode errors
// and context cancellation abandon the product.
func (n *Normalizer) Normalize(ctx context.Context, in Input) (models.ProductDraft, error) {
	if err := ctx.Err(); err != nil {
		return models.ProductDraft{}, err
	}

	product := n.content(in)

	children, err := n.children(ctx, product, in)
	if err != nil {
		return models.ProductDraft{}, err
	}

	product = product.WithChildren(children)

	if problems := product.Validate(); len(problems) > 0 {
		n.logger.Warn("normalized product is incomplete",
			"external_id", product.ExternalID,
			"problems", problems,
		)
	}

	n.logger.Debug("normalized product",
		"external_id", product.ExternalID,
		"attributes", product.Attributes.Len(),
		"bullets", len(product.ShortDescription),
		"children", len(product.Children),
	)

	return product, nil
}

// content folds the sections into the base draft and attaches measurements.
func (n *Normalizer) content(in Input) models.ProductDraft {
	base := in.Base
	block := parser.ContentBlock{
		Description:      base.Description,
		ShortDescription: base.ShortDescription,
		Attributes:       base.Attributes,
		Dimensions:       base.Dims,
		Weight:           base.Weight,
	}

	for _, section := range in.Sections {
		block = n.classifier.Classify(section, block)
	}

	for _, skip := range block.Skipped {
		n.logger.Debug("skipped line",
			"external_id", base.ExternalID,
			"line", skip.Line,
			"reason", skip.Reason,
		)
	}

	dims, weight := block.Dimensions, block.Weight
	for _, text := range in.MeasurementText {
		m := n.miner.Measure(text)
		dims = dims.Fill(m.Dims)
		weight = models.FirstSet(weight, m.Weight)
	}

	product := base.Clone()
	product.Description = block.Description
	product.ShortDescription = block.ShortDescription
	product.Attributes = block.Attributes

	if dims.IsEmpty() && weight == nil && (len(in.Sections) > 0 || len(in.MeasurementText) > 0) {
		n.logger.Debug("no measurements found",
			"external_id", base.ExternalID,
			"error", models.ErrMeasurementAmbiguous,
		)
	}

	return product.WithMeasurements(dims, weight)
}

func (n *Normalizer) children(ctx context.Context, product models.ProductDraft, in Input) ([]models.ChildProductDraft, error) {
	if variant.Count(in.Groups) == 0 {
		return nil, nil
	}

	if in.Remote == nil {
		return variant.Children(in.Groups, product), nil
	}

	if n.orchestrator == nil {
		return nil, ErrNoOrchestrator
	}

	children, err := n.orchestrator.Resolve(ctx, product, in.Groups, in.Remote)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve variants of %s: %w", product.ExternalID, err)
	}
	return children, nil
}

// NormalizeBatch normalizes every input and never stops early for a failed
// product. Results are in input order.
func (n *Normalizer) NormalizeBatch(ctx context.Context, inputs []Input) []Result {
	results := make([]Result, len(inputs))
	failed := 0

	for i, in := range inputs {
		product, err := n.Normalize(ctx, in)
		if err != nil {
			failed++
			n.logger.Warn("product abandoned",
				"external_id", in.Base.ExternalID,
				"error", err,
			)
		}
		results[i] = Result{Product: product, Err: err}
	}

	n.logger.Info("batch normalized",
		"products", len(inputs),
		"failed", failed,
	)

	return results
}

// NormalizeDocument runs adapter over doc and normalizes the result. An
// adapter error abandons the product.
func (n *Normalizer) NormalizeDocument(ctx context.Context, adapter Adapter, doc parser.Document) (models.ProductDraft, error) {
	in, err := adapter.Adapt(doc)
	if err != nil {
		return models.ProductDraft{}, fmt.Errorf("failed to adapt document: %w", err)
	}
	return n.Normalize(ctx, in)
}
