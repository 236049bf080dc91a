package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/maltedev/feed-normalizer/internal/models"
	"github.com/maltedev/feed-normalizer/internal/variant"
)

// MaxEmptyAttempts bounds how often one request is repeated while it keeps
// returning an empty payload. There is no backoff between attempts.
const MaxEmptyAttempts = 5

// State is where a combination is in its remote resolution.
type State int

const (
	StateResolvingGroup State = iota
	StateFetchingLeafDetail
	StateDone
	StateDropped
)

func (s State) String() string {
	switch s {
	case StateResolvingGroup:
		return "resolving_group"
	case StateFetchingLeafDetail:
		return "fetching_leaf_detail"
	case StateDone:
		return "done"
	case StateDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateDropped
}

// Outcome is the terminal state of one selection path. Err holds the reason
// a path was dropped.
type Outcome struct {
	Path  models.Combination
	State State
	Child models.ChildProductDraft
	Err   error
}

type Options struct {
	// Concurrency bounds the leaf detail requests in flight for one product.
	Concurrency int
	Logger      *slog.Logger
}

// Orchestrator resolves variants whose data is not on the product page.
type Orchestrator struct {
	fetcher     Fetcher
	concurrency int
	logger      *slog.Logger
}

func NewOrchestrator(fetcher Fetcher, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		fetcher:     fetcher,
		concurrency: opts.Concurrency,
		logger:      opts.Logger.With("component", "orchestrator"),
	}
}

// Resolve returns the children that reached Done, in combination order.
// Dropped combinations are left out. An error means the product must be
// abandoned: a payload failed to decode or ctx was cancelled.
func (o *Orchestrator) Resolve(ctx context.Context, base models.ProductDraft, groups []models.OptionGroup, strategy Strategy) ([]models.ChildProductDraft, error) {
	outcomes, err := o.ResolveOutcomes(ctx, base, groups, strategy)
	if err != nil {
		return nil, err
	}

	var children []models.ChildProductDraft
	for _, out := range outcomes {
		if out.State == StateDone {
			children = append(children, out.Child)
		}
	}
	return children, nil
}

// ResolveOutcomes is Resolve reporting every path with its terminal state.
func (o *Orchestrator) ResolveOutcomes(ctx context.Context, base models.ProductDraft, groups []models.OptionGroup, strategy Strategy) ([]Outcome, error) {
	if strategy == nil {
		return nil, errors.New("no fetch strategy")
	}
	if variant.Count(groups) == 0 {
		return nil, nil
	}

	r := &run{
		base:        base,
		groups:      groups,
		fetcher:     o.fetcher,
		concurrency: o.concurrency,
		logger: o.logger.With(
			"run_id", uuid.NewString(),
			"product", base.ExternalID,
		),
	}

	outcomes, err := strategy.resolve(ctx, r)
	if err != nil {
		r.logger.Error("product resolution failed", "error", err)
		return nil, err
	}

	done := 0
	for _, out := range outcomes {
		if out.State == StateDone {
			done++
		}
	}
	r.logger.Info("variants resolved",
		"combinations", variant.Count(groups),
		"done", done,
		"dropped", len(outcomes)-done,
	)
	return outcomes, nil
}

// run is the state owned by one Resolve call.
type run struct {
	base        models.ProductDraft
	groups      []models.OptionGroup
	fetcher     Fetcher
	concurrency int
	logger      *slog.Logger
}

// fetch repeats req while the payload is empty, up to MaxEmptyAttempts. A
// transport error counts as an empty attempt; cancellation ends the loop.
func (r *run) fetch(ctx context.Context, req Request) ([]byte, error) {
	for attempt := 1; attempt <= MaxEmptyAttempts; attempt++ {
		body, err := Do(ctx, r.fetcher, req)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			r.logger.Warn("fetch attempt failed", "request", req.String(), "attempt", attempt, "error", err)
			continue
		}
		if IsEmptyPayload(body) {
			r.logger.Debug("empty payload", "request", req.String(), "attempt", attempt)
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("%s after %d attempts: %w", req.String(), MaxEmptyAttempts, models.ErrRemoteFetchExhausted)
}

func (r *run) done(path models.Combination, detail LeafDetail) Outcome {
	child := detail.Apply(variant.BuildChild(r.base, path))
	return Outcome{Path: path, State: StateDone, Child: child}
}

func (r *run) drop(path models.Combination, reason error) Outcome {
	r.logger.Info("combination dropped", "state", StateDropped.String(), "path", path.Key(), "reason", reason)
	return Outcome{Path: path, State: StateDropped, Err: reason}
}
