package fetch

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/maltedev/feed-normalizer/internal/models"
	"github.com/maltedev/feed-normalizer/internal/variant"
	"golang.org/x/sync/errgroup"
)

// LeafDetail is what a remote lookup knows about one variant. Zero fields
// leave the locally built child untouched.
type LeafDetail struct {
	ExternalID   string
	PriceDelta   float64
	Dims         models.Dimensions
	Weight       *float64
	Images       []string
	Availability *int
}

// Apply merges d onto a child built by variant.BuildChild. The remote delta
// is added to the price; dims and weight fall back per axis to the child's.
func (d LeafDetail) Apply(child models.ChildProductDraft) models.ChildProductDraft {
	if d.ExternalID != "" {
		child.ExternalID = d.ExternalID
	}
	child.Price += d.PriceDelta
	child.Dims = d.Dims.Fill(child.Dims)
	child.Weight = models.FirstSet(d.Weight, child.Weight)
	if len(d.Images) > 0 {
		child.Images = slices.Clone(d.Images)
	}
	if d.Availability != nil {
		child.Availability = *d.Availability
	}
	return child
}

// Strategy is how remote variant data is obtained: PerLeaf or Bulk.
type Strategy interface {
	resolve(ctx context.Context, r *run) ([]Outcome, error)
}

// PerLeaf issues one detail request per fully specified combination.
//
// With Narrow set, the selectable values of every level after the first come
// from the network: for each value at level k the orchestrator requests the
// options still available at level k+1 given the path so far. Steps along one
// path run in order; the leaf detail requests run concurrently.
type PerLeaf struct {
	// Narrow builds the request for the options at level given path, which
	// holds one selection for each earlier level.
	Narrow        func(level int, path models.Combination) Request
	DecodeOptions func(level int, path models.Combination, payload []byte) ([]models.OptionValue, error)

	Detail       func(path models.Combination) Request
	DecodeDetail func(path models.Combination, payload []byte) (LeafDetail, error)
}

func (s PerLeaf) resolve(ctx context.Context, r *run) ([]Outcome, error) {
	if s.Detail == nil || s.DecodeDetail == nil {
		return nil, errors.New("per-leaf strategy requires Detail and DecodeDetail")
	}
	if s.Narrow != nil && s.DecodeOptions == nil {
		return nil, errors.New("per-leaf strategy with Narrow requires DecodeOptions")
	}

	var outcomes []Outcome
	if s.Narrow == nil {
		for combo := range variant.Expand(r.groups) {
			outcomes = append(outcomes, Outcome{Path: combo, State: StateFetchingLeafDetail})
		}
	} else if variant.Count(r.groups) > 0 {
		if err := s.narrow(ctx, r, 0, r.groups[0].Values, nil, &outcomes); err != nil {
			return nil, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range outcomes {
		if outcomes[i].State != StateFetchingLeafDetail {
			continue
		}
		path := outcomes[i].Path
		g.Go(func() error {
			out, err := s.leaf(gctx, r, path)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// narrow walks level k depth first. Candidates are the values selectable at
// level k given path.
func (s PerLeaf) narrow(ctx context.Context, r *run, k int, candidates []models.OptionValue, path models.Combination, out *[]Outcome) error {
	label := r.groups[k].Label
	last := k == len(r.groups)-1

	for _, v := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}

		next := path.Append(models.Selection{Group: label, Value: v})
		if last {
			*out = append(*out, Outcome{Path: next, State: StateFetchingLeafDetail})
			continue
		}

		r.logger.Debug("resolving group", "state", StateResolvingGroup.String(), "level", k+1, "path", next.Key())

		payload, err := r.fetch(ctx, s.Narrow(k+1, next))
		if errors.Is(err, models.ErrRemoteFetchExhausted) {
			*out = append(*out, r.drop(next, err))
			continue
		}
		if err != nil {
			return err
		}

		values, err := s.DecodeOptions(k+1, next, payload)
		if errors.Is(err, models.ErrInvalidCombination) {
			*out = append(*out, r.drop(next, err))
			continue
		}
		if err != nil {
			return decodeError(next, err)
		}
		if len(values) == 0 {
			*out = append(*out, r.drop(next, fmt.Errorf("no options for %s: %w", r.groups[k+1].Label, models.ErrInvalidCombination)))
			continue
		}

		if err := s.narrow(ctx, r, k+1, values, next, out); err != nil {
			return err
		}
	}
	return nil
}

func (s PerLeaf) leaf(ctx context.Context, r *run, path models.Combination) (Outcome, error) {
	r.logger.Debug("fetching leaf detail", "state", StateFetchingLeafDetail.String(), "path", path.Key())

	payload, err := r.fetch(ctx, s.Detail(path))
	if errors.Is(err, models.ErrRemoteFetchExhausted) {
		return r.drop(path, err), nil
	}
	if err != nil {
		return Outcome{}, err
	}

	detail, err := s.DecodeDetail(path, payload)
	if errors.Is(err, models.ErrInvalidCombination) {
		return r.drop(path, err), nil
	}
	if err != nil {
		return Outcome{}, decodeError(path, err)
	}
	return r.done(path, detail), nil
}

// Bulk issues a single request that returns every variation record of the
// product and matches records back to combinations by key.
type Bulk struct {
	Request       Request
	DecodeRecords func(payload []byte) (map[string]LeafDetail, error)
	// Key maps a combination to its record key. Defaults to the value ids
	// joined with "-".
	Key func(models.Combination) string
}

func (s Bulk) resolve(ctx context.Context, r *run) ([]Outcome, error) {
	if s.DecodeRecords == nil {
		return nil, errors.New("bulk strategy requires DecodeRecords")
	}
	key := s.Key
	if key == nil {
		key = models.Combination.Key
	}

	var combos []models.Combination
	for combo := range variant.Expand(r.groups) {
		combos = append(combos, combo)
	}
	if len(combos) == 0 {
		return nil, nil
	}

	outcomes := make([]Outcome, len(combos))

	payload, err := r.fetch(ctx, s.Request)
	if errors.Is(err, models.ErrRemoteFetchExhausted) {
		for i, combo := range combos {
			outcomes[i] = r.drop(combo, err)
		}
		return outcomes, nil
	}
	if err != nil {
		return nil, err
	}

	records, err := s.DecodeRecords(payload)
	if err != nil {
		return nil, decodeError(nil, err)
	}

	for i, combo := range combos {
		k := key(combo)
		detail, ok := records[k]
		if !ok {
			outcomes[i] = r.drop(combo, fmt.Errorf("no record for key %q: %w", k, models.ErrInvalidCombination))
			continue
		}
		outcomes[i] = r.done(combo, detail)
	}
	return outcomes, nil
}

func decodeError(path models.Combination, err error) error {
	where := "variations"
	if len(path) > 0 {
		where = path.Key()
	}
	if errors.Is(err, models.ErrUpstreamDecode) {
		return fmt.Errorf("failed to decode %s: %w", where, err)
	}
	return fmt.Errorf("failed to decode %s: %w: %w", where, models.ErrUpstreamDecode, err)
}
