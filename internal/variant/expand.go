package variant

import (
	"iter"
	"math"

	"github.com/maltedev/feed-normalizer/internal/models"
)

// Expand yields every combination of one value per group. The first group
// varies slowest and the last group fastest, so for groups [Color, Size] all
// sizes of the first color come before the second color.
//
// The sequence is lazy and depends only on groups; ranging over it twice
// yields the same combinations. No groups, or any group without values,
// yields nothing.
func Expand(groups []models.OptionGroup) iter.Seq[models.Combination] {
	return func(yield func(models.Combination) bool) {
		if len(groups) == 0 {
			return
		}
		for _, g := range groups {
			if len(g.Values) == 0 {
				return
			}
		}

		idx := make([]int, len(groups))
		for {
			combo := make(models.Combination, len(groups))
			for g, i := range idx {
				combo[g] = models.Selection{Group: groups[g].Label, Value: groups[g].Values[i]}
			}
			if !yield(combo) {
				return
			}

			// advance like an odometer, rightmost digit first
			g := len(idx) - 1
			for ; g >= 0; g-- {
				idx[g]++
				if idx[g] < len(groups[g].Values) {
					break
				}
				idx[g] = 0
			}
			if g < 0 {
				return
			}
		}
	}
}

// Count returns how many combinations Expand yields, saturating at
// math.MaxInt.
func Count(groups []models.OptionGroup) int {
	if len(groups) == 0 {
		return 0
	}
	n := 1
	for _, g := range groups {
		size := len(g.Values)
		if size == 0 {
			return 0
		}
		if n > math.MaxInt/size {
			n = math.MaxInt
			continue
		}
		n *= size
	}
	return n
}
