package variant

import (
	"slices"

	"github.com/maltedev/feed-normalizer/internal/models"
)

// BuildChild constructs the variant record for one combination of base.
// Price is base price plus every selected delta. Images are the first
// non-empty value list or else the base list. Dimensions and weight fall
// back to the base one axis at a time.
func BuildChild(base models.ProductDraft, combo models.Combination) models.ChildProductDraft {
	images := combo.Images()
	if len(images) == 0 {
		images = slices.Clone(base.Images)
	}

	externalID := base.ExternalID
	if key := combo.Key(); key != "" {
		externalID += "-" + key
	}

	return models.ChildProductDraft{
		Name:         combo.Name(),
		ExternalID:   externalID,
		Price:        base.Price + combo.PriceDelta(),
		Dims:         combo.Dims().Fill(base.Dims),
		Weight:       models.FirstSet(combo.Weight(), base.Weight),
		Images:       images,
		Availability: base.Availability,
	}
}

// maxPrealloc bounds the capacity Children reserves up front.
const maxPrealloc = 1024

// Children builds one child per combination in Expand order.
func Children(groups []models.OptionGroup, base models.ProductDraft) []models.ChildProductDraft {
	children := make([]models.ChildProductDraft, 0, min(Count(groups), maxPrealloc))
	for combo := range Expand(groups) {
		children = append(children, BuildChild(base, combo))
	}
	return children
}
