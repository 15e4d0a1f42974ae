package ranker

import (
	"context"
	"fmt"

	"github.com/lyzr/colorsort/common/models"
)

// Item is one image to rank
type Item struct {
	ImageID int64
	Path    string // local thumbnail file
}

// Request asks for the items ordered by similarity to Color.
// Items are ordered by ascending image ID.
type Request struct {
	Color string
	Items []Item
}

// Ranker orders images by their similarity to a color, most similar first
type Ranker interface {
	Rank(ctx context.Context, req Request) ([]int64, error)
}

// Validate checks that ids is a permutation of the item IDs
func Validate(items []Item, ids []int64) error {
	if len(ids) != len(items) {
		return models.NewComputationError("validate", fmt.Errorf("ranker returned %d image ids for %d images", len(ids), len(items)))
	}

	known := make(map[int64]struct{}, len(items))
	for _, it := range items {
		known[it.ImageID] = struct{}{}
	}

	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return models.NewComputationError("validate", fmt.Errorf("ranker returned unknown image id %d", id))
		}
		if _, dup := seen[id]; dup {
			return models.NewComputationError("validate", fmt.Errorf("ranker returned image id %d twice", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}
