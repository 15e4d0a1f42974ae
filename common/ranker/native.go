package ranker

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"sort"
	"time"

	"github.com/lyzr/colorsort/common/metrics"
	"github.com/lyzr/colorsort/common/models"
	"golang.org/x/sync/errgroup"
)

// NativeRanker ranks thumbnails in process by the mean Euclidean RGB
// distance of their pixels to the target color.
type NativeRanker struct {
	concurrency int
}

// NewNativeRanker creates a ranker decoding at most concurrency images at once
func NewNativeRanker(concurrency int) *NativeRanker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &NativeRanker{concurrency: concurrency}
}

// Rank returns the item IDs sorted by ascending distance. Ties keep input order.
func (r *NativeRanker) Rank(ctx context.Context, req Request) ([]int64, error) {
	start := time.Now()
	defer func() {
		metrics.RankerDuration.WithLabelValues("native").Observe(time.Since(start).Seconds())
	}()

	target, err := models.ParseRGB(req.Color)
	if err != nil {
		return nil, err
	}

	distances := make([]float64, len(req.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, it := range req.Items {
		i, it := i, it
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := meanDistance(it.Path, target)
			if err != nil {
				return fmt.Errorf("image %d: %w", it.ImageID, err)
			}
			distances[i] = d
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, models.NewComputationError("native", ctxErr)
		}
		return nil, models.NewComputationError("native", err)
	}

	order := make([]int, len(req.Items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return distances[order[a]] < distances[order[b]]
	})

	ids := make([]int64, len(order))
	for i, idx := range order {
		ids[i] = req.Items[idx].ImageID
	}
	return ids, nil
}

func meanDistance(path string, target models.RGB) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return 0, fmt.Errorf("empty image")
	}

	tr, tg, tb := float64(target.R), float64(target.G), float64(target.B)

	var sum float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			dr := float64(r>>8) - tr
			dg := float64(g>>8) - tg
			db := float64(b>>8) - tb
			sum += math.Sqrt(dr*dr + dg*dg + db*db)
		}
	}

	return sum / float64(bounds.Dx()*bounds.Dy()), nil
}
