package repository

import (
	"context"
	"testing"

	"github.com/lyzr/colorsort/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryImageCatalog(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryImageCatalog()

	_, err := c.GetCollection(ctx, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)

	c.PutCollection(models.Collection{ID: 1, MediaType: models.MediaTypeImage})
	c.PutImages(
		models.Image{ID: 3, CollectionID: 1},
		models.Image{ID: 1, CollectionID: 1},
		models.Image{ID: 2, CollectionID: 1},
		models.Image{ID: 9, CollectionID: 2},
	)

	col, err := c.GetCollection(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeImage, col.MediaType)

	images, err := c.ListImages(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, models.ImageIDs(images))

	c.RemoveImage(1, 2)
	images, _ = c.ListImages(ctx, 1)
	assert.Equal(t, []int64{1, 3}, models.ImageIDs(images))

	c.RemoveCollection(1)
	images, _ = c.ListImages(ctx, 1)
	assert.Empty(t, images)
}
