package policy

import (
	"testing"

	"github.com/lyzr/colorsort/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortablePolicy_Default(t *testing.T) {
	p, err := NewSortablePolicy("")
	require.NoError(t, err)

	ok, err := p.Sortable(&models.Collection{ID: 1, MediaType: models.MediaTypeImage})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Sortable(&models.Collection{ID: 2, MediaType: models.MediaTypeVideo})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSortablePolicy_Custom(t *testing.T) {
	p, err := NewSortablePolicy(`collection.media_type == "image" && collection.url.startsWith("s3://")`)
	require.NoError(t, err)

	ok, err := p.Sortable(&models.Collection{MediaType: models.MediaTypeImage, URL: "s3://bucket"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Sortable(&models.Collection{MediaType: models.MediaTypeImage, URL: "local://x"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSortablePolicy_Invalid(t *testing.T) {
	_, err := NewSortablePolicy(`collection.media_type ==`)
	assert.Error(t, err)

	_, err = NewSortablePolicy(`"image"`)
	assert.Error(t, err)
}

func TestEvaluator_Caches(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	col := &models.Collection{ID: 7, MediaType: models.MediaTypeImage}
	for i := 0; i < 3; i++ {
		ok, err := e.Evaluate(`collection.id == 7`, col)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, e.CacheSize())
}
