package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/lyzr/colorsort/common/models"
)

// MemoryImageCatalog is an in-memory ImageCatalog
type MemoryImageCatalog struct {
	mu          sync.RWMutex
	collections map[int64]models.Collection
	images      map[int64]map[int64]models.Image
}

// NewMemoryImageCatalog creates an empty catalog
func NewMemoryImageCatalog() *MemoryImageCatalog {
	return &MemoryImageCatalog{
		collections: make(map[int64]models.Collection),
		images:      make(map[int64]map[int64]models.Image),
	}
}

// PutCollection adds or replaces a collection
func (c *MemoryImageCatalog) PutCollection(col models.Collection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.collections[col.ID] = col
	if _, ok := c.images[col.ID]; !ok {
		c.images[col.ID] = make(map[int64]models.Image)
	}
}

// PutImages adds images to their collections
func (c *MemoryImageCatalog) PutImages(images ...models.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, img := range images {
		if _, ok := c.images[img.CollectionID]; !ok {
			c.images[img.CollectionID] = make(map[int64]models.Image)
		}
		c.images[img.CollectionID][img.ID] = img
	}
}

// RemoveImage removes one image from a collection
func (c *MemoryImageCatalog) RemoveImage(collectionID, imageID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.images[collectionID], imageID)
}

// RemoveCollection removes a collection and its images
func (c *MemoryImageCatalog) RemoveCollection(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.collections, id)
	delete(c.images, id)
}

func (c *MemoryImageCatalog) GetCollection(ctx context.Context, id int64) (*models.Collection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	col, ok := c.collections[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &col, nil
}

func (c *MemoryImageCatalog) ListImages(ctx context.Context, collectionID int64) ([]models.Image, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	images := make([]models.Image, 0, len(c.images[collectionID]))
	for _, img := range c.images[collectionID] {
		images = append(images, img)
	}
	sort.Slice(images, func(i, j int) bool { return images[i].ID < images[j].ID })
	return images, nil
}
