package models

import (
	"time"

	"github.com/google/uuid"
)

// Sequence is one color sort request for a collection and its result.
// Maps to: color_sort_sequence table
type Sequence struct {
	ID uuid.UUID `db:"id" json:"-"`

	// Owning collection (volume). Records are deleted with it.
	CollectionID int64 `db:"volume_id" json:"-"`

	// Normalized hex color like BADA55
	Color string `db:"color" json:"color"`

	// Image IDs sorted by similarity to Color. Nil while the computation is pending.
	Sequence []int64 `db:"sequence" json:"sequence"`

	CreatedAt time.Time `db:"created_at" json:"-"`
}

// Pending reports whether the sequence has not been computed yet
func (s *Sequence) Pending() bool {
	return s.Sequence == nil
}

// Clone returns a deep copy so callers never share the ID slice with a store
func (s *Sequence) Clone() *Sequence {
	out := *s
	if s.Sequence != nil {
		out.Sequence = append([]int64{}, s.Sequence...)
	}
	return &out
}

// MediaType of a collection
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Collection is the host application's image collection (volume)
type Collection struct {
	ID        int64     `db:"id" json:"id"`
	MediaType MediaType `db:"media_type" json:"media_type"`
	URL       string    `db:"url" json:"url"`
}

// Image is a member of a collection
type Image struct {
	ID           int64  `db:"id" json:"id"`
	CollectionID int64  `db:"volume_id" json:"volume_id"`
	UUID         string `db:"uuid" json:"uuid"`
	Filename     string `db:"filename" json:"filename"`
}

// ImageIDs returns the IDs of images in their given order
func ImageIDs(images []Image) []int64 {
	ids := make([]int64, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	return ids
}
