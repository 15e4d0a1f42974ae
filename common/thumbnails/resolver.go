package thumbnails

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/lyzr/colorsort/common/models"
)

// Location is where the thumbnail of one image is stored
type Location struct {
	ImageID int64
	Path    string // local file path or http(s) URL
	Remote  bool
}

// Resolver maps images to thumbnail locations:
// {prefix}/{uuid[0:2]}/{uuid[2:4]}/{uuid}.{format}
type Resolver struct {
	prefix string
	format string
	remote bool
}

// NewResolver creates a resolver. prefix is a directory or an http(s) base URL.
func NewResolver(prefix, format string) *Resolver {
	remote := strings.HasPrefix(prefix, "http://") || strings.HasPrefix(prefix, "https://")
	if remote {
		prefix = strings.TrimRight(prefix, "/")
	}
	return &Resolver{
		prefix: prefix,
		format: strings.TrimPrefix(format, "."),
		remote: remote,
	}
}

// FragmentPath splits a UUID into the two level directory layout used for thumbnails
func FragmentPath(uuid string) string {
	if len(uuid) < 4 {
		return uuid
	}
	return uuid[0:2] + "/" + uuid[2:4] + "/" + uuid
}

// Resolve returns the thumbnail location of img
func (r *Resolver) Resolve(img models.Image) Location {
	name := FragmentPath(img.UUID) + "." + r.format

	if r.remote {
		return Location{
			ImageID: img.ID,
			Path:    r.prefix + "/" + path.Clean(name),
			Remote:  true,
		}
	}

	return Location{
		ImageID: img.ID,
		Path:    filepath.Join(r.prefix, filepath.FromSlash(name)),
	}
}

// ResolveAll resolves a list of images, keeping their order
func (r *Resolver) ResolveAll(images []models.Image) []Location {
	locs := make([]Location, len(images))
	for i, img := range images {
		locs[i] = r.Resolve(img)
	}
	return locs
}
