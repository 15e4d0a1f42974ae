package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lyzr/colorsort/common/db"
	"github.com/lyzr/colorsort/common/models"
)

// ImageCatalog reads the host application's collections and their images
type ImageCatalog interface {
	GetCollection(ctx context.Context, id int64) (*models.Collection, error)

	// ListImages returns the images of a collection ordered by ascending ID
	ListImages(ctx context.Context, collectionID int64) ([]models.Image, error)
}

// PostgresImageCatalog reads the volumes and images tables
type PostgresImageCatalog struct {
	db *db.DB
}

// NewPostgresImageCatalog creates a new catalog
func NewPostgresImageCatalog(db *db.DB) *PostgresImageCatalog {
	return &PostgresImageCatalog{db: db}
}

// GetCollection retrieves a collection by ID
func (r *PostgresImageCatalog) GetCollection(ctx context.Context, id int64) (*models.Collection, error) {
	query := `
		SELECT id, media_type, url
		FROM volumes
		WHERE id = $1
	`

	col := &models.Collection{}
	err := r.db.QueryRow(ctx, query, id).Scan(&col.ID, &col.MediaType, &col.URL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	return col, nil
}

// ListImages lists the images of a collection
func (r *PostgresImageCatalog) ListImages(ctx context.Context, collectionID int64) ([]models.Image, error) {
	query := `
		SELECT id, volume_id, uuid::text, filename
		FROM images
		WHERE volume_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	images := []models.Image{}
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.ID, &img.CollectionID, &img.UUID, &img.Filename); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating images: %w", err)
	}

	return images, nil
}
