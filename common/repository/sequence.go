package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lyzr/colorsort/common/db"
	"github.com/lyzr/colorsort/common/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// SequenceStore persists color sort sequences.
// At most one record exists per (collection, color) pair.
type SequenceStore interface {
	// Create inserts a pending record. Returns models.ErrConflict when the pair exists.
	Create(ctx context.Context, collectionID int64, color string) (*models.Sequence, error)

	Get(ctx context.Context, collectionID int64, color string) (*models.Sequence, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Sequence, error)

	// ListColors returns the colors of populated records, sorted
	ListColors(ctx context.Context, collectionID int64) ([]string, error)

	// SetResult populates a record. Returns false when the record no longer exists.
	SetResult(ctx context.Context, id uuid.UUID, sequence []int64) (bool, error)

	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByColor(ctx context.Context, collectionID int64, color string) error
	DeleteByCollection(ctx context.Context, collectionID int64) (int64, error)

	// RemoveImage drops imageID from every populated sequence of the collection
	// and returns the number of records rewritten.
	RemoveImage(ctx context.Context, collectionID, imageID int64) (int, error)

	// DeleteStalePending removes pending records created before the given time
	// and returns them.
	DeleteStalePending(ctx context.Context, before time.Time) ([]models.Sequence, error)
}

// PostgresSequenceStore handles database operations for color sort sequences
type PostgresSequenceStore struct {
	db *db.DB
}

// NewPostgresSequenceStore creates a new sequence store
func NewPostgresSequenceStore(db *db.DB) *PostgresSequenceStore {
	return &PostgresSequenceStore{db: db}
}

// Create inserts a new pending sequence
func (r *PostgresSequenceStore) Create(ctx context.Context, collectionID int64, color string) (*models.Sequence, error) {
	query := `
		INSERT INTO color_sort_sequence (id, volume_id, color)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	seq := &models.Sequence{
		ID:           uuid.New(),
		CollectionID: collectionID,
		Color:        color,
	}

	err := r.db.QueryRow(ctx, query, seq.ID, collectionID, color).Scan(&seq.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return nil, models.ErrConflict
			case pgForeignKeyViolation:
				return nil, fmt.Errorf("collection %d: %w", collectionID, models.ErrNotFound)
			}
		}
		return nil, fmt.Errorf("failed to create sequence: %w", err)
	}

	return seq, nil
}

// Get retrieves the sequence of a collection for a color
func (r *PostgresSequenceStore) Get(ctx context.Context, collectionID int64, color string) (*models.Sequence, error) {
	query := `
		SELECT id, volume_id, color, sequence, created_at
		FROM color_sort_sequence
		WHERE volume_id = $1 AND color = $2
	`

	return r.scanOne(r.db.QueryRow(ctx, query, collectionID, color))
}

// GetByID retrieves a sequence by its ID
func (r *PostgresSequenceStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Sequence, error) {
	query := `
		SELECT id, volume_id, color, sequence, created_at
		FROM color_sort_sequence
		WHERE id = $1
	`

	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresSequenceStore) scanOne(row pgx.Row) (*models.Sequence, error) {
	seq := &models.Sequence{}
	var raw []byte

	err := row.Scan(&seq.ID, &seq.CollectionID, &seq.Color, &raw, &seq.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sequence: %w", err)
	}

	if err := decodeSequence(raw, seq); err != nil {
		return nil, err
	}
	return seq, nil
}

// ListColors lists the colors with a computed sequence
func (r *PostgresSequenceStore) ListColors(ctx context.Context, collectionID int64) ([]string, error) {
	query := `
		SELECT color
		FROM color_sort_sequence
		WHERE volume_id = $1 AND sequence IS NOT NULL
		ORDER BY color
	`

	rows, err := r.db.Query(ctx, query, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list colors: %w", err)
	}
	defer rows.Close()

	colors := []string{}
	for rows.Next() {
		var color string
		if err := rows.Scan(&color); err != nil {
			return nil, fmt.Errorf("failed to scan color: %w", err)
		}
		colors = append(colors, color)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating colors: %w", err)
	}

	return colors, nil
}

// SetResult stores the computed sequence
func (r *PostgresSequenceStore) SetResult(ctx context.Context, id uuid.UUID, sequence []int64) (bool, error) {
	raw, err := encodeSequence(sequence)
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, `UPDATE color_sort_sequence SET sequence = $2 WHERE id = $1`, id, raw)
	if err != nil {
		return false, fmt.Errorf("failed to set sequence result: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Delete removes a sequence by ID
func (r *PostgresSequenceStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM color_sort_sequence WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sequence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteByColor removes the sequence of a collection for a color
func (r *PostgresSequenceStore) DeleteByColor(ctx context.Context, collectionID int64, color string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM color_sort_sequence WHERE volume_id = $1 AND color = $2`,
		collectionID, color,
	)
	if err != nil {
		return fmt.Errorf("failed to delete sequence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteByCollection removes every sequence of a collection
func (r *PostgresSequenceStore) DeleteByCollection(ctx context.Context, collectionID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM color_sort_sequence WHERE volume_id = $1`, collectionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete collection sequences: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RemoveImage rewrites every populated sequence containing imageID.
// Rows are locked for the duration of the rewrite.
func (r *PostgresSequenceStore) RemoveImage(ctx context.Context, collectionID, imageID int64) (int, error) {
	query := `
		SELECT id, sequence
		FROM color_sort_sequence
		WHERE volume_id = $1 AND sequence IS NOT NULL AND sequence @> $2::jsonb
		FOR UPDATE
	`

	needle, err := json.Marshal([]int64{imageID})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal image id: %w", err)
	}

	updated := 0
	err = r.db.WithTx(ctx, func(tx pgx.Tx) error {
		type row struct {
			id  uuid.UUID
			seq models.Sequence
		}

		rows, err := tx.Query(ctx, query, collectionID, needle)
		if err != nil {
			return fmt.Errorf("failed to select sequences: %w", err)
		}

		var locked []row
		for rows.Next() {
			var rw row
			var raw []byte
			if err := rows.Scan(&rw.id, &raw); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan sequence: %w", err)
			}
			if err := decodeSequence(raw, &rw.seq); err != nil {
				rows.Close()
				return err
			}
			locked = append(locked, rw)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating sequences: %w", err)
		}

		for _, rw := range locked {
			next, removed, err := models.Without(rw.seq.Sequence, imageID)
			if err != nil {
				return err
			}
			if !removed {
				continue
			}

			raw, err := encodeSequence(next)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `UPDATE color_sort_sequence SET sequence = $2 WHERE id = $1`, rw.id, raw); err != nil {
				return fmt.Errorf("failed to update sequence: %w", err)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to remove image %d: %w", imageID, err)
	}

	return updated, nil
}

// DeleteStalePending removes pending sequences whose task was lost
func (r *PostgresSequenceStore) DeleteStalePending(ctx context.Context, before time.Time) ([]models.Sequence, error) {
	query := `
		DELETE FROM color_sort_sequence
		WHERE sequence IS NULL AND created_at < $1
		RETURNING id, volume_id, color, created_at
	`

	rows, err := r.db.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to delete stale sequences: %w", err)
	}
	defer rows.Close()

	var deleted []models.Sequence
	for rows.Next() {
		var seq models.Sequence
		if err := rows.Scan(&seq.ID, &seq.CollectionID, &seq.Color, &seq.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stale sequence: %w", err)
		}
		deleted = append(deleted, seq)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale sequences: %w", err)
	}

	return deleted, nil
}

func encodeSequence(sequence []int64) ([]byte, error) {
	if sequence == nil {
		sequence = []int64{}
	}
	raw, err := json.Marshal(sequence)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sequence: %w", err)
	}
	return raw, nil
}

func decodeSequence(raw []byte, seq *models.Sequence) error {
	if raw == nil {
		seq.Sequence = nil
		return nil
	}
	ids := []int64{}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("failed to unmarshal sequence: %w", err)
	}
	seq.Sequence = ids
	return nil
}
