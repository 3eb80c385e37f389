// Package repository provides persistence implementations for the commitment
// registry using a PostgreSQL database.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/atinyakov/CommitKeeper/internal/models"
)

// PostgresRegistryRepository stores published commitments in PostgreSQL.
type PostgresRegistryRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresRegistryRepository creates a repository using the provided *sql.DB.
// db must be a valid connection to a PostgreSQL instance.
func NewPostgresRegistryRepository(db *sql.DB) *PostgresRegistryRepository {
	return &PostgresRegistryRepository{DB: db}
}

// InsertCommitment stores c unless a commitment with the same ID exists.
//
//	ctx: context for cancellation and deadlines
//	c:   commitment to publish
//
// Returns true if a row was inserted.
func (r *PostgresRegistryRepository) InsertCommitment(ctx context.Context, c models.PublishedCommitment) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO commitments (id, scheme, commitment, published_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, c.ID, c.Scheme, c.Commitment, c.PublishedAt)
	if err != nil {
		return false, fmt.Errorf("InsertCommitment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("InsertCommitment rows: %w", err)
	}
	return n == 1, nil
}

// GetCommitment fetches a single commitment by ID. It returns nil, nil when
// the ID is unknown.
func (r *PostgresRegistryRepository) GetCommitment(ctx context.Context, id string) (*models.PublishedCommitment, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, scheme, commitment, published_at, revealed, input, pepper, revealed_at
		FROM commitments WHERE id = $1
	`, id)

	c, err := scanCommitment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetCommitment: %w", err)
	}
	return &c, nil
}

// GetCommitments fetches all commitments whose IDs are in ids, ordered by
// publication time.
func (r *PostgresRegistryRepository) GetCommitments(ctx context.Context, ids []string) ([]models.PublishedCommitment, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, scheme, commitment, published_at, revealed, input, pepper, revealed_at
		FROM commitments WHERE id = ANY($1)
		ORDER BY published_at, id
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("GetCommitments: %w", err)
	}
	defer rows.Close()

	result := make([]models.PublishedCommitment, 0, len(ids))
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetCommitments rows: %w", err)
	}
	return result, nil
}

// MarkRevealed records an accepted opening. Only an unrevealed commitment is
// updated, so two concurrent reveals cannot both succeed.
func (r *PostgresRegistryRepository) MarkRevealed(ctx context.Context, id, input, pepper string, revealedAt int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE commitments
		   SET revealed = true, input = $2, pepper = $3, revealed_at = $4
		 WHERE id = $1 AND revealed = false
	`, id, input, pepper, revealedAt)
	if err != nil {
		return false, fmt.Errorf("MarkRevealed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("MarkRevealed rows: %w", err)
	}
	return n == 1, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCommitment(s scanner) (models.PublishedCommitment, error) {
	var (
		c          models.PublishedCommitment
		input      sql.NullString
		pepper     sql.NullString
		revealedAt sql.NullInt64
	)
	if err := s.Scan(&c.ID, &c.Scheme, &c.Commitment, &c.PublishedAt, &c.Revealed, &input, &pepper, &revealedAt); err != nil {
		return models.PublishedCommitment{}, err
	}
	c.Input = input.String
	c.Pepper = pepper.String
	c.RevealedAt = revealedAt.Int64
	return c, nil
}
