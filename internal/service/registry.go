package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/CommitKeeper/internal/commitment"
	"github.com/atinyakov/CommitKeeper/internal/models"
)

var (
	// ErrInvalidCommitment is returned for publish requests that are malformed.
	ErrInvalidCommitment = errors.New("invalid commitment")
	// ErrAlreadyPublished is returned when the ID is already on the board.
	ErrAlreadyPublished = errors.New("commitment already published")
	// ErrCommitmentNotFound is returned for unknown IDs.
	ErrCommitmentNotFound = errors.New("commitment not found")
	// ErrAlreadyRevealed is returned when a commitment was already opened.
	ErrAlreadyRevealed = errors.New("commitment already revealed")
	// ErrInvalidOpening is returned when a revealed pepper cannot be decoded.
	ErrInvalidOpening = errors.New("invalid opening")
)

// RegistryRepository defines the persistence operations needed by the RegistryService.
type RegistryRepository interface {
	// InsertCommitment stores c unless its ID exists. It reports whether a row was inserted.
	InsertCommitment(ctx context.Context, c models.PublishedCommitment) (bool, error)
	// GetCommitment returns the commitment with the given ID, or nil if there is none.
	GetCommitment(ctx context.Context, id string) (*models.PublishedCommitment, error)
	// GetCommitments returns the commitments whose IDs are in ids.
	GetCommitments(ctx context.Context, ids []string) ([]models.PublishedCommitment, error)
	// MarkRevealed records an accepted opening. It reports false if the
	// commitment was already revealed or does not exist.
	MarkRevealed(ctx context.Context, id, input, pepper string, revealedAt int64) (bool, error)
}

// RegistryService implements the public commitment board.
type RegistryService struct {
	repo RegistryRepository
	now  func() time.Time
}

// NewRegistryService constructs a RegistryService with the provided repository.
func NewRegistryService(repo RegistryRepository) *RegistryService {
	return &RegistryService{repo: repo, now: time.Now}
}

// Publish validates and stores a commitment. The digest is stored in
// canonical lowercase hex.
func (s *RegistryService) Publish(ctx context.Context, id, scheme, digest string) (models.PublishedCommitment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.PublishedCommitment{}, fmt.Errorf("%w: missing id", ErrInvalidCommitment)
	}
	sch, err := commitment.ParseScheme(scheme)
	if err != nil {
		return models.PublishedCommitment{}, fmt.Errorf("%w: %w", ErrInvalidCommitment, err)
	}
	d, err := commitment.ParseDigest(digest)
	if err != nil {
		return models.PublishedCommitment{}, fmt.Errorf("%w: %w", ErrInvalidCommitment, err)
	}

	c := models.PublishedCommitment{
		ID:          id,
		Scheme:      string(sch),
		Commitment:  d.String(),
		PublishedAt: s.now().Unix(),
	}
	inserted, err := s.repo.InsertCommitment(ctx, c)
	if err != nil {
		return models.PublishedCommitment{}, err
	}
	if !inserted {
		return models.PublishedCommitment{}, ErrAlreadyPublished
	}
	return c, nil
}

// Get returns one published commitment.
func (s *RegistryService) Get(ctx context.Context, id string) (*models.PublishedCommitment, error) {
	c, err := s.repo.GetCommitment(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCommitmentNotFound
	}
	return c, nil
}

// List returns the published commitments with the given IDs. Unknown IDs are skipped.
func (s *RegistryService) List(ctx context.Context, ids []string) ([]models.PublishedCommitment, error) {
	if len(ids) == 0 {
		return []models.PublishedCommitment{}, nil
	}
	return s.repo.GetCommitments(ctx, ids)
}

// Reveal checks an opening against the published commitment. A matching
// opening is recorded and reported as true; a non-matching one is false and
// leaves the commitment open.
func (s *RegistryService) Reveal(ctx context.Context, id, input, pepperHex string) (bool, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if c.Revealed {
		return false, ErrAlreadyRevealed
	}

	ok, err := VerifyOpening(c.Scheme, input, pepperHex, c.Commitment)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidOpening, err)
	}
	if !ok {
		return false, nil
	}

	updated, err := s.repo.MarkRevealed(ctx, id, input, strings.ToLower(pepperHex), s.now().Unix())
	if err != nil {
		return false, err
	}
	if !updated {
		return false, ErrAlreadyRevealed
	}
	return true, nil
}
