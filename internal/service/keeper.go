// Package service provides the commit/reveal workflow on the client and the
// registry logic on the server, delegating persistence to store interfaces.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/CommitKeeper/internal/client/storage"
	"github.com/atinyakov/CommitKeeper/internal/commitment"
	"github.com/atinyakov/CommitKeeper/internal/models"
	"github.com/atinyakov/CommitKeeper/internal/pepper"
)

// PepperSource produces fresh peppers.
type PepperSource interface {
	GenerateContext(ctx context.Context, length int) ([]byte, error)
}

// SecretStore persists secret records.
type SecretStore interface {
	Save(ctx context.Context, record models.SecretRecord, destination string, opts storage.SaveOptions) error
	Load(source string) (models.SecretRecord, error)
}

// History indexes commitments made on this machine.
type History interface {
	Add(e models.HistoryEntry) error
	List() ([]models.HistoryEntry, error)
}

// KeeperConfig configures a KeeperService. Zero values pick defaults.
type KeeperConfig struct {
	// Scheme is the commitment scheme for new commitments.
	Scheme commitment.Scheme
	// PepperLength is the pepper size in bytes.
	PepperLength int
	// SecretsDir is where records go when no destination is given.
	SecretsDir string
}

// KeeperService runs the commit and reveal phases for one user.
type KeeperService struct {
	pepper  PepperSource
	store   SecretStore
	history History
	log     *zap.Logger
	cfg     KeeperConfig

	now   func() time.Time
	newID func() string
}

// NewKeeperService constructs a KeeperService. history may be nil.
func NewKeeperService(p PepperSource, store SecretStore, history History, log *zap.Logger, cfg KeeperConfig) *KeeperService {
	if cfg.Scheme == "" {
		cfg.Scheme = commitment.DefaultScheme
	}
	if cfg.PepperLength == 0 {
		cfg.PepperLength = pepper.DefaultLength
	}
	if cfg.SecretsDir == "" {
		cfg.SecretsDir = "."
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &KeeperService{
		pepper:  p,
		store:   store,
		history: history,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Commit generates a pepper, commits to input and saves the secret record.
// An empty destination saves under SecretsDir as <id>.json.
func (s *KeeperService) Commit(ctx context.Context, input, destination string, overwrite bool) (models.SecretRecord, string, error) {
	return s.commit(ctx, input, destination, s.cfg.SecretsDir, overwrite)
}

func (s *KeeperService) commit(ctx context.Context, input, destination, dir string, overwrite bool) (models.SecretRecord, string, error) {
	if input == "" {
		return models.SecretRecord{}, "", commitment.ErrEmptyInput
	}

	pep, err := s.pepper.GenerateContext(ctx, s.cfg.PepperLength)
	if err != nil {
		s.log.Error("pepper generation failed", zap.Error(err))
		return models.SecretRecord{}, "", err
	}

	id := s.newID()
	rec, err := storage.NewRecord(id, s.cfg.Scheme, input, pep, s.now())
	if err != nil {
		return models.SecretRecord{}, "", err
	}

	if destination == "" {
		destination = filepath.Join(dir, id+".json")
	}
	if err := s.store.Save(ctx, rec, destination, storage.SaveOptions{Overwrite: overwrite}); err != nil {
		s.log.Error("saving secret record failed", zap.String("path", destination), zap.Error(err))
		return models.SecretRecord{}, "", err
	}

	s.log.Info("commitment created",
		zap.String("id", rec.ID),
		zap.String("scheme", rec.Scheme),
		zap.String("commitment", rec.Commitment),
		zap.String("path", destination),
	)

	if s.history != nil {
		entry := models.HistoryEntry{
			ID:         rec.ID,
			Scheme:     rec.Scheme,
			Commitment: rec.Commitment,
			Path:       destination,
			CreatedAt:  rec.CreatedAt,
		}
		if err := s.history.Add(entry); err != nil {
			// the record is already durable; only the index is behind
			s.log.Warn("history update failed", zap.String("id", rec.ID), zap.Error(err))
		}
	}
	return rec, destination, nil
}

// Reveal loads the record at source. Integrity is checked by the store.
func (s *KeeperService) Reveal(source string) (models.SecretRecord, error) {
	rec, err := s.store.Load(source)
	if err != nil {
		s.log.Warn("loading secret record failed", zap.String("path", source), zap.Error(err))
		return models.SecretRecord{}, err
	}
	return rec, nil
}

// Check loads the record at source and verifies it against a commitment
// that was published earlier. A mismatch is false, not an error.
func (s *KeeperService) Check(source, published string) (bool, error) {
	want, err := commitment.ParseDigest(published)
	if err != nil {
		return false, err
	}
	rec, err := s.Reveal(source)
	if err != nil {
		return false, err
	}
	return VerifyRecord(rec, want)
}

// History lists past commitments, oldest first.
func (s *KeeperService) History() ([]models.HistoryEntry, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.List()
}

// VerifyRecord checks rec's opening against want.
func VerifyRecord(rec models.SecretRecord, want commitment.Digest) (bool, error) {
	scheme, err := commitment.ParseScheme(rec.Scheme)
	if err != nil {
		return false, err
	}
	pep, err := storage.DecodePepper(rec.Pepper)
	if err != nil {
		return false, err
	}
	return commitment.VerifyScheme(scheme, []byte(rec.Input), pep, want), nil
}

// VerifyOpening checks a revealed (input, pepper) against a commitment, all as
// they would be published: text input, hex pepper, hex digest. Malformed
// encodings are errors; a well-formed opening that does not match is false.
func VerifyOpening(scheme, input, pepperHex, commitmentHex string) (bool, error) {
	sch, err := commitment.ParseScheme(scheme)
	if err != nil {
		return false, err
	}
	pep, err := storage.DecodePepper(pepperHex)
	if err != nil {
		return false, err
	}
	want, err := commitment.ParseDigest(commitmentHex)
	if err != nil {
		return false, err
	}
	return commitment.VerifyScheme(sch, []byte(input), pep, want), nil
}

// BatchResult is the outcome of one input in CommitBatch.
type BatchResult struct {
	Index  int
	Record models.SecretRecord
	Path   string
	Err    error
}

// CommitBatch commits every input in parallel with the given number of
// workers, saving each record as <id>.json in dir (SecretsDir if empty).
// Results keep input order.
// Inputs are independent: one failure does not stop the others.
func (s *KeeperService) CommitBatch(ctx context.Context, inputs []string, dir string, workers int) []BatchResult {
	if workers < 1 {
		workers = 1
	}
	if dir == "" {
		dir = s.cfg.SecretsDir
	}
	results := make([]BatchResult, len(inputs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res := BatchResult{Index: i}
				if err := ctx.Err(); err != nil {
					res.Err = fmt.Errorf("batch cancelled: %w", err)
					results[i] = res
					continue
				}
				res.Record, res.Path, res.Err = s.commit(ctx, inputs[i], "", dir, false)
				results[i] = res
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	s.log.Info("batch finished", zap.Int("inputs", len(inputs)), zap.Int("workers", workers))
	return results
}
