// Package storage keeps secret records on the local disk and talks to the
// commitment registry on the user's behalf.
package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/gofrs/flock"

	"github.com/atinyakov/CommitKeeper/internal/commitment"
	"github.com/atinyakov/CommitKeeper/internal/models"
	"github.com/atinyakov/CommitKeeper/internal/pepper"
)

const (
	filePerm      = 0o600
	lockRetry     = 25 * time.Millisecond
	lockName      = ".commitkeeper.lock"
	tempSuffix    = ".tmp.*"
	defaultLockTO = 5 * time.Second
)

// SaveOptions controls how Save treats an existing destination.
type SaveOptions struct {
	// Overwrite replaces an existing record. Without it Save fails with ErrAlreadyExists.
	Overwrite bool
}

// SecretStore persists secret records as one JSON file per record.
type SecretStore struct{}

// NewSecretStore returns a SecretStore.
func NewSecretStore() *SecretStore {
	return &SecretStore{}
}

// Save writes record to destination atomically. Writers in the same
// directory are serialized with an advisory lock on a single
// ".commitkeeper.lock" file there, held until the file is in place. The lock
// file is left behind so that waiters never lock an unlinked inode. If ctx has no deadline the lock wait
// is bounded by a default timeout.
func (s *SecretStore) Save(ctx context.Context, record models.SecretRecord, destination string, opts SaveOptions) error {
	data, err := Encode(record)
	if err != nil {
		return &Error{Op: "save", Path: destination, Err: err}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultLockTO)
		defer cancel()
	}

	lock := flock.New(filepath.Join(filepath.Dir(destination), lockName))
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return &Error{Op: "save", Path: destination, Err: fmt.Errorf("%w: lock: %w", ErrWrite, err)}
	}
	if !locked {
		return &Error{Op: "save", Path: destination, Err: fmt.Errorf("%w: lock not acquired", ErrWrite)}
	}
	defer func() { _ = lock.Unlock() }()

	if err := writeFileAtomic(destination, data, opts.Overwrite); err != nil {
		return &Error{Op: "save", Path: destination, Err: err}
	}
	return nil
}

// Load reads a record from source and checks that it opens its own commitment.
func (s *SecretStore) Load(source string) (models.SecretRecord, error) {
	f, err := os.Open(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.SecretRecord{}, &Error{Op: "load", Path: source, Err: ErrNotFound}
		}
		return models.SecretRecord{}, &Error{Op: "load", Path: source, Err: fmt.Errorf("%w: %w", ErrParse, err)}
	}
	defer f.Close()

	rec, err := Decode(f)
	if err != nil {
		return models.SecretRecord{}, &Error{Op: "load", Path: source, Err: err}
	}
	return rec, nil
}

// Encode validates record and renders it as indented JSON.
func Encode(record models.SecretRecord) ([]byte, error) {
	if !utf8.ValidString(record.Input) {
		return nil, fmt.Errorf("%w: input is not valid UTF-8", ErrSerialization)
	}
	if record.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrSerialization)
	}
	scheme, pep, want, err := openRecord(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	if !commitment.VerifyScheme(scheme, []byte(record.Input), pep, want) {
		return nil, fmt.Errorf("%w: commitment does not open to input and pepper", ErrSerialization)
	}
	if !record.CreatedAt.IsZero() {
		record.CreatedAt = record.CreatedAt.UTC()
	}

	b, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return append(b, '\n'), nil
}

// Decode strictly parses a record and re-checks its commitment.
func Decode(r io.Reader) (models.SecretRecord, error) {
	var rec models.SecretRecord

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return models.SecretRecord{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return models.SecretRecord{}, fmt.Errorf("%w: trailing content", ErrParse)
	}

	switch {
	case rec.ID == "":
		return models.SecretRecord{}, fmt.Errorf("%w: missing id", ErrParse)
	case rec.Input == "":
		return models.SecretRecord{}, fmt.Errorf("%w: missing input", ErrParse)
	case rec.Pepper == "":
		return models.SecretRecord{}, fmt.Errorf("%w: missing pepper", ErrParse)
	case rec.Commitment == "":
		return models.SecretRecord{}, fmt.Errorf("%w: missing commitment", ErrParse)
	}

	scheme, pep, want, err := openRecord(rec)
	if err != nil {
		return models.SecretRecord{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	// Encode writes lowercase hex; any other spelling is an edit.
	if hex.EncodeToString(pep) != rec.Pepper {
		return models.SecretRecord{}, fmt.Errorf("%w: pepper is not lowercase hex", ErrParse)
	}
	if want.String() != rec.Commitment {
		return models.SecretRecord{}, fmt.Errorf("%w: commitment is not lowercase hex", ErrParse)
	}
	if !commitment.VerifyScheme(scheme, []byte(rec.Input), pep, want) {
		return models.SecretRecord{}, ErrIntegrityMismatch
	}
	return rec, nil
}

// NewRecord assembles a record for input under pep with the given scheme.
func NewRecord(id string, scheme commitment.Scheme, input string, pep []byte, createdAt time.Time) (models.SecretRecord, error) {
	d, err := commitment.CommitScheme(scheme, []byte(input), pep)
	if err != nil {
		return models.SecretRecord{}, err
	}
	return models.SecretRecord{
		ID:         id,
		Scheme:     string(scheme),
		Input:      input,
		Pepper:     hex.EncodeToString(pep),
		Commitment: d.String(),
		CreatedAt:  createdAt.UTC(),
	}, nil
}

// DecodePepper parses a hex pepper and enforces the minimum length.
func DecodePepper(s string) ([]byte, error) {
	pep, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", commitment.ErrInvalidPepper, err)
	}
	if len(pep) < pepper.MinLength {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", commitment.ErrInvalidPepper, len(pep), pepper.MinLength)
	}
	return pep, nil
}

func openRecord(rec models.SecretRecord) (commitment.Scheme, []byte, commitment.Digest, error) {
	scheme, err := commitment.ParseScheme(rec.Scheme)
	if err != nil {
		return "", nil, commitment.Digest{}, err
	}
	pep, err := DecodePepper(rec.Pepper)
	if err != nil {
		return "", nil, commitment.Digest{}, err
	}
	d, err := commitment.ParseDigest(rec.Commitment)
	if err != nil {
		return "", nil, commitment.Digest{}, err
	}
	return scheme, pep, d, nil
}

// writeFileAtomic stages data in a temp file next to path, syncs it, and
// moves it into place. Without overwrite the final step is a hard link, which
// fails if path already exists.
func writeFileAtomic(path string, data []byte, overwrite bool) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	if !overwrite {
		if _, err := os.Lstat(path); err == nil {
			return ErrAlreadyExists
		}
	}

	tmp, err := os.CreateTemp(dir, "."+base+tempSuffix)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	if overwrite {
		err = os.Rename(tmpName, path)
	} else {
		err = os.Link(tmpName, path)
		if errors.Is(err, os.ErrExist) {
			return ErrAlreadyExists
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := fsyncDir(dir); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
