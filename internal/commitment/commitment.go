// Package commitment binds an input to a pepper with a one-way hash and checks
// revealed openings against published digests.
//
// Binding format. For a scheme with domain tag T and hash H:
//
//	msg    = LP(T) || LP(pepper) || LP(input)
//	LP(x)  = uint64_be(len(x)) || x
//	digest = H(msg)
//
// Every field carries its length, so no (input, pepper) pair can be split
// differently to produce the same message, and the tag keeps digests from
// different schemes apart.
//
// SchemeSHA512 is the default and is pinned by the test vector for input
// "alice-bet-heads" with pepper 0x00..0x0f.
package commitment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/atinyakov/CommitKeeper/internal/pepper"
)

// Scheme names a hash primitive together with its domain tag.
type Scheme string

const (
	// SchemeSHA512 is SHA-512 over the length-prefixed encoding.
	SchemeSHA512 Scheme = "sha512-lp-v1"
	// SchemeBLAKE2b512 is BLAKE2b-512 over the length-prefixed encoding.
	SchemeBLAKE2b512 Scheme = "blake2b512-lp-v1"

	// DefaultScheme is used whenever no scheme is given.
	DefaultScheme = SchemeSHA512

	// DigestSize is the size of every supported digest in bytes.
	DigestSize = 64
)

var (
	// ErrEmptyInput is returned when committing to an empty input.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvalidPepper is returned for peppers shorter than pepper.MinLength.
	ErrInvalidPepper = errors.New("invalid pepper")
	// ErrUnknownScheme is returned for scheme names that are not registered.
	ErrUnknownScheme = errors.New("unknown commitment scheme")
	// ErrInvalidDigest is returned when a digest string cannot be parsed.
	ErrInvalidDigest = errors.New("invalid digest")
)

type suite struct {
	tag     string
	newHash func() hash.Hash
}

var schemes = map[Scheme]suite{
	SchemeSHA512: {
		tag:     "commitkeeper/sha512/v1",
		newHash: sha512.New,
	},
	SchemeBLAKE2b512: {
		tag: "commitkeeper/blake2b512/v1",
		newHash: func() hash.Hash {
			// New512 only fails for keys longer than 64 bytes.
			h, _ := blake2b.New512(nil)
			return h
		},
	},
}

// Digest is a fixed-size commitment.
type Digest [DigestSize]byte

// String returns the lowercase hex form of d.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest decodes a hex digest of exactly DigestSize bytes.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	s = strings.TrimSpace(s)
	if len(s) != hex.EncodedLen(DigestSize) {
		return d, fmt.Errorf("%w: want %d hex chars, got %d", ErrInvalidDigest, hex.EncodedLen(DigestSize), len(s))
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
	return d, nil
}

// ParseScheme resolves a scheme name. An empty name means DefaultScheme.
func ParseScheme(name string) (Scheme, error) {
	if name == "" {
		return DefaultScheme, nil
	}
	s := Scheme(name)
	if _, ok := schemes[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
	return s, nil
}

// Schemes lists the registered scheme names.
func Schemes() []Scheme {
	return []Scheme{SchemeSHA512, SchemeBLAKE2b512}
}

// Commit computes the default-scheme commitment to input under pepper.
func Commit(input, pepper []byte) (Digest, error) {
	return CommitScheme(DefaultScheme, input, pepper)
}

// CommitScheme computes the commitment with the named scheme.
func CommitScheme(scheme Scheme, input, pep []byte) (Digest, error) {
	var d Digest
	st, ok := schemes[scheme]
	if !ok {
		return d, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	if len(input) == 0 {
		return d, ErrEmptyInput
	}
	if len(pep) < pepper.MinLength {
		return d, fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidPepper, len(pep), pepper.MinLength)
	}

	h := st.newHash()
	writeField(h, []byte(st.tag))
	writeField(h, pep)
	writeField(h, input)
	copy(d[:], h.Sum(nil))
	return d, nil
}

// Verify reports whether commitment opens to (input, pepper) under the
// default scheme. The comparison runs in constant time.
func Verify(input, pepper []byte, commitment Digest) bool {
	return VerifyScheme(DefaultScheme, input, pepper, commitment)
}

// VerifyScheme is Verify for an explicit scheme. Any opening that cannot be
// committed to (unknown scheme, empty input, short pepper) does not match.
func VerifyScheme(scheme Scheme, input, pepper []byte, commitment Digest) bool {
	cand, err := CommitScheme(scheme, input, pepper)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(cand[:], commitment[:]) == 1
}

func writeField(h hash.Hash, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	h.Write(n[:])
	h.Write(b)
}
