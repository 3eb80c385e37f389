package commitment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/CommitKeeper/internal/pepper"
)

const (
	headsSHA512  = "3bff0ae40d7a89ce36f443620202e9af7a3e677dc810634aab41b99c2754b75f947586ff7a4abde3b33e0ca1b477c0abb602ad6424ba1227f6234d9ee4cce2c4"
	tailsSHA512  = "ea827e4b1fdc901565a8719ae4f53c3ba827c5eccdfb990a0275e07b118a52eb9ac3e7c5b9b24644956bbe156a459fcc324779a870feb5c6fadfeedc2bd2144c"
	headsBLAKE2b = "78b4d01a772bc4cd788610d05fa32c08ce454d23067e7a4e81343f12082accf9bd2478e2bf5a808f101246a94530d3ec9b8ecff243108182ebbbe23f7b8f49af"
)

func testPepper() []byte {
	p := make([]byte, 16)
	for i := range p {
		p[i] = byte(i)
	}
	return p
}

func TestCommit_Vectors(t *testing.T) {
	tests := []struct {
		scheme Scheme
		input  string
		want   string
	}{
		{SchemeSHA512, "alice-bet-heads", headsSHA512},
		{SchemeSHA512, "alice-bet-tails", tailsSHA512},
		{SchemeBLAKE2b512, "alice-bet-heads", headsBLAKE2b},
	}
	for _, tt := range tests {
		t.Run(string(tt.scheme)+"/"+tt.input, func(t *testing.T) {
			d, err := CommitScheme(tt.scheme, []byte(tt.input), testPepper())
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestCommit_DefaultIsSHA512(t *testing.T) {
	d, err := Commit([]byte("alice-bet-heads"), testPepper())
	require.NoError(t, err)
	assert.Equal(t, headsSHA512, d.String())
}

func TestCommit_Idempotent(t *testing.T) {
	p := testPepper()
	a, err := Commit([]byte("same"), p)
	require.NoError(t, err)
	b, err := Commit([]byte("same"), p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCommit_Errors(t *testing.T) {
	_, err := Commit(nil, testPepper())
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Commit([]byte("x"), make([]byte, pepper.MinLength-1))
	assert.ErrorIs(t, err, ErrInvalidPepper)

	_, err = CommitScheme("md5", []byte("x"), testPepper())
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

func TestCommit_DistinctPeppers(t *testing.T) {
	g := pepper.NewGenerator()
	input := []byte("alice-bet-heads")
	seen := make(map[Digest]bool)
	for i := 0; i < 500; i++ {
		p, err := g.Generate(pepper.MinLength)
		require.NoError(t, err)
		d, err := Commit(input, p)
		require.NoError(t, err)
		require.False(t, seen[d], "commitment collided after %d samples", i)
		seen[d] = true
	}
}

func TestCommit_NoBoundaryShift(t *testing.T) {
	// Moving bytes between pepper and input must change the digest.
	base := testPepper()
	shifted := append(append([]byte{}, base...), 'a')

	a, err := Commit([]byte("abc"), base)
	require.NoError(t, err)
	b, err := Commit([]byte("bc"), shifted)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCommit_SchemesDiffer(t *testing.T) {
	a, err := CommitScheme(SchemeSHA512, []byte("x"), testPepper())
	require.NoError(t, err)
	b, err := CommitScheme(SchemeBLAKE2b512, []byte("x"), testPepper())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerify_Reveal(t *testing.T) {
	p := testPepper()
	d, err := Commit([]byte("alice-bet-heads"), p)
	require.NoError(t, err)

	assert.True(t, Verify([]byte("alice-bet-heads"), p, d))
	assert.False(t, Verify([]byte("alice-bet-tails"), p, d))
	assert.False(t, Verify(nil, p, d))
	assert.False(t, Verify([]byte("alice-bet-heads"), p[:8], d))
	assert.False(t, VerifyScheme(SchemeBLAKE2b512, []byte("alice-bet-heads"), p, d))
	assert.False(t, VerifyScheme("nope", []byte("alice-bet-heads"), p, d))
}

func TestVerify_BitFlips(t *testing.T) {
	input := []byte("alice-bet-heads")
	p := testPepper()
	d, err := Commit(input, p)
	require.NoError(t, err)

	for i := range input {
		for bit := 0; bit < 8; bit++ {
			m := append([]byte{}, input...)
			m[i] ^= 1 << bit
			assert.False(t, Verify(m, p, d), "input byte %d bit %d", i, bit)
		}
	}
	for i := range p {
		for bit := 0; bit < 8; bit++ {
			m := append([]byte{}, p...)
			m[i] ^= 1 << bit
			assert.False(t, Verify(input, m, d), "pepper byte %d bit %d", i, bit)
		}
	}
}

func TestParseDigest(t *testing.T) {
	d, err := ParseDigest(headsSHA512)
	require.NoError(t, err)
	assert.Equal(t, headsSHA512, d.String())

	d, err = ParseDigest(strings.ToUpper(headsSHA512) + "\n")
	require.NoError(t, err)
	assert.Equal(t, headsSHA512, d.String())

	_, err = ParseDigest(headsSHA512[:10])
	assert.ErrorIs(t, err, ErrInvalidDigest)

	_, err = ParseDigest("zz" + headsSHA512[2:])
	assert.ErrorIs(t, err, ErrInvalidDigest)
}

func TestParseScheme(t *testing.T) {
	s, err := ParseScheme("")
	require.NoError(t, err)
	assert.Equal(t, DefaultScheme, s)

	for _, want := range Schemes() {
		got, err := ParseScheme(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = ParseScheme("sha1")
	assert.ErrorIs(t, err, ErrUnknownScheme)
}
