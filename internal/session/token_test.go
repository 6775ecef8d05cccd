package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCodecRoundTrip(t *testing.T) {
	codec := NewTokenCodec("secret")

	token, err := codec.Encode("sess-1", time.Now())
	require.NoError(t, err)

	id, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)
}

func TestTokenCodecRejectsForeignTokens(t *testing.T) {
	codec := NewTokenCodec("secret")
	other := NewTokenCodec("other-secret")

	foreign, err := other.Encode("sess-1", time.Now())
	require.NoError(t, err)

	_, err = codec.Decode(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = codec.Decode("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ID: "sess-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Decode(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = codec.Encode(" ", time.Now())
	assert.Error(t, err)
}
