package utils

import (
    "testing"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken("s3cret", 42, "CUSTOMER", 15)
    require.NoError(t, err)

    c, err := ParseAccessToken("s3cret", tok.Token)
    require.NoError(t, err)
    assert.Equal(t, Claims{UserID: 42, Role: "CUSTOMER"}, c)
}

func TestParseAccessTokenRejects(t *testing.T) {
    good, err := NewAccessToken("s3cret", 42, "ADMIN", 15)
    require.NoError(t, err)
    expired, err := NewAccessToken("s3cret", 42, "ADMIN", -1)
    require.NoError(t, err)
    noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42", "role": "ADMIN"}).SignedString([]byte("s3cret"))
    require.NoError(t, err)

    testCases := []struct {
        name   string
        secret string
        raw    string
    }{
        {name: "wrong secret", secret: "other", raw: good.Token},
        {name: "expired", secret: "s3cret", raw: expired.Token},
        {name: "missing exp", secret: "s3cret", raw: noExp},
        {name: "garbage", secret: "s3cret", raw: "not.a.jwt"},
    }
    for _, tc := range testCases {
        t.Run(tc.name, func(t *testing.T) {
            _, err := ParseAccessToken(tc.secret, tc.raw)
            assert.ErrorIs(t, err, ErrInvalidToken)
        })
    }
}

func TestRefreshTokenHash(t *testing.T) {
    rt, err := NewRefreshToken(7)
    require.NoError(t, err)
    assert.Len(t, rt.Raw, 96)
    assert.Len(t, HashRefreshRaw(rt.Raw), 64)
    assert.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))
}

func TestPassword(t *testing.T) {
    h, err := HashPassword("correct horse", bcrypt.MinCost)
    require.NoError(t, err)
    assert.True(t, VerifyPassword(h, "correct horse"))
    assert.False(t, VerifyPassword(h, "wrong horse"))
}
