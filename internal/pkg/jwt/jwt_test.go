package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := New("secret", time.Hour)

	token, err := svc.GenerateToken(7, "student")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.Equal(t, "7", claims.Subject)
	assert.False(t, claims.CanReview())
}

func TestValidate_WrongSecret(t *testing.T) {
	token, err := New("secret-a", time.Hour).GenerateToken(1, "student")
	require.NoError(t, err)

	_, err = New("secret-b", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	svc := New("secret", -time.Minute)
	token, err := svc.GenerateToken(1, "student")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(userID int64, role string) Claims {
	return Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   "5",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestValidate_ForeignIssuer(t *testing.T) {
	claims := validClaims(5, "student")
	claims.Issuer = "photostudio"

	_, err := New("secret", time.Hour).ValidateToken(sign(t, "secret", claims))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_MissingExpiry(t *testing.T) {
	claims := validClaims(5, "student")
	claims.ExpiresAt = nil

	_, err := New("secret", time.Hour).ValidateToken(sign(t, "secret", claims))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_SubjectMustMatchUser(t *testing.T) {
	svc := New("secret", time.Hour)

	claims := validClaims(6, "student")
	_, err := svc.ValidateToken(sign(t, "secret", claims))
	assert.ErrorIs(t, err, ErrInvalidClaims)

	claims = validClaims(5, "")
	_, err = svc.ValidateToken(sign(t, "secret", claims))
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestValidate_ReviewerRole(t *testing.T) {
	svc := New("secret", time.Hour)

	token, err := svc.GenerateToken(1, RoleReviewer)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, claims.CanReview())
}
