package token

import (
	"testing"
	"time"

	"chronicle/internal/identity/models"
	id "chronicle/pkg/domain"
	dErrors "chronicle/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = &models.User{
	ID:       id.UserID(uuid.New()),
	Username: "amina",
	Role:     models.RoleContributor,
	Active:   true,
}

var jwtService = NewJWTService("test-signing-key", "chronicle-test", time.Hour)

func Test_GenerateAndValidate(t *testing.T) {
	token, err := jwtService.Generate(testUser)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, testUser.ID.String(), claims.UserID)
	assert.Equal(t, testUser.ID.String(), claims.Subject)
	assert.Equal(t, "amina", claims.Username)
	assert.Equal(t, string(models.RoleContributor), claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_Generate_RequiresUser(t *testing.T) {
	_, err := jwtService.Generate(nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = jwtService.Generate(&models.User{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_Validate_InvalidToken(t *testing.T) {
	_, err := jwtService.Validate("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_Validate_EmptyToken(t *testing.T) {
	_, err := jwtService.Validate("")
	require.ErrorContains(t, err, "empty token")
}

func Test_Validate_ExpiredToken(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	expired := NewJWTService("test-signing-key", "chronicle-test", time.Hour,
		WithJWTClock(func() time.Time { return past }))

	token, err := expired.Generate(testUser)
	require.NoError(t, err)

	_, err = jwtService.Validate(token)
	require.ErrorContains(t, err, "token expired")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_Validate_WrongKey(t *testing.T) {
	other := NewJWTService("wrong-key", "chronicle-test", time.Hour)
	token, err := other.Generate(testUser)
	require.NoError(t, err)

	_, err = jwtService.Validate(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_Validate_WrongIssuer(t *testing.T) {
	other := NewJWTService("test-signing-key", "other-issuer", time.Hour)
	token, err := other.Generate(testUser)
	require.NoError(t, err)

	_, err = jwtService.Validate(token)
	require.ErrorContains(t, err, "invalid token issuer")
}

func Test_Validate_RejectsAlgorithmConfusion(t *testing.T) {
	claims := Claims{
		UserID:   testUser.ID.String(),
		Username: testUser.Username,
		Role:     string(testUser.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUser.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "chronicle-test",
			ID:        uuid.NewString(),
		},
	}

	cases := []struct {
		name       string
		signMethod jwt.SigningMethod
		signKey    any
	}{
		{
			name:       "hs512 header rejected",
			signMethod: jwt.SigningMethodHS512,
			signKey:    []byte("test-signing-key"),
		},
		{
			name:       "alg none rejected",
			signMethod: jwt.SigningMethodNone,
			signKey:    jwt.UnsafeAllowNoneSignatureType,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			token := jwt.NewWithClaims(tt.signMethod, claims)
			tokenString, err := token.SignedString(tt.signKey)
			require.NoError(t, err)

			_, err = jwtService.Validate(tokenString)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		})
	}
}

func Test_Validate_RejectsMalformedSubject(t *testing.T) {
	claims := Claims{
		UserID: "not-a-uuid",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "chronicle-test",
		},
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = jwtService.Validate(tokenString)
	require.ErrorContains(t, err, "invalid token subject")
}
