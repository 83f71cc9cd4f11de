package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/enums"
)

var testCfg = config.JWTConfig{Secret: "secret", Issuer: "aguasol", ExpirationMinutes: 30}

func TestMintAndParseAccessToken(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	subjectID := uuid.New()

	token, err := MintAccessToken(testCfg, now, AccessTokenPayload{
		SubjectID: subjectID,
		Role:      enums.RoleCustomer,
		Name:      "Rosa Quispe",
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(testCfg, token)
	require.NoError(t, err)
	assert.Equal(t, subjectID, claims.SubjectID)
	assert.Equal(t, subjectID.String(), claims.Subject)
	assert.Equal(t, enums.RoleCustomer, claims.Role)
	assert.Equal(t, "Rosa Quispe", claims.Name)
	assert.Equal(t, "aguasol", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.ExpiresAt.Time.Equal(now.Add(30*time.Minute)))
}

func TestParseAccessTokenRejects(t *testing.T) {
	good, err := MintAccessToken(testCfg, time.Now(), AccessTokenPayload{SubjectID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)

	otherIssuer := testCfg
	otherIssuer.Issuer = "someone-else"
	_, err = ParseAccessToken(otherIssuer, good)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	_, err = ParseAccessToken(testCfg, good+"x")
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	expired, err := MintAccessToken(testCfg, time.Now().Add(-time.Hour), AccessTokenPayload{SubjectID: uuid.New(), Role: enums.RoleCustomer})
	require.NoError(t, err)
	_, err = ParseAccessToken(testCfg, expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseAccessTokenToleratesSmallSkew(t *testing.T) {
	token, err := MintAccessToken(testCfg, time.Now().Add(10*time.Second), AccessTokenPayload{SubjectID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)
	_, err = ParseAccessToken(testCfg, token)
	require.NoError(t, err, "iat slightly in the future is within leeway")
}

func TestParseAccessTokenChecksTypedClaims(t *testing.T) {
	id := uuid.New()
	forged := AccessTokenClaims{
		SubjectID: id,
		Role:      enums.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    testCfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, forged).SignedString([]byte(testCfg.Secret))
	require.NoError(t, err)
	_, err = ParseAccessToken(testCfg, raw)
	assert.ErrorContains(t, err, "subject mismatch")

	forged.Subject = id.String()
	forged.Role = "vendor"
	raw, err = jwt.NewWithClaims(jwt.SigningMethodHS256, forged).SignedString([]byte(testCfg.Secret))
	require.NoError(t, err)
	_, err = ParseAccessToken(testCfg, raw)
	assert.ErrorContains(t, err, "not recognized")

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, forged).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken(testCfg, noneAlg)
	assert.Error(t, err)
}

func TestMintAccessTokenRejectsBadInput(t *testing.T) {
	_, err := MintAccessToken(testCfg, time.Now(), AccessTokenPayload{SubjectID: uuid.New()})
	assert.Error(t, err, "role required")
	_, err = MintAccessToken(testCfg, time.Now(), AccessTokenPayload{Role: enums.RoleAdmin})
	assert.Error(t, err, "subject required")

	noTTL := testCfg
	noTTL.ExpirationMinutes = 0
	_, err = MintAccessToken(noTTL, time.Now(), AccessTokenPayload{SubjectID: uuid.New(), Role: enums.RoleAdmin})
	assert.Error(t, err)
}
