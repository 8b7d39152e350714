package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"

	_ "github.com/homefind/usersvc/testing"
)

const (
	testSecret   = "test-secret"
	testIssuer   = "usersvc-test"
	testAudience = "client-id-123"
)

func signLocal(t *testing.T, secret string, claims localClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func localTestClaims(issuer string, expiresIn time.Duration) localClaims {
	now := time.Now().UTC()
	return localClaims{
		Role: "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "9f4e9b1a-0d0f-4a39-93dc-4be6b49a9a9a",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
}

func TestVerifyLocalToken(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer, testAudience)

	raw := signLocal(t, testSecret, localTestClaims(testIssuer, time.Hour))
	identity, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, IssuerLocal, identity.Issuer)
	assert.Equal(t, "9f4e9b1a-0d0f-4a39-93dc-4be6b49a9a9a", identity.Subject)
	assert.False(t, identity.Elevated)
}

func TestVerifyLocalAdminElevated(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer, testAudience)

	claims := localTestClaims(testIssuer, time.Hour)
	claims.Role = "admin"
	identity, err := v.Verify(context.Background(), signLocal(t, testSecret, claims))
	require.NoError(t, err)
	assert.True(t, identity.Elevated)
}

func TestVerifyTamperedSignature(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer, testAudience)

	raw := signLocal(t, "another-secret", localTestClaims(testIssuer, time.Hour))
	_, err := v.Verify(context.Background(), raw)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifyExpired(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer, testAudience)

	raw := signLocal(t, testSecret, localTestClaims(testIssuer, -time.Minute))
	_, err := v.Verify(context.Background(), raw)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyNotYetValid(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer, testAudience)

	claims := localTestClaims(testIssuer, time.Hour)
	claims.NotBefore = jwt.NewNumericDate(time.Now().UTC().Add(time.Hour))
	_, err := v.Verify(context.Background(), signLocal(t, testSecret, claims))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyUnknownIssuer(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer, testAudience)

	raw := signLocal(t, testSecret, localTestClaims("somebody-else", time.Hour))
	_, err := v.Verify(context.Background(), raw)
	assert.ErrorIs(t, err, ErrUnknownIssuer)
}

func TestVerifyMalformed(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer, testAudience)

	for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		_, err := v.Verify(context.Background(), raw)
		assert.ErrorIs(t, err, ErrMalformed, "token %q", raw)
	}
}

func TestVerifyWrongAlgorithmRejected(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer, testAudience)

	claims := localTestClaims(testIssuer, time.Hour)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), signed)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

// googleToken crafts a structurally valid token carrying Google's issuer
// claim; the stubbed validator decides its fate.
func googleToken(t *testing.T, issuer string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "google-sub-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("opaque"))
	require.NoError(t, err)
	return signed
}

func TestVerifyGoogleToken(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer, testAudience)
	v.validateGoogle = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		assert.Equal(t, testAudience, audience)
		return &idtoken.Payload{
			Issuer:   "https://accounts.google.com",
			Audience: audience,
			Subject:  "google-sub-42",
			Claims:   map[string]any{"email": "g@example.com", "sub": "google-sub-42"},
		}, nil
	}

	identity, err := v.Verify(context.Background(), googleToken(t, "https://accounts.google.com"))
	require.NoError(t, err)
	assert.Equal(t, IssuerGoogle, identity.Issuer)
	assert.Equal(t, "google-sub-42", identity.Subject)
	assert.Equal(t, "g@example.com", identity.Email)
	assert.False(t, identity.Elevated)
}

func TestVerifyGoogleBareIssuerAccepted(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer, testAudience)
	v.validateGoogle = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		return &idtoken.Payload{Audience: audience, Subject: "google-sub-42", Claims: map[string]any{}}, nil
	}

	_, err := v.Verify(context.Background(), googleToken(t, "accounts.google.com"))
	assert.NoError(t, err)
}

func TestVerifyGoogleErrorClassification(t *testing.T) {
	cases := []struct {
		name     string
		fail     error
		expected error
	}{
		{"expired", errors.New("idtoken: token expired"), ErrExpired},
		{"audience", errors.New("idtoken: audience provided does not match aud claim in the JWT"), ErrAudienceMismatch},
		{"signature", errors.New("idtoken: could not find matching cert in registry"), ErrSignatureInvalid},
		{"keyset refresh", errors.New("idtoken: unable to retrieve JWK certs"), ErrSignatureInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewVerifier(testSecret, testIssuer, testAudience)
			v.validateGoogle = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
				return nil, tc.fail
			}
			_, err := v.Verify(context.Background(), googleToken(t, "accounts.google.com"))
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestVerifyGoogleAudienceCrossCheck(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer, testAudience)
	v.validateGoogle = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		return &idtoken.Payload{Audience: "someone-else", Subject: "google-sub-42"}, nil
	}

	_, err := v.Verify(context.Background(), googleToken(t, "accounts.google.com"))
	assert.ErrorIs(t, err, ErrAudienceMismatch)
}

func TestVerifyGoogleDisabledWithoutAudience(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer, "")

	_, err := v.Verify(context.Background(), googleToken(t, "accounts.google.com"))
	assert.ErrorIs(t, err, ErrUnknownIssuer)
}

func TestIssuerRoundTrip(t *testing.T) {
	issuer := NewIssuer(testSecret, testIssuer, time.Hour)
	v := NewVerifier(testSecret, testIssuer, testAudience)

	raw, err := issuer.Issue("some-user-id", "admin", "a@example.com")
	require.NoError(t, err)

	identity, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "some-user-id", identity.Subject)
	assert.Equal(t, "a@example.com", identity.Email)
	assert.True(t, identity.Elevated)
}

func TestIsVerificationError(t *testing.T) {
	for _, err := range []error{ErrMalformed, ErrExpired, ErrSignatureInvalid, ErrAudienceMismatch, ErrUnknownIssuer} {
		assert.True(t, IsVerificationError(err))
	}
	assert.False(t, IsVerificationError(errors.New("other")))
}
