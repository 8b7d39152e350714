package token

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/idtoken"
)

// Verification failure taxonomy. Every failure maps to 401 at the HTTP
// boundary; the distinctions matter for logs and tests.
var (
	ErrMalformed        = errors.New("token malformed")
	ErrExpired          = errors.New("token expired or not yet valid")
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrAudienceMismatch = errors.New("token audience mismatch")
	ErrUnknownIssuer    = errors.New("token issuer not accepted")
)

// IsVerificationError reports whether err belongs to the verification taxonomy.
func IsVerificationError(err error) bool {
	return errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrSignatureInvalid) ||
		errors.Is(err, ErrAudienceMismatch) ||
		errors.Is(err, ErrUnknownIssuer)
}

// Google's issuer claim appears in both bare and https forms.
var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// googleValidateFunc validates a Google ID token against an audience.
// The default implementation delegates to the idtoken package, which keeps a
// process-wide JWKS cache refreshed on miss; a refresh failure is reported as
// a validation error, never a crash.
type googleValidateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// Verifier resolves a raw bearer credential to an Identity.
type Verifier struct {
	secret         []byte
	localIssuer    string
	googleAudience string
	validateGoogle googleValidateFunc
}

// NewVerifier constructs a Verifier accepting tokens signed with secret under
// localIssuer, plus Google ID tokens targeting googleAudience.
func NewVerifier(secret, localIssuer, googleAudience string) *Verifier {
	return &Verifier{
		secret:         []byte(secret),
		localIssuer:    localIssuer,
		googleAudience: googleAudience,
		validateGoogle: idtoken.Validate,
	}
}

// localClaims is the claim set of tokens issued by this service.
type localClaims struct {
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verify validates rawToken and returns the authenticated identity.
// It has no side effects beyond the Google key cache.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	issuer, err := peekIssuer(rawToken)
	if err != nil {
		return nil, ErrMalformed
	}

	switch {
	case googleIssuers[issuer]:
		return v.verifyGoogle(ctx, rawToken)
	case issuer == v.localIssuer:
		return v.verifyLocal(rawToken)
	default:
		return nil, ErrUnknownIssuer
	}
}

// peekIssuer reads the issuer claim without verifying the signature.
func peekIssuer(rawToken string) (string, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(rawToken, claims); err != nil {
		return "", err
	}
	issuer, err := claims.GetIssuer()
	if err != nil {
		return "", err
	}
	return issuer, nil
}

func (v *Verifier) verifyLocal(rawToken string) (*Identity, error) {
	claims := new(localClaims)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.localIssuer),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		case errors.Is(err, jwt.ErrTokenExpired),
			errors.Is(err, jwt.ErrTokenNotValidYet),
			errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
			return nil, ErrExpired
		default:
			return nil, ErrSignatureInvalid
		}
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrSignatureInvalid
	}

	return &Identity{
		Subject:  claims.Subject,
		Issuer:   IssuerLocal,
		Email:    claims.Email,
		Elevated: claims.Role == "admin",
		Claims: map[string]any{
			"iss":  claims.RegisteredClaims.Issuer,
			"sub":  claims.Subject,
			"role": claims.Role,
		},
	}, nil
}

func (v *Verifier) verifyGoogle(ctx context.Context, rawToken string) (*Identity, error) {
	if v.googleAudience == "" {
		return nil, ErrUnknownIssuer
	}
	payload, err := v.validateGoogle(ctx, rawToken, v.googleAudience)
	if err != nil {
		return nil, classifyGoogleError(err)
	}
	if payload.Audience != v.googleAudience {
		return nil, ErrAudienceMismatch
	}
	email, _ := payload.Claims["email"].(string)

	// Google identities are never elevated; admin trust is granted only by
	// locally issued tokens.
	return &Identity{
		Subject:  payload.Subject,
		Issuer:   IssuerGoogle,
		Email:    email,
		Elevated: false,
		Claims:   payload.Claims,
	}, nil
}

// classifyGoogleError folds idtoken failures into the taxonomy. The idtoken
// package exposes reasons only as text, so matching is by message. Key-set
// refresh failures land on ErrSignatureInvalid rather than a server error.
func classifyGoogleError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "expired"):
		return ErrExpired
	case strings.Contains(msg, "aud"):
		return ErrAudienceMismatch
	default:
		return ErrSignatureInvalid
	}
}
