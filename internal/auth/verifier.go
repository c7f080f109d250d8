package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"portfolio-cms/internal/model"
)

const (
	tokenUseAccess = "access"
	tokenUseID     = "id"
)

// LocalIssuer is the iss claim of tokens signed by HMACVerifier.
const LocalIssuer = "portfolio-cms"

// cognitoClaims mirrors the claim set Cognito puts in access and id tokens.
type cognitoClaims struct {
	jwt.RegisteredClaims
	TokenUse        string   `json:"token_use"`
	ClientID        string   `json:"client_id,omitempty"`
	Username        string   `json:"username,omitempty"`
	CognitoUsername string   `json:"cognito:username,omitempty"`
	Groups          []string `json:"cognito:groups,omitempty"`
}

func (c *cognitoClaims) toModel() *model.AuthClaims {
	username := c.Username
	if username == "" {
		username = c.CognitoUsername
	}

	return &model.AuthClaims{
		UserID:   c.Subject,
		Username: username,
		Groups:   c.Groups,
		TokenUse: c.TokenUse,
	}
}

// CognitoVerifier checks RS256 tokens against the user pool's JWKS.
type CognitoVerifier struct {
	jwks     keyfunc.Keyfunc
	issuer   string
	clientID string
}

func NewCognitoVerifier(ctx context.Context, jwksURL string, issuer string, clientID string) (*CognitoVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}

	slog.Info("cognito verifier initialized", "jwks_url", jwksURL, "issuer", issuer)

	return &CognitoVerifier{jwks: jwks, issuer: issuer, clientID: clientID}, nil
}

func (v *CognitoVerifier) ValidateToken(tokenString string) (*model.AuthClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &cognitoClaims{}
	if _, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc, opts...); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnauthorized, err)
	}

	if err := checkClaims(claims, v.clientID); err != nil {
		return nil, err
	}

	return claims.toModel(), nil
}

// HMACVerifier accepts HS256 tokens signed with a shared secret. It exists for
// local development and tests where no user pool is reachable.
type HMACVerifier struct {
	secret []byte
	issuer string
}

func NewHMACVerifier(secret string, issuer string) (*HMACVerifier, error) {
	if len(secret) < 32 {
		return nil, errors.New("hmac secret must be at least 32 characters")
	}
	return &HMACVerifier{secret: []byte(secret), issuer: issuer}, nil
}

func (v *HMACVerifier) ValidateToken(tokenString string) (*model.AuthClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &cognitoClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnauthorized, err)
	}

	if err := checkClaims(claims, ""); err != nil {
		return nil, err
	}

	return claims.toModel(), nil
}

// Issue signs an access token with the verifier's secret.
func (v *HMACVerifier) Issue(userID string, username string, groups []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := cognitoClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenUse: tokenUseAccess,
		Username: username,
		Groups:   groups,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func checkClaims(claims *cognitoClaims, clientID string) error {
	if claims.Subject == "" {
		return fmt.Errorf("%w: token missing subject", model.ErrUnauthorized)
	}

	switch claims.TokenUse {
	case tokenUseAccess:
		if clientID != "" && claims.ClientID != clientID {
			return fmt.Errorf("%w: token issued for another client", model.ErrUnauthorized)
		}
	case tokenUseID:
		if clientID != "" && !containsAudience(claims.Audience, clientID) {
			return fmt.Errorf("%w: token issued for another audience", model.ErrUnauthorized)
		}
	default:
		return fmt.Errorf("%w: unsupported token_use %q", model.ErrUnauthorized, claims.TokenUse)
	}

	return nil
}

func containsAudience(audience jwt.ClaimStrings, want string) bool {
	for _, aud := range audience {
		if aud == want {
			return true
		}
	}
	return false
}
