package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptySecret     = errors.New("auth: empty secret")
	ErrSigningMethod   = errors.New("auth: invalid signing method")
	ErrInvalidIssuer   = errors.New("auth: invalid token issuer")
	ErrInvalidAudience = errors.New("auth: invalid token audience")
	ErrInvalidToken    = errors.New("auth: invalid token")
)

// Claims carries the session a bearer token belongs to.
type Claims struct {
	SessionID string `json:"sid"`
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and checks session envelopes. The envelope expiry is an
// absolute upper bound; inactivity expiry is enforced by the session store.
type TokenIssuer struct {
	secret      []byte
	issuer      string
	audience    string
	maxLifetime time.Duration
	now         func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(secret, issuer, audience string, maxLifetime time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if maxLifetime <= 0 {
		maxLifetime = 24 * time.Hour
	}
	return &TokenIssuer{
		secret:      []byte(secret),
		issuer:      issuer,
		audience:    audience,
		maxLifetime: maxLifetime,
		now:         time.Now,
	}, nil
}

// Issue signs a token for the given session
func (i *TokenIssuer) Issue(sessionID, accountID string) (string, error) {
	now := i.now()
	claims := Claims{
		SessionID: sessionID,
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.maxLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Validate checks the signature, expiry, issuer and audience of a token and
// returns its claims
func (i *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSigningMethod
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != i.issuer {
		return nil, ErrInvalidIssuer
	}
	// Checked by hand for compatibility with jwt v5 audience types
	if !slices.Contains(claims.Audience, i.audience) {
		return nil, ErrInvalidAudience
	}
	if claims.SessionID == "" || claims.AccountID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
