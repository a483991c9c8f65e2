package auth

import (
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSettings configures token signing and validation
type TokenSettings struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Claims represents the JWT claims. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// Tokens issues and validates signed access tokens
type Tokens struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokens builds a token service from the given settings
func NewTokens(s TokenSettings) *Tokens {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Tokens{
		secret:   []byte(s.Secret),
		issuer:   s.Issuer,
		audience: s.Audience,
		ttl:      ttl,
	}
}

// now is a small indirection to allow test stubbing if needed.
var now = time.Now

// Issue generates a JWT token for the given user id
func (t *Tokens) Issue(userID uint) (string, error) {
	issuedAt := now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate validates a JWT token and returns the user id it was issued for
func (t *Tokens) Validate(tokenString string) (uint, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(now))
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, errors.New("invalid token")
	}
	if claims.Issuer != t.issuer {
		return 0, errors.New("invalid token issuer")
	}
	if !slices.Contains(claims.Audience, t.audience) {
		return 0, errors.New("invalid token audience")
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid token subject")
	}
	return uint(id), nil
}
