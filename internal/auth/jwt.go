package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token is a signed bearer credential and its expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Claims represents JWT payload.
type Claims struct {
	Subject string `json:"sub"`
	Role    Role   `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs tokens for verified identities.
type Issuer struct {
	Name string
	Key  string
	TTL  time.Duration
}

// Issue signs an access token carrying the identity's id and role.
func (i Issuer) Issue(id Identity) (Token, error) {
	if !id.Role.Valid() || id.ID == "" {
		return Token{}, errors.New("cannot issue token for incomplete identity")
	}
	now := time.Now()
	exp := now.Add(i.TTL)

	claims := Claims{
		Subject: id.ID,
		Role:    id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.Name,
			Subject:   id.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.Key))
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, ExpiresAt: exp}, nil
}

// Parse validates a token and returns the identity it carries.
func (i Issuer) Parse(tokenStr string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(i.Key), nil
	})
	if err != nil {
		return Identity{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, errors.New("invalid token")
	}
	if i.Name != "" && claims.Issuer != i.Name {
		return Identity{}, errors.New("issuer mismatch")
	}
	if !claims.Role.Valid() || claims.Subject == "" {
		return Identity{}, errors.New("token carries no identity")
	}
	return Identity{ID: claims.Subject, Role: claims.Role}, nil
}
