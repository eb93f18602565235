package auth

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const tokenIssuer = "quotes-backoffice"

// IssueToken returns a signed bearer token for API clients.
func (a *Authenticator) IssueToken(userID uint) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ParseToken validates a bearer token and returns the user id it was issued for.
func (a *Authenticator) ParseToken(raw string) (uint, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return 0, errors.Wrap(err, "parse token")
	}
	id64, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id64 == 0 {
		return 0, errors.New("invalid token subject")
	}
	return uint(id64), nil
}
