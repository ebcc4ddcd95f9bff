package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ResetTokens issues and verifies signed, expiring password-reset tokens.
type ResetTokens struct {
	secret []byte
	expiry time.Duration
}

// NewResetTokens creates a token signer. The expiry bounds how long a reset
// link remains valid.
func NewResetTokens(secret string, expiry time.Duration) *ResetTokens {
	if expiry <= 0 {
		expiry = 30 * time.Minute
	}
	return &ResetTokens{secret: []byte(secret), expiry: expiry}
}

type resetClaims struct {
	UserID uint `json:"userid"`
	jwt.RegisteredClaims
}

// Generate signs a token carrying the user ID.
func (rt *ResetTokens) Generate(userID uint) (string, error) {
	claims := resetClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(rt.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(rt.secret)
}

// Verify validates a token and returns the user ID it carries.
func (rt *ResetTokens) Verify(tokenString string) (uint, error) {
	var claims resetClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return rt.secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}
