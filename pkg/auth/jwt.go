package auth

import (
	"errors"
	"time"

	"github.com/blindify/backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

const stateTTL = 10 * time.Minute

// StateClaims travel through the provider as the OAuth state parameter, so
// the callback can check the round trip started here.
type StateClaims struct {
	Nonce    string `json:"nonce"`
	ReturnTo string `json:"return_to,omitempty"`
	jwt.RegisteredClaims
}

// GenerateStateToken creates a short-lived signed state for the authorize redirect
func GenerateStateToken(returnTo string) (string, error) {
	secret := config.AppConfig.SessionSecret

	claims := &StateClaims{
		Nonce:    GenerateToken(),
		ReturnTo: returnTo,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(stateTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "blindify",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateStateToken validates the state echoed back on the callback
func ValidateStateToken(tokenString string) (*StateClaims, error) {
	secret := config.AppConfig.SessionSecret

	token, err := jwt.ParseWithClaims(tokenString, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer("blindify"))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*StateClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid state")
}
