package auth

import (
	"time"

	"chat-gateway/contract"

	"github.com/golang-jwt/jwt/v5"
)

// jwtKey is the secret used to sign tokens.
// In a production environment, this should be loaded from an environment variable or a secret manager.
var jwtKey = []byte("gateway_signing_secret_rotate_me_2026")

// SessionClaims is the data carried inside a connection token. The gateway
// only needs the identity pair; everything else about the user stays in the store.
type SessionClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT binding a user ID to its display label.
func GenerateToken(userID, username string, tokenDuration time.Duration) (string, error) {
	claims := &SessionClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "chat-gateway",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
func ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// JWTVerifier adapts token validation to the contract the handshake consumes.
type JWTVerifier struct{}

func (JWTVerifier) Verify(token string) (contract.Identity, error) {
	claims, err := ValidateToken(token)
	if err != nil {
		return contract.Identity{}, err
	}
	return contract.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}
