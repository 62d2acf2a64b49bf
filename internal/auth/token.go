package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ExtractTokenFromRequest pulls the bearer token from the Authorization
// header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}
	return parts[1], nil
}

// ExtractActorID returns the 'sub' claim of a JWT, used to stamp
// createdBy/updatedBy audit fields. Signature verification belongs to the
// OIDC middleware; this parse is only for audit attribution.
func ExtractActorID(tokenString string) (string, error) {
	if tokenString == "" {
		return "", errors.New("empty token")
	}

	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("subject claim not found in token")
	}
	return sub, nil
}

// ActorFromRequest resolves the acting identity for audit fields, falling
// back to "system" for unauthenticated internal calls.
func ActorFromRequest(r *http.Request) string {
	token, err := ExtractTokenFromRequest(r)
	if err != nil {
		return "system"
	}
	actor, err := ExtractActorID(token)
	if err != nil {
		return "system"
	}
	return actor
}
