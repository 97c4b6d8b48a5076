package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mmcdole/photure/internal/domain"
)

// UserFromToken reads the identity carried by a JWT access token.
// The signature is not checked: the photo service verifies tokens, the
// client only needs the subject and expiry for display and gating.
func UserFromToken(token string) (domain.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return domain.User{}, fmt.Errorf("failed to parse token: %w", err)
	}

	var user domain.User
	if sub, err := claims.GetSubject(); err == nil {
		user.ID = sub
	}
	for _, key := range []string{"name", "preferred_username", "email"} {
		if v, ok := claims[key].(string); ok && v != "" {
			user.Name = v
			break
		}
	}
	if user.Name == "" {
		user.Name = user.ID
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		user.ExpiresAt = exp.Time
	}
	return user, nil
}
