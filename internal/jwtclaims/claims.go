// Package jwtclaims читает claims access-токена без проверки подписи.
// Подпись проверяет бэкенд, фронтенду нужны только идентификатор и права.
package jwtclaims

import (
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims поля токена, которые использует фронтенд
type Claims struct {
	Permissions []string `json:"permissions"`
	Roles       []string `json:"roles"`
	jwt.RegisteredClaims
}

// Decode разбирает токен без проверки подписи
func Decode(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("jwtclaims.Decode: %w", err)
	}
	return claims, nil
}

// UserID значение sub, пустая строка если токен не разбирается
func UserID(token string) string {
	claims, err := Decode(token)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// HasPermissions есть ли все перечисленные права
func (c *Claims) HasPermissions(required []string) bool {
	for _, p := range required {
		if !slices.Contains(c.Permissions, p) {
			return false
		}
	}
	return true
}

// HasAnyRole есть ли хотя бы одна из ролей; пустой список означает "любая"
func (c *Claims) HasAnyRole(roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if slices.Contains(c.Roles, r) {
			return true
		}
	}
	return false
}
