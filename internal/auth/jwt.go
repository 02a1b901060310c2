package auth

import (
	"fmt"
	"time"

	"cashup-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

type JWTCustomClaims struct {
	PersonnelID uint   `json:"personnel_id"`
	BusinessID  uint   `json:"business_id"`
	Email       string `json:"email"`
	IsOwner     bool   `json:"is_owner"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, p *models.Personnel) (string, error) {
	now := time.Now()
	claims := &JWTCustomClaims{
		PersonnelID: p.ID,
		BusinessID:  p.BusinessID,
		Email:       p.Email,
		IsOwner:     p.IsOwner,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(secret, tokenStr string) (*JWTCustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTCustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
