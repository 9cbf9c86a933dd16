package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Token 用途
const (
	TypeAccess        = "access"
	TypeResetPassword = "reset_password"
)

type Claims struct {
	UserID int64  `json:"user_id"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken 生成登录 Token
func GenerateToken(userID int64, secret string, expireHours int) (string, error) {
	return generate(userID, TypeAccess, secret, time.Duration(expireHours)*time.Hour)
}

// GenerateResetToken 生成密码重置 Token
func GenerateResetToken(userID int64, secret string, expireMinutes int) (string, error) {
	return generate(userID, TypeResetPassword, secret, time.Duration(expireMinutes)*time.Minute)
}

func generate(userID int64, tokenType, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken 解析登录 Token，重置 Token 不能用于登录
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims, err := parse(tokenString, secret)
	if err != nil {
		return nil, err
	}
	if claims.Type != "" && claims.Type != TypeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseResetToken 解析密码重置 Token
func ParseResetToken(tokenString, secret string) (*Claims, error) {
	claims, err := parse(tokenString, secret)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeResetPassword {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func parse(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
