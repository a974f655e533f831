package auth

import (
	"errors"
	"fmt"
	"time"

	"step26/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var jwtSecret []byte
var refreshSecret []byte
var accessTokenMinutes = 15
var refreshTokenDays = 7
var rememberRefreshDays = 30
var CookieSecure = true

// ErrNotConfigured is returned when tokens are requested before Configure.
var ErrNotConfigured = errors.New("auth: signing secret not configured")

// Configure installs signing secrets and token lifetimes. It must run
// before any token is issued or validated.
func Configure(cfg config.AuthConfig) error {
	if len(cfg.JWTSecret) < 32 {
		return errors.New("JWT secret must be at least 32 characters long")
	}
	jwtSecret = []byte(cfg.JWTSecret)

	refresh := cfg.RefreshSecret
	if refresh == "" {
		refresh = cfg.JWTSecret + "-refresh"
	}
	refreshSecret = []byte(refresh)

	if cfg.AccessTokenMinutes > 0 {
		accessTokenMinutes = cfg.AccessTokenMinutes
	}
	if cfg.RefreshTokenDays > 0 {
		refreshTokenDays = cfg.RefreshTokenDays
	}
	if cfg.RememberRefreshDays > 0 {
		rememberRefreshDays = cfg.RememberRefreshDays
	}
	CookieSecure = cfg.CookieSecure
	return nil
}

type Claims struct {
	UserID    int    `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type,omitempty"` // "access" or "refresh"
	jwt.RegisteredClaims
}

// GenerateToken creates a short-lived access token
func GenerateToken(userID int, username string) (string, error) {
	if len(jwtSecret) == 0 {
		return "", ErrNotConfigured
	}
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(accessTokenMinutes) * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// GenerateRefreshToken creates a refresh token that expires after the given number of days
func GenerateRefreshToken(userID int, username string, days int) (string, error) {
	if len(refreshSecret) == 0 {
		return "", ErrNotConfigured
	}
	if days <= 0 {
		days = refreshTokenDays
	}
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			// Unique per token so rotation never reissues the same string.
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(days) * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(refreshSecret)
}

func ValidateToken(tokenString string) (*Claims, error) {
	return parse(tokenString, jwtSecret, "access")
}

// ValidateRefreshToken validates a refresh token
func ValidateRefreshToken(tokenString string) (*Claims, error) {
	return parse(tokenString, refreshSecret, "refresh")
}

func parse(tokenString string, secret []byte, tokenType string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrNotConfigured
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.TokenType != tokenType {
			return nil, errors.New("invalid token type")
		}
		return claims, nil
	}

	return nil, fmt.Errorf("invalid %s token", tokenType)
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func CheckPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// RefreshDays returns configured refresh token TTL in days depending on remember flag
func RefreshDays(remember bool) int {
	if remember {
		return rememberRefreshDays
	}
	return refreshTokenDays
}
