package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAdminDisabled      = errors.New("admin access is not configured")
)

// AuthService issues and checks admin tokens for the single configured
// dashboard account.
type AuthService struct {
	username     string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewAuthService returns an AuthService. With an empty username, hash or
// secret every login and token check fails.
func NewAuthService(username, passwordHash, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthService{
		username:     username,
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		ttl:          ttl,
		now:          time.Now,
	}
}

func (s *AuthService) enabled() bool {
	return s.username != "" && len(s.passwordHash) > 0 && len(s.secret) > 0
}

// Login checks the credentials and returns a signed HS256 token.
func (s *AuthService) Login(username, password string) (string, time.Time, error) {
	if !s.enabled() {
		return "", time.Time{}, ErrAdminDisabled
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		log.Printf("security: failed admin login for %q", username)
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   s.username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses tokenString and returns the admin username it was
// issued to.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	if !s.enabled() {
		return "", ErrAdminDisabled
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject != s.username {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}
