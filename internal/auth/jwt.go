package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"

	DefaultSessionTTL = 7 * 24 * time.Hour
	issuer            = "nazareth-shop"
)

// Claims is the session payload carried in the auth_token cookie
type Claims struct {
	UserID  string `json:"user_id"`
	KakaoID string `json:"kakao_id,omitempty"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// JWTService signs and validates HS256 session tokens
type JWTService struct {
	secretKey  []byte
	sessionTTL time.Duration
	now        func() time.Time
}

func NewJWTService(secretKey string, sessionTTL time.Duration) *JWTService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &JWTService{
		secretKey:  []byte(secretKey),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// IssueSession creates a session token for a signed-in user or the admin
func (s *JWTService) IssueSession(userID, kakaoID, role string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.sessionTTL)

	claims := Claims{
		UserID:  userID,
		KakaoID: kakaoID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Validate parses a session token and returns its claims
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *JWTService) SessionTTL() time.Duration {
	return s.sessionTTL
}
