package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"notes-app/src/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrRevokedToken = errors.New("session has been signed out")
)

// SessionClaims セッショントークン内のクレーム
type SessionClaims struct {
	Type string `json:"token_use"` // "access"
	jwt.RegisteredClaims
}

// SessionService セッション検証サービスのインターフェース
type SessionService interface {
	GenerateAccessToken(subject string, ttl time.Duration) (string, error)
	Validate(tokenString string) (*domain.Session, error)
	Revoke(session *domain.Session)
}

// sessionService セッション検証サービスの実装
type sessionService struct {
	secret  []byte
	issuer  string
	now     func() time.Time
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewSessionService セッション検証サービスを作成
func NewSessionService(secret, issuer string) SessionService {
	return &sessionService{
		secret:  []byte(secret),
		issuer:  issuer,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

// GenerateAccessToken アクセストークンを生成（通常は外部の認証基盤が発行する）
func (s *sessionService) GenerateAccessToken(subject string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &SessionClaims{
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate トークンを検証してセッションを返す
func (s *sessionService) Validate(tokenString string) (*domain.Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != "access" {
		return nil, fmt.Errorf("%w: invalid token type", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subject is empty", ErrInvalidToken)
	}
	if s.isRevoked(claims.ID) {
		return nil, ErrRevokedToken
	}

	session := &domain.Session{
		Subject: claims.Subject,
		TokenID: claims.ID,
		Token:   tokenString,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return session, nil
}

// Revoke トークンを失効させる（有効期限まで保持）
func (s *sessionService) Revoke(session *domain.Session) {
	if session == nil || session.TokenID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}

	expiresAt := time.Unix(session.ExpiresAt, 0)
	if session.ExpiresAt == 0 {
		expiresAt = now.Add(24 * time.Hour)
	}
	s.revoked[session.TokenID] = expiresAt
}

func (s *sessionService) isRevoked(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[id]
	return ok
}
