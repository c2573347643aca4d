package middleware

import (
	"errors"
	"net/http"
	"strings"

	"notes-app/src/domain"
	"notes-app/src/logger"
	"notes-app/src/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const sessionContextKey = "session"

// AuthMiddleware APIリクエスト用の認証middleware（未認証は401）
func AuthMiddleware(sessions service.SessionService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, reason, err := authenticate(c, sessions, cookieName)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"client_ip": c.ClientIP(),
				"uri":       c.Request.RequestURI,
				"reason":    reason,
			}).Warn("認証失敗")

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
			return
		}

		SetSession(c, session)
		c.Next()
	}
}

// PageAuthMiddleware 画面用の認証middleware（未認証はサインイン画面へ誘導）
func PageAuthMiddleware(sessions service.SessionService, cookieName, signInURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, reason, err := authenticate(c, sessions, cookieName)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"client_ip": c.ClientIP(),
				"uri":       c.Request.RequestURI,
				"reason":    reason,
			}).Info("未認証のためサインインへ誘導")

			if signInURL != "" {
				c.Redirect(http.StatusFound, signInURL)
				c.Abort()
				return
			}
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		SetSession(c, session)
		c.Next()
	}
}

// CurrentSession コンテキストから認証済みセッションを取得
func CurrentSession(c *gin.Context) (*domain.Session, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*domain.Session)
	return session, ok && session != nil
}

func authenticate(c *gin.Context, sessions service.SessionService, cookieName string) (*domain.Session, string, error) {
	token, reason := extractToken(c, cookieName)
	if token == "" {
		return nil, reason, errors.New(reason)
	}

	session, err := sessions.Validate(token)
	if err != nil {
		if errors.Is(err, service.ErrRevokedToken) {
			return nil, "Session signed out", err
		}
		return nil, "Invalid token", err
	}
	return session, "", nil
}

// extractToken Authorizationヘッダー、なければセッションCookieからtokenを取り出す
func extractToken(c *gin.Context, cookieName string) (string, string) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", "Invalid authorization format"
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return "", "Token is empty"
		}
		return token, ""
	}

	if cookieName != "" {
		if token, err := c.Cookie(cookieName); err == nil && token != "" {
			return token, ""
		}
	}
	return "", "Authorization required"
}

// SetSession 認証済みセッションをコンテキストに設定
func SetSession(c *gin.Context, session *domain.Session) {
	c.Set(sessionContextKey, session)
	c.Request = c.Request.WithContext(domain.WithSession(c.Request.Context(), session))

	logger.WithFields(logrus.Fields{
		"client_ip": c.ClientIP(),
		"subject":   session.Subject,
	}).Debug("認証成功")
}
