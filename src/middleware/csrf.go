package middleware

import (
	"net/http"
	"net/url"

	"notes-app/src/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SameOriginMiddleware Cookieで認証される変更系リクエストの送信元を検証するmiddleware
// OriginヘッダーかRefererのホストがリクエスト先と一致しなければ403
func SameOriginMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) || c.GetHeader("Authorization") != "" {
			// Bearerトークンはブラウザが自動で付与しない
			c.Next()
			return
		}

		source := c.GetHeader("Origin")
		if source == "" || source == "null" {
			source = c.GetHeader("Referer")
		}

		if !sameHost(source, c.Request.Host) {
			logger.WithFields(logrus.Fields{
				"client_ip": c.ClientIP(),
				"uri":       c.Request.RequestURI,
				"origin":    c.GetHeader("Origin"),
				"referer":   c.GetHeader("Referer"),
			}).Warn("送信元が一致しないリクエストを拒否")

			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Cross-site request rejected"})
			return
		}

		c.Next()
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func sameHost(source, host string) bool {
	if source == "" || host == "" {
		return false
	}
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return u.Host == host
}
