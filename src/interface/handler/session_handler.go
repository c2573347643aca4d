package handler

import (
	"net/http"

	"notes-app/src/middleware"
	"notes-app/src/service"
	"notes-app/src/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionHandler サインアウトを扱う
type SessionHandler struct {
	sessions     service.SessionService
	noteUsecase  usecase.NoteUsecase
	cookieName   string
	cookieSecure bool
	signOutURL   string
	logger       *logrus.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions service.SessionService, noteUsecase usecase.NoteUsecase, cookieName string, cookieSecure bool, signOutURL string, logger *logrus.Logger) *SessionHandler {
	if signOutURL == "" {
		signOutURL = "/"
	}
	return &SessionHandler{
		sessions:     sessions,
		noteUsecase:  noteUsecase,
		cookieName:   cookieName,
		cookieSecure: cookieSecure,
		signOutURL:   signOutURL,
		logger:       logger,
	}
}

// SignOut 画面からのサインアウト
func (h *SessionHandler) SignOut(c *gin.Context) {
	h.signOut(c)
	c.Redirect(http.StatusSeeOther, h.signOutURL)
}

// SignOutAPI APIからのサインアウト
func (h *SessionHandler) SignOutAPI(c *gin.Context) {
	h.signOut(c)
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) signOut(c *gin.Context) {
	if session, ok := middleware.CurrentSession(c); ok {
		h.sessions.Revoke(session)
		h.noteUsecase.SignOut(session.Subject)
		h.logger.WithField("subject", session.Subject).Info("セッションを終了しました")
	}

	if h.cookieName != "" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cookieName, "", -1, "/", "", h.cookieSecure, true)
	}
}
