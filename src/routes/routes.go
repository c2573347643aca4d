package routes

import (
	"net/http"
	"time"

	"notes-app/src/interface/handler"
	"notes-app/src/logger"
	"notes-app/src/metrics"
	"notes-app/src/middleware"
	"notes-app/src/service"
	"notes-app/src/view"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handlers ルーティング対象のハンドラー
type Handlers struct {
	Page    *handler.PageHandler
	Note    *handler.NoteHandler
	Session *handler.SessionHandler
}

// Options 認証とレート制限の設定
type Options struct {
	Sessions    service.SessionService
	CookieName  string
	SignInURL   string
	RateLimiter *middleware.RateLimiter
}

// NewRouter ginエンジンを作成してルートを登録
func NewRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.HandleMethodNotAllowed = true
	r.SetHTMLTemplate(view.Templates())

	// NoRouteハンドラー（404）
	r.NoRoute(func(c *gin.Context) {
		logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"uri":       c.Request.RequestURI,
			"client_ip": c.ClientIP(),
		}).Warn("404: ルートが見つかりません")
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	// NoMethodハンドラー（405）
	r.NoMethod(func(c *gin.Context) {
		logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"uri":       c.Request.RequestURI,
			"client_ip": c.ClientIP(),
		}).Warn("405: サポートされていないメソッド")
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	SetupRoutes(r, h, opts)
	return r
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h Handlers, opts Options) {
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RateLimitMiddleware(opts.RateLimiter))

	// 認証が不要なパブリックルート
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 画面（未認証はサインインへ誘導）
	pages := r.Group("/")
	pages.Use(middleware.PageAuthMiddleware(opts.Sessions, opts.CookieName, opts.SignInURL))
	pages.Use(middleware.SameOriginMiddleware())
	{
		pages.GET("", h.Page.Index)                       // GET /
		pages.POST("notes", h.Page.CreateNote)            // POST /notes
		pages.POST("notes/image", h.Page.StageImage)      // POST /notes/image
		pages.POST("notes/:id/delete", h.Page.DeleteNote) // POST /notes/:id/delete
		pages.POST("signout", h.Session.SignOut)          // POST /signout
	}

	// 認証が必要なJSON API
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(opts.Sessions, opts.CookieName))
	api.Use(middleware.SameOriginMiddleware())
	{
		notes := api.Group("/notes")
		notes.GET("", h.Note.ListNotes)                 // GET /api/notes
		notes.POST("", h.Note.CreateNote)               // POST /api/notes
		notes.DELETE("/:id", h.Note.DeleteNote)         // DELETE /api/notes/:id?name=
		notes.GET("/image", h.Note.GetStagedImage)      // GET /api/notes/image
		notes.POST("/image", h.Note.StageImage)         // POST /api/notes/image
		notes.DELETE("/image", h.Note.ClearStagedImage) // DELETE /api/notes/image

		api.POST("/signout", h.Session.SignOutAPI) // POST /api/signout
	}
}
