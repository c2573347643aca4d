package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notes-app/src/config"
	"notes-app/src/interface/handler"
	"notes-app/src/logger"
	"notes-app/src/middleware"
	"notes-app/src/routes"
	"notes-app/src/service"
	"notes-app/src/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the notes web server",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServer(config.LoadConfig()); err != nil {
			fatal("Server stopped", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServer(cfg *config.Config) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.Directory); err != nil {
		return err
	}
	defer logger.CloseLogger()

	log := logger.Log
	log.Info("アプリケーションを開始しています")

	components, err := buildComponents(cfg, log)
	if err != nil {
		return err
	}

	// ログの定期アップロード（設定が有効な場合）
	var uploader *storage.LogUploader
	if cfg.Log.UploadEnabled {
		uploader = storage.NewLogUploader(components.LogStore, log, logger.GetCurrentLogFile)
		uploader.StartPeriodicUpload(cfg.Log.Directory, cfg.Log.UploadInterval, cfg.Log.UploadMaxAge)
	}

	sessions := service.NewSessionService(cfg.Auth.JWTSecret, "notes-app")

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.NewRouter(routes.Handlers{
		Page:    handler.NewPageHandler(components.Notes, cfg.Notes.MaxImageBytes, log),
		Note:    handler.NewNoteHandler(components.Notes, cfg.Notes.MaxImageBytes, log),
		Session: handler.NewSessionHandler(sessions, components.Notes, cfg.Auth.CookieName, cfg.Auth.CookieSecure, cfg.Auth.SignOutURL, log),
	}, routes.Options{
		Sessions:    sessions,
		CookieName:  cfg.Auth.CookieName,
		SignInURL:   cfg.Auth.SignInURL,
		RateLimiter: limiter,
	})
	router.MaxMultipartMemory = cfg.Notes.MaxImageBytes + 1<<20

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// グレースフルシャットダウンの設定
	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Server.Port).Info("サーバーを開始します")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("サーバーの起動に失敗")
			return err
		}
	case <-sigChan:
		log.Info("シャットダウンシグナルを受信しました")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("サーバーの停止に失敗")
	}

	// 最後のログアップロードを実行
	if uploader != nil {
		uploader.Stop()
		log.Info("最後のログアップロードを実行中...")
		if _, err := uploadRemainingLogs(uploader, cfg.Log.Directory, 30*time.Second); err != nil {
			log.WithError(err).Error("最後のログアップロードに失敗")
		}
	}

	return nil
}

// uploadRemainingLogs 停止処理とは別の期限で残りのログを退避する
func uploadRemainingLogs(uploader *storage.LogUploader, logDir string, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return uploader.UploadOldLogs(ctx, logDir, 0)
}
