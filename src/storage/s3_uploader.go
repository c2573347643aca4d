package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notes-app/src/domain"

	"github.com/sirupsen/logrus"
)

// LogUploader ローテートされたログファイルをオブジェクトストアへ退避する
// storeにはメモの画像とは別のプレフィックスを持つストアを渡す
type LogUploader struct {
	store  domain.ObjectStore
	logger *logrus.Logger
	// current 書き込み中のログファイル。アップロード対象から除外する
	current func() string
	stop    chan struct{}
}

// NewLogUploader ログアップローダーを作成
func NewLogUploader(store domain.ObjectStore, logger *logrus.Logger, current func() string) *LogUploader {
	if current == nil {
		current = func() string { return "" }
	}
	return &LogUploader{
		store:   store,
		logger:  logger,
		current: current,
		stop:    make(chan struct{}),
	}
}

// UploadLogFile ログファイルをアップロード
func (u *LogUploader) UploadLogFile(ctx context.Context, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("ファイルの読み込みに失敗: %w", err)
	}

	fileName := filepath.Base(filePath)
	objectKey := fileName

	if err := u.store.Put(ctx, objectKey, data, domain.PutOptions{ContentType: "text/plain"}); err != nil {
		return fmt.Errorf("ログのアップロードに失敗: %w", err)
	}

	u.logger.WithFields(logrus.Fields{
		"file": fileName,
		"key":  objectKey,
	}).Info("ログファイルをアップロードしました")
	return nil
}

// UploadOldLogs 古いログファイルをアップロードして削除
func (u *LogUploader) UploadOldLogs(ctx context.Context, logDir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return 0, fmt.Errorf("ログディレクトリの読み取りに失敗: %w", err)
	}

	cutoffTime := time.Now().Add(-maxAge)
	current := u.current()
	uploaded := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}

		filePath := filepath.Join(logDir, entry.Name())
		if current != "" && filepath.Clean(current) == filepath.Clean(filePath) {
			continue
		}

		fileInfo, err := entry.Info()
		if err != nil {
			u.logger.WithError(err).WithField("file", entry.Name()).Error("ファイル情報の取得に失敗")
			continue
		}

		if !fileInfo.ModTime().Before(cutoffTime) {
			continue
		}

		u.logger.WithFields(logrus.Fields{
			"file":    entry.Name(),
			"modTime": fileInfo.ModTime(),
			"cutoff":  cutoffTime,
		}).Info("古いログファイルをアップロード中")

		if err := u.UploadLogFile(ctx, filePath); err != nil {
			u.logger.WithError(err).WithField("file", entry.Name()).Error("ログファイルのアップロードに失敗")
			continue
		}
		uploaded++

		if err := os.Remove(filePath); err != nil {
			u.logger.WithError(err).WithField("file", entry.Name()).Error("ローカルファイルの削除に失敗")
		} else {
			u.logger.WithField("file", entry.Name()).Info("ローカルファイルを削除しました")
		}
	}

	return uploaded, nil
}

// StartPeriodicUpload 定期的なアップロードを開始
func (u *LogUploader) StartPeriodicUpload(logDir string, interval time.Duration, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				u.logger.Info("定期的なログアップロードを開始")
				if _, err := u.UploadOldLogs(context.Background(), logDir, maxAge); err != nil {
					u.logger.WithError(err).Error("定期的なログアップロードに失敗")
				}
			case <-u.stop:
				return
			}
		}
	}()

	u.logger.WithFields(logrus.Fields{
		"interval": interval,
		"maxAge":   maxAge,
	}).Info("定期的なログアップロードを開始しました")
}

// Stop 定期アップロードを停止
func (u *LogUploader) Stop() {
	select {
	case <-u.stop:
	default:
		close(u.stop)
	}
}
