package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"notes-app/src/domain"
	"notes-app/src/middleware"
	"notes-app/src/usecase"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

var errImageTooLarge = errors.New("image file is too large")

// readImage multipartフォームから画像を読み込む（未選択ならnil）
func readImage(c *gin.Context, field string, maxBytes int64) (*domain.ImageFile, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("画像の読み込みに失敗: %w", err)
	}
	if header.Filename == "" {
		return nil, nil
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, errImageTooLarge
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("画像を開けません: %w", err)
	}
	defer file.Close()

	reader := io.Reader(file)
	if maxBytes > 0 {
		reader = io.LimitReader(file, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("画像の読み込みに失敗: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, errImageTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}

	return &domain.ImageFile{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// statusForError エラーをHTTPステータスに対応付ける
func statusForError(err error) int {
	switch {
	case errors.Is(err, usecase.ErrInvalidName),
		errors.Is(err, usecase.ErrInvalidDescription),
		errors.Is(err, usecase.ErrInvalidImage),
		errors.Is(err, usecase.ErrInvalidNoteID):
		return http.StatusBadRequest
	case errors.Is(err, errImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, usecase.ErrGatewayFailure),
		errors.Is(err, usecase.ErrStorageFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// currentOwner 認証済みユーザーの識別子を取得
func currentOwner(c *gin.Context) (string, bool) {
	session, ok := middleware.CurrentSession(c)
	if !ok || session.Subject == "" {
		return "", false
	}
	return session.Subject, true
}
