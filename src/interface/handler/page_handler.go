package handler

import (
	"html/template"
	"net/http"

	"notes-app/src/usecase"
	"notes-app/src/view"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PageHandler メイン画面（フォームと一覧）を扱う
type PageHandler struct {
	noteUsecase   usecase.NoteUsecase
	maxImageBytes int64
	logger        *logrus.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(noteUsecase usecase.NoteUsecase, maxImageBytes int64, logger *logrus.Logger) *PageHandler {
	return &PageHandler{
		noteUsecase:   noteUsecase,
		maxImageBytes: maxImageBytes,
		logger:        logger,
	}
}

// Index 一覧を取得して画面を描画
func (h *PageHandler) Index(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	if _, err := h.noteUsecase.FetchNotes(c.Request.Context(), owner); err != nil {
		h.logger.WithError(err).Error("メモ一覧の取得に失敗")
		h.render(c, owner, statusForError(err), "メモ一覧を取得できませんでした")
		return
	}

	h.render(c, owner, http.StatusOK, "")
}

// CreateNote フォーム送信からメモを作成
func (h *PageHandler) CreateNote(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req CreateNoteRequestDTO
	if err := c.ShouldBind(&req); err != nil {
		h.render(c, owner, http.StatusBadRequest, "入力内容を読み取れませんでした")
		return
	}

	image, err := readImage(c, "image", h.maxImageBytes)
	if err != nil {
		h.logger.WithError(err).Error("画像の読み込みに失敗")
		h.render(c, owner, statusForError(err), "画像を読み込めませんでした")
		return
	}

	_, err = h.noteUsecase.CreateNote(c.Request.Context(), owner, usecase.CreateNoteRequest{
		Name:        req.Name,
		Description: req.Description,
		Image:       image,
	})
	if err != nil {
		h.logger.WithError(err).Error("メモの作成に失敗")
		h.render(c, owner, statusForError(err), "メモを作成できませんでした: "+err.Error())
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// StageImage 画像を選択してプレビューを表示
func (h *PageHandler) StageImage(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	image, err := readImage(c, "image", h.maxImageBytes)
	if err == nil && image == nil {
		// ファイル未選択で送信された場合は選択を解除
		h.noteUsecase.ClearImage(owner)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if err == nil {
		err = h.noteUsecase.StageImage(owner, image)
	}
	if err != nil {
		h.logger.WithError(err).Warn("画像の選択に失敗")
		h.render(c, owner, statusForError(err), "画像を選択できませんでした")
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// DeleteNote 一覧のメモを削除
func (h *PageHandler) DeleteNote(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req DeleteNoteRequestDTO
	if err := c.ShouldBind(&req); err != nil {
		h.render(c, owner, http.StatusBadRequest, "入力内容を読み取れませんでした")
		return
	}

	err := h.noteUsecase.DeleteNote(c.Request.Context(), owner, usecase.DeleteNoteRequest{
		ID:   c.Param("id"),
		Name: req.Name,
	})
	if err != nil {
		h.logger.WithError(err).WithField("note_id", c.Param("id")).Error("メモの削除に失敗")
		h.render(c, owner, statusForError(err), "メモを削除できませんでした: "+err.Error())
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// render 現在の一覧で画面を描画
func (h *PageHandler) render(c *gin.Context, owner string, status int, message string) {
	c.HTML(status, view.IndexTemplate, view.PageData{
		Notes:      h.noteUsecase.CurrentNotes(owner),
		PreviewURL: template.URL(h.noteUsecase.StagedPreview(owner)),
		Error:      message,
	})
}
