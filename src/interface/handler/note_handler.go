package handler

import (
	"net/http"

	"notes-app/src/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NoteHandler handles JSON API requests for note operations
type NoteHandler struct {
	noteUsecase   usecase.NoteUsecase
	maxImageBytes int64
	logger        *logrus.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(noteUsecase usecase.NoteUsecase, maxImageBytes int64, logger *logrus.Logger) *NoteHandler {
	return &NoteHandler{
		noteUsecase:   noteUsecase,
		maxImageBytes: maxImageBytes,
		logger:        logger,
	}
}

// ListNotes 全件を再取得して返す
func (h *NoteHandler) ListNotes(c *gin.Context) {
	owner, ok := h.requireOwner(c)
	if !ok {
		return
	}

	notes, err := h.noteUsecase.FetchNotes(c.Request.Context(), owner)
	if err != nil {
		h.logger.WithError(err).Error("メモ一覧の取得に失敗")
		c.JSON(statusForError(err), ErrorResponseDTO{
			Error:   "Failed to get notes",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, toNoteListResponseDTO(notes))
}

// CreateNote creates a new note (multipart form or JSON)
func (h *NoteHandler) CreateNote(c *gin.Context) {
	owner, ok := h.requireOwner(c)
	if !ok {
		return
	}

	var req CreateNoteRequestDTO
	if err := c.ShouldBind(&req); err != nil {
		h.logger.WithError(err).Error("リクエストのバインドに失敗")
		c.JSON(http.StatusBadRequest, ErrorResponseDTO{
			Error:   "Invalid request format",
			Message: err.Error(),
		})
		return
	}

	image, err := readImage(c, "image", h.maxImageBytes)
	if err != nil {
		h.logger.WithError(err).Error("画像の読み込みに失敗")
		c.JSON(statusForError(err), ErrorResponseDTO{
			Error:   "Invalid image",
			Message: err.Error(),
		})
		return
	}

	note, err := h.noteUsecase.CreateNote(c.Request.Context(), owner, usecase.CreateNoteRequest{
		Name:        req.Name,
		Description: req.Description,
		Image:       image,
	})
	if err != nil {
		h.logger.WithError(err).Error("メモの作成に失敗")
		c.JSON(statusForError(err), ErrorResponseDTO{
			Error:   "Failed to create note",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, toNoteResponseDTO(note))
}

// DeleteNote deletes a note; the query parameter "name" is the storage key
func (h *NoteHandler) DeleteNote(c *gin.Context) {
	owner, ok := h.requireOwner(c)
	if !ok {
		return
	}

	var req DeleteNoteRequestDTO
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponseDTO{
			Error:   "Invalid query parameters",
			Message: err.Error(),
		})
		return
	}

	id := c.Param("id")
	err := h.noteUsecase.DeleteNote(c.Request.Context(), owner, usecase.DeleteNoteRequest{
		ID:   id,
		Name: req.Name,
	})
	if err != nil {
		h.logger.WithError(err).WithField("note_id", id).Error("メモの削除に失敗")
		c.JSON(statusForError(err), ErrorResponseDTO{
			Error:   "Failed to delete note",
			Message: err.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// StageImage 画像を次回の作成用に選択する
func (h *NoteHandler) StageImage(c *gin.Context) {
	owner, ok := h.requireOwner(c)
	if !ok {
		return
	}

	image, err := readImage(c, "image", h.maxImageBytes)
	if err != nil {
		c.JSON(statusForError(err), ErrorResponseDTO{
			Error:   "Invalid image",
			Message: err.Error(),
		})
		return
	}
	if image == nil {
		c.JSON(http.StatusBadRequest, ErrorResponseDTO{Error: "Image file required"})
		return
	}

	if err := h.noteUsecase.StageImage(owner, image); err != nil {
		c.JSON(statusForError(err), ErrorResponseDTO{
			Error:   "Failed to stage image",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, ImagePreviewResponseDTO{
		Staged:     true,
		PreviewURL: h.noteUsecase.StagedPreview(owner),
	})
}

// GetStagedImage 選択中の画像のプレビューを返す
func (h *NoteHandler) GetStagedImage(c *gin.Context) {
	owner, ok := h.requireOwner(c)
	if !ok {
		return
	}

	preview := h.noteUsecase.StagedPreview(owner)
	c.JSON(http.StatusOK, ImagePreviewResponseDTO{
		Staged:     preview != "",
		PreviewURL: preview,
	})
}

// ClearStagedImage 画像の選択を解除する
func (h *NoteHandler) ClearStagedImage(c *gin.Context) {
	owner, ok := h.requireOwner(c)
	if !ok {
		return
	}

	h.noteUsecase.ClearImage(owner)
	c.Status(http.StatusNoContent)
}

func (h *NoteHandler) requireOwner(c *gin.Context) (string, bool) {
	owner, ok := currentOwner(c)
	if !ok {
		h.logger.Error("セッションがコンテキストに設定されていません")
		c.JSON(http.StatusUnauthorized, ErrorResponseDTO{Error: "User not authenticated"})
		return "", false
	}
	return owner, true
}
