package handler_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"notes-app/src/domain"
	"notes-app/src/interface/handler"
	"notes-app/src/service"
	"notes-app/src/usecase"
	"notes-app/src/view"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupPageRouter(uc *MockNoteUsecase, session *domain.Session) *gin.Engine {
	h := handler.NewPageHandler(uc, maxImageBytes, testLogger())

	r := gin.New()
	r.SetHTMLTemplate(view.Templates())
	r.Use(withSession(session))
	r.GET("/", h.Index)
	r.POST("/notes", h.CreateNote)
	r.POST("/notes/image", h.StageImage)
	r.POST("/notes/:id/delete", h.DeleteNote)
	return r
}

func TestPageHandler_Index(t *testing.T) {
	t.Run("一覧と選択中の画像を描画", func(t *testing.T) {
		notes := []domain.Note{
			{ID: "1", Name: "Milk", Description: "2%"},
			{ID: "2", Name: "Cat", Description: "fluffy", Image: "cat.png", ImageURL: "https://storage.example/cat.png?X-Amz-Signature=abc"},
		}
		uc := &MockNoteUsecase{}
		uc.On("FetchNotes", mock.Anything, testOwner).Return(notes, nil)
		uc.On("CurrentNotes", testOwner).Return(notes)
		uc.On("StagedPreview", testOwner).Return("data:image/png;base64,AAAA")
		r := setupPageRouter(uc, testSession)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "My Notes App")
		assert.Contains(t, body, `data-key="1"`)
		assert.Contains(t, body, `data-key="2"`)
		assert.Contains(t, body, "https://storage.example/cat.png?X-Amz-Signature=abc")
		assert.Contains(t, body, `action="/notes/2/delete"`)
		assert.Contains(t, body, `src="data:image/png;base64,AAAA"`)
		// 画像のないメモには画像要素を出さない
		assert.Equal(t, 1, strings.Count(body, "visual aid for"))
	})

	t.Run("取得失敗時は現在の一覧とエラーを描画", func(t *testing.T) {
		uc := &MockNoteUsecase{}
		uc.On("FetchNotes", mock.Anything, testOwner).Return(nil, fmt.Errorf("%w: timeout", usecase.ErrGatewayFailure))
		uc.On("CurrentNotes", testOwner).Return([]domain.Note{{ID: "9", Name: "kept", Description: "old"}})
		uc.On("StagedPreview", testOwner).Return("")
		r := setupPageRouter(uc, testSession)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), `role="alert"`)
		assert.Contains(t, w.Body.String(), "kept")
	})

	t.Run("未認証", func(t *testing.T) {
		uc := &MockNoteUsecase{}
		r := setupPageRouter(uc, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPageHandler_CreateNote(t *testing.T) {
	t.Run("作成後に一覧へリダイレクト", func(t *testing.T) {
		uc := &MockNoteUsecase{}
		uc.On("CreateNote", mock.Anything, testOwner, mock.MatchedBy(func(req usecase.CreateNoteRequest) bool {
			return req.Name == "Cat" && req.Image != nil && req.Image.Filename == "cat.png"
		})).Return(&domain.Note{ID: "7"}, nil)
		r := setupPageRouter(uc, testSession)

		body, contentType := multipartBody(t, map[string]string{"name": "Cat", "description": "fluffy"}, "cat.png", "image/png", pngHeader)
		req := httptest.NewRequest(http.MethodPost, "/notes", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		uc.AssertExpectations(t)
	})

	t.Run("失敗時はエラーを表示", func(t *testing.T) {
		uc := &MockNoteUsecase{}
		uc.On("CreateNote", mock.Anything, testOwner, mock.Anything).Return(nil, usecase.ErrInvalidName)
		uc.On("CurrentNotes", testOwner).Return([]domain.Note{})
		uc.On("StagedPreview", testOwner).Return("")
		r := setupPageRouter(uc, testSession)

		form := url.Values{"name": {""}, "description": {"d"}}
		req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `role="alert"`)
	})
}

func TestPageHandler_StageImage(t *testing.T) {
	t.Run("画像を選択", func(t *testing.T) {
		uc := &MockNoteUsecase{}
		uc.On("StageImage", testOwner, mock.MatchedBy(func(f *domain.ImageFile) bool {
			return f != nil && f.Filename == "cat.png"
		})).Return(nil)
		r := setupPageRouter(uc, testSession)

		body, contentType := multipartBody(t, nil, "cat.png", "image/png", pngHeader)
		req := httptest.NewRequest(http.MethodPost, "/notes/image", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		uc.AssertExpectations(t)
	})

	t.Run("ファイル未選択なら選択を解除", func(t *testing.T) {
		uc := &MockNoteUsecase{}
		uc.On("ClearImage", testOwner).Return()
		r := setupPageRouter(uc, testSession)

		body, contentType := multipartBody(t, nil, "", "", nil)
		req := httptest.NewRequest(http.MethodPost, "/notes/image", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		uc.AssertExpectations(t)
		uc.AssertNotCalled(t, "StageImage", mock.Anything, mock.Anything)
	})
}

func TestPageHandler_DeleteNote(t *testing.T) {
	t.Run("フォームの名前をキーとして削除", func(t *testing.T) {
		uc := &MockNoteUsecase{}
		uc.On("DeleteNote", mock.Anything, testOwner, usecase.DeleteNoteRequest{ID: "42", Name: "cat.png"}).Return(nil)
		r := setupPageRouter(uc, testSession)

		form := url.Values{"name": {"cat.png"}}
		req := httptest.NewRequest(http.MethodPost, "/notes/42/delete", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		uc.AssertExpectations(t)
	})

	t.Run("フォームを読み取れない", func(t *testing.T) {
		uc := &MockNoteUsecase{}
		uc.On("CurrentNotes", testOwner).Return([]domain.Note{})
		uc.On("StagedPreview", testOwner).Return("")
		r := setupPageRouter(uc, testSession)

		req := httptest.NewRequest(http.MethodPost, "/notes/42/delete", strings.NewReader("name=%zz"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `role="alert"`)
		uc.AssertNotCalled(t, "DeleteNote", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("失敗時は戻した一覧を表示", func(t *testing.T) {
		uc := &MockNoteUsecase{}
		uc.On("DeleteNote", mock.Anything, testOwner, mock.Anything).Return(fmt.Errorf("%w: conflict", usecase.ErrGatewayFailure))
		uc.On("CurrentNotes", testOwner).Return([]domain.Note{{ID: "42", Name: "cat.png", Description: "restored"}})
		uc.On("StagedPreview", testOwner).Return("")
		r := setupPageRouter(uc, testSession)

		form := url.Values{"name": {"cat.png"}}
		req := httptest.NewRequest(http.MethodPost, "/notes/42/delete", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "restored")
	})
}

func TestSessionHandler_SignOut(t *testing.T) {
	sessions := service.NewSessionService("secret", "notes-app")
	token, err := sessions.GenerateAccessToken(testOwner, time.Hour)
	require.NoError(t, err)
	session, err := sessions.Validate(token)
	require.NoError(t, err)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedLoc    string
	}{
		{name: "画面からのサインアウト", path: "/signout", expectedStatus: http.StatusSeeOther, expectedLoc: "/goodbye"},
		{name: "APIからのサインアウト", path: "/api/signout", expectedStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &MockNoteUsecase{}
			uc.On("SignOut", testOwner).Return()
			h := handler.NewSessionHandler(sessions, uc, "notes_session", false, "/goodbye", testLogger())

			r := gin.New()
			r.Use(withSession(session))
			r.POST("/signout", h.SignOut)
			r.POST("/api/signout", h.SignOutAPI)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedLoc, w.Header().Get("Location"))
			assert.Contains(t, w.Header().Get("Set-Cookie"), "notes_session=;")
			uc.AssertExpectations(t)

			_, err := sessions.Validate(token)
			assert.True(t, errors.Is(err, service.ErrRevokedToken))
		})
	}
}
