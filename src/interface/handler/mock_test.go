package handler_test

import (
	"context"
	"io"

	"notes-app/src/domain"
	"notes-app/src/middleware"
	"notes-app/src/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

// MockNoteUsecase は usecase.NoteUsecase のモック実装
type MockNoteUsecase struct {
	mock.Mock
}

func (m *MockNoteUsecase) FetchNotes(ctx context.Context, owner string) ([]domain.Note, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Note), args.Error(1)
}

func (m *MockNoteUsecase) CreateNote(ctx context.Context, owner string, req usecase.CreateNoteRequest) (*domain.Note, error) {
	args := m.Called(ctx, owner, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Note), args.Error(1)
}

func (m *MockNoteUsecase) DeleteNote(ctx context.Context, owner string, req usecase.DeleteNoteRequest) error {
	args := m.Called(ctx, owner, req)
	return args.Error(0)
}

func (m *MockNoteUsecase) StageImage(owner string, file *domain.ImageFile) error {
	args := m.Called(owner, file)
	return args.Error(0)
}

func (m *MockNoteUsecase) ClearImage(owner string) {
	m.Called(owner)
}

func (m *MockNoteUsecase) StagedPreview(owner string) string {
	args := m.Called(owner)
	return args.String(0)
}

func (m *MockNoteUsecase) CurrentNotes(owner string) []domain.Note {
	args := m.Called(owner)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.Note)
}

func (m *MockNoteUsecase) SignOut(owner string) {
	m.Called(owner)
}

const testOwner = "alice"

var testSession = &domain.Session{Subject: testOwner, TokenID: "jti-1", Token: "token", ExpiresAt: 4102444800}

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// withSession 認証middlewareの代わりにセッションを設定する
func withSession(session *domain.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if session != nil {
			middleware.SetSession(c, session)
		}
		c.Next()
	}
}
