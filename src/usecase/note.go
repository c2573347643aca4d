package usecase

import (
	"context"
	"errors"
	"fmt"

	"notes-app/src/domain"
	"notes-app/src/metrics"
	"notes-app/src/state"
	"notes-app/src/validator"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidName        = errors.New("name is required")
	ErrInvalidDescription = errors.New("description is required")
	ErrInvalidImage       = errors.New("image file name cannot be used as a storage key")
	ErrInvalidNoteID      = errors.New("note id is required")
	ErrGatewayFailure     = errors.New("data gateway request failed")
	ErrStorageFailure     = errors.New("object store request failed")
)

// CreateNoteRequest represents input for creating a note
type CreateNoteRequest struct {
	Name        string            `validate:"required,safe_text"`
	Description string            `validate:"required,safe_text"`
	Image       *domain.ImageFile `validate:"-"`
}

// DeleteNoteRequest represents input for deleting a note
type DeleteNoteRequest struct {
	ID string
	// Name はオブジェクトストアの削除キーとして使用される
	Name string
}

type imageKey struct {
	Filename string `validate:"required,safe_key"`
}

// Options 失敗時の補償動作
type Options struct {
	// CompensateOrphanUpload 作成失敗時にアップロード済みの画像を削除する
	CompensateOrphanUpload bool
	// RollbackFailedDelete 削除失敗時に一覧から外したメモを元に戻す
	RollbackFailedDelete bool
}

// NoteUsecase defines the interface for note operations
type NoteUsecase interface {
	FetchNotes(ctx context.Context, owner string) ([]domain.Note, error)
	CreateNote(ctx context.Context, owner string, req CreateNoteRequest) (*domain.Note, error)
	DeleteNote(ctx context.Context, owner string, req DeleteNoteRequest) error
	StageImage(owner string, file *domain.ImageFile) error
	ClearImage(owner string)
	StagedPreview(owner string) string
	CurrentNotes(owner string) []domain.Note
	SignOut(owner string)
}

type noteUsecase struct {
	gateway   domain.NoteGateway
	store     domain.ObjectStore
	registry  *state.Registry
	validator *validator.CustomValidator
	options   Options
	logger    *logrus.Logger
}

// NewNoteUsecase creates a new note usecase
func NewNoteUsecase(gateway domain.NoteGateway, store domain.ObjectStore, registry *state.Registry, options Options, logger *logrus.Logger) NoteUsecase {
	return &noteUsecase{
		gateway:   gateway,
		store:     store,
		registry:  registry,
		validator: validator.NewCustomValidator(),
		options:   options,
		logger:    logger,
	}
}

// FetchNotes 全件を取得し、画像キーを表示用URLに解決してから一覧を置き換える
func (u *noteUsecase) FetchNotes(ctx context.Context, owner string) ([]domain.Note, error) {
	notes, err := u.gateway.List(ctx)
	if err != nil {
		u.logger.WithError(err).WithField("owner", owner).Error("メモ一覧の取得に失敗")
		return nil, fmt.Errorf("%w: %w", ErrGatewayFailure, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range notes {
		if !notes[i].HasImage() {
			continue
		}
		i := i
		g.Go(func() error {
			url, err := u.store.Get(gctx, notes[i].Image)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrStorageFailure, err)
			}
			notes[i].ImageURL = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		u.logger.WithError(err).WithField("owner", owner).Error("画像URLの解決に失敗")
		return nil, err
	}

	u.registry.Workspace(owner).Notes.Replace(notes)
	metrics.SetPublishedNotes(len(notes))

	u.logger.WithFields(logrus.Fields{
		"owner": owner,
		"count": len(notes),
	}).Debug("メモ一覧を更新しました")
	return notes, nil
}

// CreateNote 画像があれば先にアップロードしてからメモを作成し、一覧を再取得する
func (u *noteUsecase) CreateNote(ctx context.Context, owner string, req CreateNoteRequest) (*domain.Note, error) {
	if err := u.validateCreateRequest(req); err != nil {
		return nil, err
	}

	ws := u.registry.Workspace(owner)
	image := req.Image
	if image == nil {
		image = ws.Image.Peek()
	}
	if image != nil {
		if err := u.validator.Validate(imageKey{Filename: image.Filename}); err != nil {
			return nil, ErrInvalidImage
		}
	}

	input := domain.NoteInput{
		Name:        req.Name,
		Description: req.Description,
	}

	if image != nil {
		key := image.Filename
		if err := u.store.Put(ctx, key, image.Data, domain.PutOptions{ContentType: domain.ImageContentType}); err != nil {
			u.logger.WithError(err).WithField("key", key).Error("画像のアップロードに失敗")
			return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
		}
		input.Image = &key
	}

	created, err := u.gateway.Create(ctx, input)
	if err != nil {
		u.logger.WithError(err).WithField("owner", owner).Error("メモの作成に失敗")
		if input.Image != nil && u.options.CompensateOrphanUpload {
			u.removeOrphan(ctx, *input.Image)
		}
		return nil, fmt.Errorf("%w: %w", ErrGatewayFailure, err)
	}

	// フォームをリセット
	ws.Image.Clear()

	// 作成結果は追加せず、サーバーの内容で一覧を置き換える
	if _, err := u.FetchNotes(ctx, owner); err != nil {
		u.logger.WithError(err).WithField("note_id", created.ID).Warn("作成後の一覧再取得に失敗")
	}

	u.logger.WithFields(logrus.Fields{
		"owner":   owner,
		"note_id": created.ID,
	}).Info("メモを作成しました")
	return created, nil
}

// DeleteNote 一覧から先に取り除き、その後に画像とメモをリモートから削除する
func (u *noteUsecase) DeleteNote(ctx context.Context, owner string, req DeleteNoteRequest) error {
	if req.ID == "" {
		return ErrInvalidNoteID
	}
	// 画像の保存キーとして使えない名前では何も削除しない
	if req.Name != "" {
		if err := u.validator.Validate(imageKey{Filename: req.Name}); err != nil {
			return ErrInvalidImage
		}
	}

	notes := u.registry.Workspace(owner).Notes
	removed, index, found := notes.RemoveByID(req.ID)

	rollback := func() {
		if found && u.options.RollbackFailedDelete && notes.Restore(removed, index) {
			u.logger.WithField("note_id", req.ID).Warn("削除に失敗したためメモを一覧に戻しました")
		}
	}

	if req.Name != "" {
		if err := u.store.Remove(ctx, req.Name); err != nil {
			u.logger.WithError(err).WithField("key", req.Name).Error("画像の削除に失敗")
			rollback()
			return fmt.Errorf("%w: %w", ErrStorageFailure, err)
		}
	}

	if err := u.gateway.Delete(ctx, req.ID); err != nil {
		u.logger.WithError(err).WithField("note_id", req.ID).Error("メモの削除に失敗")
		rollback()
		return fmt.Errorf("%w: %w", ErrGatewayFailure, err)
	}

	u.logger.WithFields(logrus.Fields{
		"owner":   owner,
		"note_id": req.ID,
	}).Info("メモを削除しました")
	return nil
}

// StageImage 次回の作成で使う画像を選択状態にする（アップロードはしない）
func (u *noteUsecase) StageImage(owner string, file *domain.ImageFile) error {
	if file == nil {
		return ErrInvalidImage
	}
	if err := u.validator.Validate(imageKey{Filename: file.Filename}); err != nil {
		return ErrInvalidImage
	}

	u.registry.Workspace(owner).Image.Stage(file)
	u.logger.WithFields(logrus.Fields{
		"owner":    owner,
		"filename": file.Filename,
		"size":     len(file.Data),
	}).Debug("画像を選択しました")
	return nil
}

// ClearImage 画像の選択を解除する
func (u *noteUsecase) ClearImage(owner string) {
	u.registry.Workspace(owner).Image.Clear()
}

// StagedPreview 選択中の画像のプレビューURLを返す
func (u *noteUsecase) StagedPreview(owner string) string {
	return u.registry.Workspace(owner).Image.Peek().PreviewURL()
}

// CurrentNotes 現在表示中のメモ一覧を返す
func (u *noteUsecase) CurrentNotes(owner string) []domain.Note {
	return u.registry.Workspace(owner).Notes.Snapshot()
}

// SignOut ユーザーの画面状態を破棄する
func (u *noteUsecase) SignOut(owner string) {
	u.registry.Drop(owner)
	u.logger.WithField("owner", owner).Info("サインアウトしました")
}

// validateCreateRequest validates create note request
func (u *noteUsecase) validateCreateRequest(req CreateNoteRequest) error {
	err := u.validator.Validate(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		if ve.HasField("Name") {
			return ErrInvalidName
		}
		if ve.HasField("Description") {
			return ErrInvalidDescription
		}
	}
	return err
}

func (u *noteUsecase) removeOrphan(ctx context.Context, key string) {
	if err := u.store.Remove(ctx, key); err != nil {
		u.logger.WithError(err).WithField("key", key).Error("孤立した画像の削除に失敗")
		return
	}
	u.logger.WithField("key", key).Warn("作成に失敗したため画像を削除しました")
}
