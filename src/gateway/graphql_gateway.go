package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"notes-app/src/domain"
	"notes-app/src/metrics"

	"github.com/machinebox/graphql"
	"github.com/sirupsen/logrus"
)

const listNotesQuery = `query ListNotes {
  listNotes {
    items {
      id
      name
      description
      image
    }
  }
}`

const createNoteMutation = `mutation CreateNote($input: CreateNoteInput!) {
  createNote(input: $input) {
    id
    name
    description
    image
  }
}`

const deleteNoteMutation = `mutation DeleteNote($input: DeleteNoteInput!) {
  deleteNote(input: $input) {
    id
  }
}`

// Config GraphQLゲートウェイの設定
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// GraphQLGateway domain.NoteGatewayのGraphQL実装
type GraphQLGateway struct {
	client *graphql.Client
	config *Config
	logger *logrus.Logger
}

type remoteNote struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
}

type listNotesResponse struct {
	ListNotes struct {
		Items []remoteNote `json:"items"`
	} `json:"listNotes"`
}

type createNoteResponse struct {
	CreateNote *remoteNote `json:"createNote"`
}

type deleteNoteResponse struct {
	DeleteNote *struct {
		ID string `json:"id"`
	} `json:"deleteNote"`
}

// NewGraphQLGateway GraphQLゲートウェイを作成
func NewGraphQLGateway(config *Config, logger *logrus.Logger) *GraphQLGateway {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := graphql.NewClient(config.Endpoint, graphql.WithHTTPClient(&http.Client{Timeout: timeout}))
	client.Log = func(s string) {
		logger.WithField("component", "graphql").Debug(s)
	}

	return &GraphQLGateway{
		client: client,
		config: config,
		logger: logger,
	}
}

// List 全てのメモを取得
func (g *GraphQLGateway) List(ctx context.Context) (notes []domain.Note, err error) {
	defer func(start time.Time) { metrics.ObserveRemoteCall("gateway", "list", start, err) }(time.Now())

	req := g.newRequest(ctx, listNotesQuery)

	var resp listNotesResponse
	if err := g.client.Run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("listNotes の実行に失敗: %w", err)
	}

	notes = make([]domain.Note, 0, len(resp.ListNotes.Items))
	for _, item := range resp.ListNotes.Items {
		notes = append(notes, item.toDomain())
	}

	g.logger.WithField("count", len(notes)).Debug("メモ一覧を取得しました")
	return notes, nil
}

// Create メモを作成
func (g *GraphQLGateway) Create(ctx context.Context, input domain.NoteInput) (note *domain.Note, err error) {
	defer func(start time.Time) { metrics.ObserveRemoteCall("gateway", "create", start, err) }(time.Now())

	req := g.newRequest(ctx, createNoteMutation)
	req.Var("input", input)

	var resp createNoteResponse
	if err := g.client.Run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("createNote の実行に失敗: %w", err)
	}
	if resp.CreateNote == nil {
		return nil, fmt.Errorf("createNote が空の結果を返しました")
	}

	created := resp.CreateNote.toDomain()
	g.logger.WithField("note_id", created.ID).Info("メモを作成しました")
	return &created, nil
}

// Delete メモを削除
func (g *GraphQLGateway) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { metrics.ObserveRemoteCall("gateway", "delete", start, err) }(time.Now())

	req := g.newRequest(ctx, deleteNoteMutation)
	req.Var("input", map[string]string{"id": id})

	var resp deleteNoteResponse
	if err := g.client.Run(ctx, req, &resp); err != nil {
		return fmt.Errorf("deleteNote の実行に失敗 (id=%s): %w", id, err)
	}

	g.logger.WithField("note_id", id).Info("メモを削除しました")
	return nil
}

// newRequest 認証ヘッダー付きのリクエストを作成
func (g *GraphQLGateway) newRequest(ctx context.Context, query string) *graphql.Request {
	req := graphql.NewRequest(query)

	// APIキーが設定されていればそれを優先し、なければセッションのトークンを転送する
	if g.config.APIKey != "" {
		req.Header.Set("x-api-key", g.config.APIKey)
	} else if sess, ok := domain.SessionFromContext(ctx); ok && sess.Token != "" {
		req.Header.Set("Authorization", sess.Token)
	}
	return req
}

func (n remoteNote) toDomain() domain.Note {
	note := domain.Note{
		ID:          n.ID,
		Name:        n.Name,
		Description: n.Description,
	}
	if n.Image != nil {
		note.Image = *n.Image
	}
	return note
}
