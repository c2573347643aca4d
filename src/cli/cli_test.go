package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"notes-app/src/config"
	"notes-app/src/service"
	"notes-app/src/storage"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "cli-test-secret"

// callLog S3とGraphQLへの呼び出し順を記録する
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// fakeS3 パススタイルのPUT/DELETEを受け付ける
type fakeS3 struct {
	log     *callLog
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.log.add(r.Method + " " + r.URL.Path)

	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		f.objects[r.URL.Path] = body
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// fakeNotesAPI listNotes/createNote/deleteNoteを処理する
type fakeNotesAPI struct {
	log    *callLog
	mu     sync.Mutex
	nextID int
	items  []map[string]any
}

func (b *fakeNotesAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string                     `json:"query"`
		Variables map[string]json.RawMessage `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var data any
	switch {
	case strings.Contains(req.Query, "createNote"):
		b.log.add("createNote")
		var input map[string]any
		_ = json.Unmarshal(req.Variables["input"], &input)
		b.nextID++
		input["id"] = fmt.Sprint(b.nextID)
		b.items = append(b.items, input)
		data = map[string]any{"createNote": input}
	case strings.Contains(req.Query, "deleteNote"):
		b.log.add("deleteNote")
		var input map[string]string
		_ = json.Unmarshal(req.Variables["input"], &input)
		for i, item := range b.items {
			if item["id"] == input["id"] {
				b.items = append(b.items[:i], b.items[i+1:]...)
				break
			}
		}
		data = map[string]any{"deleteNote": map[string]string{"id": input["id"]}}
	default:
		b.log.add("listNotes")
		items := append([]map[string]any{}, b.items...)
		data = map[string]any{"listNotes": map[string]any{"items": items}}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

type testEnv struct {
	log *callLog
	s3  *fakeS3
	api *fakeNotesAPI
}

// newTestEnv フェイクのS3とGraphQLサーバーを立て、環境変数で向き先を切り替える
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := &callLog{}
	env := &testEnv{
		log: log,
		s3:  &fakeS3{log: log, objects: make(map[string][]byte)},
		api: &fakeNotesAPI{log: log},
	}

	s3Server := httptest.NewServer(env.s3)
	t.Cleanup(s3Server.Close)
	apiServer := httptest.NewServer(env.api)
	t.Cleanup(apiServer.Close)

	t.Setenv("S3_ENDPOINT", s3Server.URL)
	t.Setenv("S3_BUCKET", "notes-bucket")
	t.Setenv("S3_KEY_PREFIX", "public/")
	t.Setenv("GRAPHQL_ENDPOINT", apiServer.URL)
	t.Setenv("GRAPHQL_API_KEY", "")
	t.Setenv("AUTH_JWT_SECRET", testSecret)

	resetFlags()
	return env
}

// resetFlags 前回の実行で設定されたフラグ変数を初期値に戻す
func resetFlags() {
	envFile = ""
	accessToken = ""
	verbose = false
	noteName = ""
	noteDesc = ""
	imagePath = ""
	deleteName = ""
	tokenSubject = "local-user"
	tokenTTL = "12h"
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestListCommand(t *testing.T) {
	env := newTestEnv(t)
	env.api.items = []map[string]any{
		{"id": "1", "name": "Milk", "description": "2%", "image": nil},
		{"id": "2", "name": "Cat", "description": "fluffy", "image": "cat.png"},
	}
	env.api.nextID = 2

	out := execute(t, "list")

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Milk")
	assert.Contains(t, out, "fluffy")
	// 画像キーは署名付きURLに解決して表示する
	assert.Contains(t, out, "/notes-bucket/public/cat.png?")
	assert.Contains(t, out, "X-Amz-Signature=")
	// 署名付きURLの発行はS3へアクセスしない
	assert.Equal(t, []string{"listNotes"}, env.log.list())
}

func TestCreateCommand(t *testing.T) {
	t.Run("画像をアップロードしてから作成", func(t *testing.T) {
		env := newTestEnv(t)
		image := filepath.Join(t.TempDir(), "cat.png")
		require.NoError(t, os.WriteFile(image, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, 0o600))

		out := execute(t, "create", "--name", "Cat", "--description", "fluffy", "--image", image)

		assert.Contains(t, out, "Note created: 1")
		assert.Contains(t, out, "/notes-bucket/public/cat.png?")
		assert.Equal(t, []string{"PUT /notes-bucket/public/cat.png", "createNote", "listNotes"}, env.log.list())

		require.Len(t, env.api.items, 1)
		assert.Equal(t, "cat.png", env.api.items[0]["image"])
	})

	t.Run("画像なし", func(t *testing.T) {
		env := newTestEnv(t)

		out := execute(t, "create", "--name", "Milk", "--description", "2%")

		assert.Contains(t, out, "Note created: 1")
		assert.Equal(t, []string{"createNote", "listNotes"}, env.log.list())
		require.Len(t, env.api.items, 1)
		assert.Nil(t, env.api.items[0]["image"])
	})
}

func TestDeleteCommand(t *testing.T) {
	env := newTestEnv(t)
	env.api.items = []map[string]any{
		{"id": "7", "name": "cat.png", "description": "fluffy", "image": "cat.png"},
	}
	env.s3.objects["/notes-bucket/public/cat.png"] = []byte("png")

	out := execute(t, "delete", "7", "--name", "cat.png")

	assert.Contains(t, out, "Note deleted: 7")
	// 画像を先に削除し、その後にメモを削除する
	assert.Equal(t, []string{"DELETE /notes-bucket/public/cat.png", "deleteNote"}, env.log.list())
	assert.Empty(t, env.api.items)
	assert.Empty(t, env.s3.objects)
}

func TestTokenCommand(t *testing.T) {
	newTestEnv(t)

	out := execute(t, "token", "--subject", "bob", "--ttl", "1h")

	session, err := service.NewSessionService(testSecret, "notes-app").Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "bob", session.Subject)
	assert.NotEmpty(t, session.TokenID)
}

func TestRunServer_RejectsInsecureConfig(t *testing.T) {
	t.Run("署名鍵が未設定", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "")
		err := runServer(config.LoadConfig())
		assert.ErrorIs(t, err, config.ErrInsecureJWTSecret)
	})

	t.Run("署名鍵がデフォルトのまま", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", config.DefaultJWTSecret)
		err := runServer(config.LoadConfig())
		assert.ErrorIs(t, err, config.ErrInsecureJWTSecret)
	})

	t.Run("ログの退避先が画像と同じ領域", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", testSecret)
		t.Setenv("S3_KEY_PREFIX", "public/")
		t.Setenv("LOG_UPLOAD_PREFIX", "public/")
		assert.Error(t, runServer(config.LoadConfig()))
	})
}

func TestBuildComponents_SeparateLogStore(t *testing.T) {
	newTestEnv(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	components, err := buildComponents(config.LoadConfig(), log)
	require.NoError(t, err)

	assert.Equal(t, "public/", components.Store.KeyPrefix())
	assert.Equal(t, "logs/", components.LogStore.KeyPrefix())
}

func TestUploadRemainingLogs(t *testing.T) {
	env := newTestEnv(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	components, err := buildComponents(config.LoadConfig(), log)
	require.NoError(t, err)

	dir := t.TempDir()
	logFile := filepath.Join(dir, "app_20260101.log")
	require.NoError(t, os.WriteFile(logFile, []byte("line\n"), 0o600))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(logFile, old, old))

	uploader := storage.NewLogUploader(components.LogStore, log, nil)
	uploaded, err := uploadRemainingLogs(uploader, dir, 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, 1, uploaded)
	assert.Equal(t, []string{"PUT /notes-bucket/logs/app_20260101.log"}, env.log.list())
	assert.NoFileExists(t, logFile)
}
