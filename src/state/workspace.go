package state

import (
	"sync"

	"notes-app/src/domain"
)

// ImageStage 次回の作成時にアップロードする画像を保持する
type ImageStage struct {
	mu   sync.Mutex
	file *domain.ImageFile
}

// Stage 画像を選択状態にする（以前の選択は破棄）
func (s *ImageStage) Stage(file *domain.ImageFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = file
}

// Peek 選択中の画像を返す
func (s *ImageStage) Peek() *domain.ImageFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file
}

// Clear 選択を解除する
func (s *ImageStage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = nil
}

// Workspace ユーザーごとの画面状態
type Workspace struct {
	Notes *NoteList
	Image *ImageStage
}

// Registry ユーザーごとのWorkspaceを管理する
type Registry struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewRegistry Registryを作成
func NewRegistry() *Registry {
	return &Registry{workspaces: make(map[string]*Workspace)}
}

// Workspace 指定ユーザーのWorkspaceを返す（なければ作成）
func (r *Registry) Workspace(owner string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[owner]
	if !ok {
		ws = &Workspace{Notes: NewNoteList(), Image: &ImageStage{}}
		r.workspaces[owner] = ws
	}
	return ws
}

// Drop 指定ユーザーのWorkspaceを破棄する
func (r *Registry) Drop(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workspaces, owner)
}

// Len 管理中のWorkspace数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}
