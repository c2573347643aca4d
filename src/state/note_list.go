package state

import (
	"sync"

	"notes-app/src/domain"
)

// NoteList 表示対象のメモ一覧を保持する
//
// 一覧は常に最後に成功した取得結果そのもので、差分マージは行わない。
type NoteList struct {
	mu      sync.RWMutex
	notes   []domain.Note
	version uint64
}

// NewNoteList 空のメモ一覧を作成
func NewNoteList() *NoteList {
	return &NoteList{notes: []domain.Note{}}
}

// Replace 一覧全体を置き換える
func (l *NoteList) Replace(notes []domain.Note) {
	next := make([]domain.Note, len(notes))
	copy(next, notes)

	l.mu.Lock()
	l.notes = next
	l.version++
	l.mu.Unlock()
}

// RemoveByID 指定IDのメモを除いた一覧に置き換え、除いたメモと位置を返す
func (l *NoteList) RemoveByID(id string) (domain.Note, int, bool) {
	l.mu.Lock()
	index := -1
	for i, n := range l.notes {
		if n.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		l.mu.Unlock()
		return domain.Note{}, -1, false
	}

	removed := l.notes[index]
	next := make([]domain.Note, 0, len(l.notes)-1)
	next = append(next, l.notes[:index]...)
	next = append(next, l.notes[index+1:]...)
	l.notes = next
	l.version++
	l.mu.Unlock()

	return removed, index, true
}

// Restore 削除したメモを元の位置に戻す（既に存在する場合は何もしない）
func (l *NoteList) Restore(note domain.Note, index int) bool {
	l.mu.Lock()
	for _, n := range l.notes {
		if n.ID == note.ID {
			l.mu.Unlock()
			return false
		}
	}

	if index < 0 || index > len(l.notes) {
		index = len(l.notes)
	}
	next := make([]domain.Note, 0, len(l.notes)+1)
	next = append(next, l.notes[:index]...)
	next = append(next, note)
	next = append(next, l.notes[index:]...)
	l.notes = next
	l.version++
	l.mu.Unlock()

	return true
}

// Snapshot 現在の一覧のコピーを返す
func (l *NoteList) Snapshot() []domain.Note {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Note, len(l.notes))
	copy(out, l.notes)
	return out
}

// Version 一覧が変更されるたびに増加する番号
func (l *NoteList) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}
