package domain

import (
	"encoding/base64"
	"fmt"
)

// Note represents a note domain entity
type Note struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// Image はオブジェクトストア上のキー（通常はアップロード時のファイル名）
	Image string `json:"image,omitempty"`
	// ImageURL は表示用の一時URL。リモート操作には使用しない
	ImageURL string `json:"image_url,omitempty"`
}

// NoteInput represents the record-create input sent to the gateway
type NoteInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
}

// ImageFile represents an image selected by the user
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Key returns the rendering key of the note (ID, falling back to Name)
func (n Note) Key() string {
	if n.ID != "" {
		return n.ID
	}
	return n.Name
}

// HasImage reports whether the note references a stored image
func (n Note) HasImage() bool {
	return n.Image != ""
}

// PreviewURL returns a data URL for displaying the file before upload
func (f *ImageFile) PreviewURL() string {
	if f == nil || len(f.Data) == 0 {
		return ""
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(f.Data))
}
