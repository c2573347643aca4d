package handler

import "notes-app/src/domain"

// CreateNoteRequestDTO represents HTTP request for creating a note
type CreateNoteRequestDTO struct {
	Name        string `form:"name" json:"name"`
	Description string `form:"description" json:"description"`
}

// DeleteNoteRequestDTO represents the storage key sent with a delete request
type DeleteNoteRequestDTO struct {
	Name string `form:"name" json:"name"`
}

// NoteResponseDTO represents HTTP response for a note
type NoteResponseDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// NoteListResponseDTO represents HTTP response for the note list
type NoteListResponseDTO struct {
	Notes []NoteResponseDTO `json:"notes"`
	Total int               `json:"total"`
}

// ImagePreviewResponseDTO represents the staged image preview
type ImagePreviewResponseDTO struct {
	Staged     bool   `json:"staged"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// ErrorResponseDTO represents HTTP error response
type ErrorResponseDTO struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func toNoteResponseDTO(note *domain.Note) NoteResponseDTO {
	return NoteResponseDTO{
		ID:          note.ID,
		Name:        note.Name,
		Description: note.Description,
		Image:       note.Image,
		ImageURL:    note.ImageURL,
	}
}

func toNoteListResponseDTO(notes []domain.Note) NoteListResponseDTO {
	result := make([]NoteResponseDTO, len(notes))
	for i := range notes {
		result[i] = toNoteResponseDTO(&notes[i])
	}
	return NoteListResponseDTO{Notes: result, Total: len(result)}
}
