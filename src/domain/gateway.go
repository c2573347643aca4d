package domain

import "context"

// ImageContentType is the content type attached to every uploaded note image
const ImageContentType = "image/*"

// PutOptions represents options for storing an object
type PutOptions struct {
	ContentType string
}

// NoteGateway defines the remote data API for note records
type NoteGateway interface {
	List(ctx context.Context) ([]Note, error)
	Create(ctx context.Context, input NoteInput) (*Note, error)
	Delete(ctx context.Context, id string) error
}

// ObjectStore defines the remote blob storage used for note images
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error
	Get(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
}

// Session represents an authenticated user session
type Session struct {
	Subject   string
	TokenID   string
	Token     string
	ExpiresAt int64
}

type sessionKey struct{}

// WithSession stores the session in the context
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored in the context, if any
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
