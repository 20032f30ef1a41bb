// Package face handles face-capture uploads for biometric enrollment.
package face

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/biolens/auth-api/internal/domain"
	"github.com/biolens/auth-api/internal/pkg/id"
)

type UploadInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
	FaceType    string
	UserID      string
}

type Service interface {
	Upload(ctx context.Context, input UploadInput) (*domain.FaceImage, error)
	ListByUser(ctx context.Context, userID string) ([]domain.FaceImage, error)
	Download(ctx context.Context, userID, faceID string) (io.ReadCloser, *domain.FaceImage, error)
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

type faceStore interface {
	Put(ctx context.Context, f *domain.FaceImage) error
	Get(ctx context.Context, faceID string) (*domain.FaceImage, error)
	ListByUser(ctx context.Context, userID string) ([]domain.FaceImage, error)
}

type service struct {
	objects objectStore
	faces   faceStore
	now     func() time.Time
}

func NewService(objects objectStore, faces faceStore) Service {
	return &service{objects: objects, faces: faces, now: time.Now}
}

// Upload stores the capture under faces/<user_id>/<ms-timestamp>.jpg. The
// object write is the source of truth: a metadata write failure afterwards is
// logged but the upload still succeeds, so the client never re-captures a
// face that already landed in the bucket.
func (s *service) Upload(ctx context.Context, input UploadInput) (*domain.FaceImage, error) {
	if input.FaceType == "" {
		input.FaceType = domain.FaceTypeStraight
	}
	if !domain.ValidFaceType(input.FaceType) {
		return nil, fmt.Errorf("face_type must be straight, left or right: %w", domain.ErrBadRequest)
	}

	now := s.now().UTC()
	key := fmt.Sprintf("faces/%s/%d.jpg", input.UserID, now.UnixMilli())
	if _, err := s.objects.Upload(ctx, key, input.Reader, input.ContentType); err != nil {
		return nil, err
	}

	f := &domain.FaceImage{
		FaceID:      id.New(),
		UserID:      input.UserID,
		FaceType:    input.FaceType,
		Object:      key,
		FileName:    input.Filename,
		Size:        input.Size,
		ContentType: input.ContentType,
		UploadedAt:  now,
	}
	if err := s.faces.Put(ctx, f); err != nil {
		slog.Warn("face metadata write failed after upload",
			"user_id", input.UserID, "object", key, "error", err)
	}
	return f, nil
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]domain.FaceImage, error) {
	return s.faces.ListByUser(ctx, userID)
}

// Download streams back a previously uploaded capture. Captures are private:
// requesting someone else's face is forbidden, not merely not-found, so the
// client can tell a bad id from a permissions problem.
func (s *service) Download(ctx context.Context, userID, faceID string) (io.ReadCloser, *domain.FaceImage, error) {
	f, err := s.faces.Get(ctx, faceID)
	if err != nil {
		return nil, nil, err
	}
	if f.UserID != userID {
		return nil, nil, fmt.Errorf("face %s belongs to another user: %w", faceID, domain.ErrForbidden)
	}
	body, err := s.objects.Download(ctx, f.Object)
	if err != nil {
		return nil, nil, err
	}
	return body, f, nil
}
