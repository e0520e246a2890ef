// Package gallery delivers finished photos to clients through PIN-protected
// share pages backed by S3-compatible object storage.
package gallery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hferris/lumen/internal/model"
	"github.com/hferris/lumen/internal/store"
)

const minPINLength = 4

// Service manages galleries and their photo objects.
type Service struct {
	galleries *store.GalleryStore
	client    s3Client
	bucket    string
	logger    *slog.Logger
}

// NewService creates the gallery service. With incomplete S3 config the
// service still manages gallery records but photo uploads are rejected.
func NewService(galleries *store.GalleryStore, cfg S3Config, logger *slog.Logger) *Service {
	s := &Service{
		galleries: galleries,
		bucket:    cfg.Bucket,
		logger:    logger,
	}
	if cfg.complete() {
		s.client = newS3Client(cfg)
	}
	return s
}

// Configured returns true when photo storage is usable.
func (s *Service) Configured() bool {
	return s.client != nil
}

// Create makes a gallery for a booking, hashing the access PIN.
func (s *Service) Create(accountID, bookingID int64, title, pin string) (*model.Gallery, error) {
	if len(pin) < minPINLength {
		return nil, fmt.Errorf("pin must be at least %d characters", minPINLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}
	return s.galleries.Create(accountID, bookingID, title, string(hash))
}

// VerifyPIN checks a visitor-supplied PIN against the gallery's hash.
func (s *Service) VerifyPIN(g *model.Gallery, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(g.PINHash), []byte(pin)) == nil
}

// UploadPhoto stores the object and records it on the gallery. The object
// key is namespaced by gallery and randomized so filenames cannot collide
// or be guessed.
func (s *Service) UploadPhoto(ctx context.Context, galleryID int64, filename, contentType string, size int64, body io.Reader) (*model.Photo, error) {
	if s.client == nil {
		return nil, fmt.Errorf("photo storage not configured")
	}

	key := fmt.Sprintf("%d/%s%s", galleryID, uuid.NewString(), path.Ext(filename))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}

	photo, err := s.galleries.AddPhoto(galleryID, key, filename, contentType, size)
	if err != nil {
		// The record failed but the object is up; remove it so the bucket
		// does not accumulate unreferenced files.
		if _, derr := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}); derr != nil {
			s.logger.Warn("orphaned photo object left in bucket", "key", key, "error", derr)
		}
		return nil, fmt.Errorf("record photo: %w", err)
	}
	return photo, nil
}

// OpenPhoto streams a photo object. The caller must close the reader.
func (s *Service) OpenPhoto(ctx context.Context, p *model.Photo) (io.ReadCloser, error) {
	if s.client == nil {
		return nil, fmt.Errorf("photo storage not configured")
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(p.ObjectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch photo: %w", err)
	}
	return out.Body, nil
}

// RemovePhoto deletes the object and its record.
func (s *Service) RemovePhoto(ctx context.Context, p *model.Photo) error {
	if s.client == nil {
		return fmt.Errorf("photo storage not configured")
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(p.ObjectKey),
	}); err != nil {
		return fmt.Errorf("delete photo object: %w", err)
	}
	return s.galleries.DeletePhoto(p.ID)
}
