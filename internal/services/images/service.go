package images

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	"github.com/JPJPKIMJP/AMLWD/internal/pkg/apperr"
	pgrepo "github.com/JPJPKIMJP/AMLWD/internal/repo/postgres"
)

const (
	defaultListLimit   = 20
	maxListLimit       = 100
	defaultMaxBytes    = 20 << 20
	maxSlugLength      = 40
	maxPromptForRecord = 1000
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

type Store interface {
	Create(ctx context.Context, img model.StoredImage) (model.StoredImage, error)
	ListByUser(ctx context.Context, userID string, limit int, startAfter *uuid.UUID) (model.ImagePage, error)
}

type AttemptChecker interface {
	Exists(ctx context.Context, id uuid.UUID, userID string) (bool, error)
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, data []byte, contentType string) error
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type SaveInput struct {
	ImageBase64 string
	Prompt      string
	Metadata    map[string]any
	AttemptID   string
}

type Service struct {
	store    Store
	attempts AttemptChecker
	storage  ObjectStorage
	maxBytes int64
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(store Store, attempts AttemptChecker, storage ObjectStorage, maxBytes int64, logger *zap.Logger) *Service {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		attempts: attempts,
		storage:  storage,
		maxBytes: maxBytes,
		now:      time.Now,
		logger:   logger,
	}
}

// Save uploads the decoded image and records it for the requester. The
// object is removed again when the record cannot be written.
func (s *Service) Save(ctx context.Context, r model.Requester, in SaveInput) (model.StoredImage, error) {
	if !r.Authenticated() {
		return model.StoredImage{}, apperr.New(apperr.Unauthenticated, "Authentication required")
	}
	if s.store == nil || s.storage == nil {
		return model.StoredImage{}, apperr.New(apperr.FailedPrecondition, "Image storage is not configured")
	}

	data, err := decodeImage(in.ImageBase64)
	if err != nil {
		return model.StoredImage{}, apperr.Wrap(apperr.InvalidArgument, "Invalid image data", err)
	}
	if int64(len(data)) > s.maxBytes {
		return model.StoredImage{}, apperr.Newf(apperr.InvalidArgument, "Image exceeds %d bytes", s.maxBytes)
	}

	attemptID, err := s.resolveAttempt(ctx, r.UserID, in.AttemptID)
	if err != nil {
		return model.StoredImage{}, err
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return model.StoredImage{}, apperr.Wrap(apperr.Internal, "Failed to prepare image storage", err)
	}

	contentType := http.DetectContentType(data)
	key, err := buildObjectKey(r.UserID, in.Prompt, extensionFor(contentType), s.now())
	if err != nil {
		return model.StoredImage{}, apperr.Wrap(apperr.Internal, "Failed to build object key", err)
	}

	if err := s.storage.Put(ctx, key, data, contentType); err != nil {
		s.logger.Error("upload image", zap.String("user_id", r.UserID), zap.String("key", key), zap.Error(err))
		return model.StoredImage{}, apperr.Wrap(apperr.Internal, "Failed to upload image", err)
	}

	publicURL, err := s.storage.URL(ctx, key)
	if err != nil {
		s.cleanup(ctx, key)
		return model.StoredImage{}, apperr.Wrap(apperr.Internal, "Failed to build image url", err)
	}

	prompt := strings.TrimSpace(in.Prompt)
	if len([]rune(prompt)) > maxPromptForRecord {
		prompt = string([]rune(prompt)[:maxPromptForRecord])
	}

	saved, err := s.store.Create(ctx, model.StoredImage{
		UserID:    r.UserID,
		UserEmail: r.Email,
		Prompt:    prompt,
		ImageURL:  publicURL,
		FileName:  key,
		SizeBytes: int64(len(data)),
		Metadata:  in.Metadata,
		AttemptID: attemptID,
	})
	if err != nil {
		s.cleanup(ctx, key)
		switch {
		case errors.Is(err, pgrepo.ErrUnknownAttempt):
			return model.StoredImage{}, apperr.New(apperr.InvalidArgument, "Unknown attempt_id")
		case errors.Is(err, pgrepo.ErrAttemptAlreadyLinked):
			return model.StoredImage{}, apperr.New(apperr.InvalidArgument, "Image for this attempt is already saved")
		}
		s.logger.Error("record stored image", zap.String("user_id", r.UserID), zap.Error(err))
		return model.StoredImage{}, apperr.Wrap(apperr.Internal, "Failed to save image record", err)
	}

	return saved, nil
}

// List pages the requester's images newest first.
func (s *Service) List(ctx context.Context, r model.Requester, limit int, startAfter string) (model.ImagePage, error) {
	if !r.Authenticated() {
		return model.ImagePage{}, apperr.New(apperr.Unauthenticated, "Authentication required")
	}
	if s.store == nil {
		return model.ImagePage{}, apperr.New(apperr.FailedPrecondition, "Image storage is not configured")
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var cursor *uuid.UUID
	if startAfter = strings.TrimSpace(startAfter); startAfter != "" {
		id, err := uuid.Parse(startAfter)
		if err != nil {
			return model.ImagePage{}, apperr.New(apperr.InvalidArgument, "Invalid start_after cursor")
		}
		cursor = &id
	}

	page, err := s.store.ListByUser(ctx, r.UserID, limit, cursor)
	if err != nil {
		return model.ImagePage{}, apperr.Wrap(apperr.Internal, "Failed to list images", err)
	}
	return page, nil
}

func (s *Service) resolveAttempt(ctx context.Context, userID, raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.New(apperr.InvalidArgument, "Invalid attempt_id")
	}
	if s.attempts == nil {
		return &id, nil
	}
	ok, err := s.attempts.Exists(ctx, id, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Failed to check attempt", err)
	}
	if !ok {
		return nil, apperr.New(apperr.InvalidArgument, "Unknown attempt_id")
	}
	return &id, nil
}

func (s *Service) cleanup(ctx context.Context, key string) {
	if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("delete orphaned image object", zap.String("key", key), zap.Error(err))
	}
}

func decodeImage(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "data:") {
		if idx := strings.Index(raw, ","); idx >= 0 {
			raw = raw[idx+1:]
		}
	}
	if raw == "" {
		return nil, fmt.Errorf("image_base64 is empty")
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode image_base64: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	return data, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

func buildObjectKey(userID, prompt, ext string, now time.Time) (string, error) {
	rnd := make([]byte, 4)
	if _, err := rand.Read(rnd); err != nil {
		return "", err
	}

	owner := unsafeKeyChars.ReplaceAllString(userID, "_")
	name := slug.Make(prompt)
	if len(name) > maxSlugLength {
		name = strings.Trim(name[:maxSlugLength], "-")
	}
	if name == "" {
		name = "image"
	}

	return fmt.Sprintf("images/%s/%d_%s_%s%s", owner, now.UTC().UnixMilli(), name, hex.EncodeToString(rnd), ext), nil
}
