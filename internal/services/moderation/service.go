package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/enums"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	"github.com/JPJPKIMJP/AMLWD/internal/pkg/apperr"
	"github.com/JPJPKIMJP/AMLWD/internal/services/validation"
)

type ViolationStore interface {
	Record(ctx context.Context, v model.ContentViolation) (int, error)
}

// Classifier is an external content check. Errors make the check pass.
type Classifier interface {
	Classify(ctx context.Context, text string) (flagged bool, categories []string, err error)
}

type Notifier interface {
	Notify(ctx context.Context, title, message string, severity enums.AlertSeverity)
}

type Config struct {
	BlockedKeywords []string
	AlertThreshold  int
}

type Service struct {
	violations ViolationStore
	classifier Classifier
	notifier   Notifier
	cfg        Config
	now        func() time.Time
	logger     *zap.Logger
}

func NewService(violations ViolationStore, classifier Classifier, notifier Notifier, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		violations: violations,
		classifier: classifier,
		notifier:   notifier,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *Service) AIEnabled() bool {
	return s != nil && s.classifier != nil
}

// CheckPrompt runs the keyword blocklist and then the optional classifier.
// A rejected prompt is recorded against the requester.
func (s *Service) CheckPrompt(ctx context.Context, r model.Requester, prompt string) error {
	if kw, hit := validation.BlockedKeyword(prompt, s.cfg.BlockedKeywords); hit {
		s.recordViolation(ctx, r, prompt, ReasonBlockedKeyword, kw)
		return apperr.New(apperr.InvalidArgument, rejectMessageFor(ReasonBlockedKeyword))
	}

	if s.classifier == nil {
		return nil
	}
	flagged, categories, err := s.classifier.Classify(ctx, prompt)
	if err != nil {
		s.logger.Warn("ai moderation unavailable, allowing prompt",
			zap.String("user_id", r.UserID),
			zap.Error(err),
		)
		return nil
	}
	if flagged {
		s.recordViolation(ctx, r, prompt, ReasonAIFlagged, strings.Join(categories, ","))
		return apperr.New(apperr.InvalidArgument, rejectMessageFor(ReasonAIFlagged))
	}
	return nil
}

func (s *Service) recordViolation(ctx context.Context, r model.Requester, prompt, reason, flagged string) {
	s.logger.Warn("content violation",
		zap.String("user_id", r.UserID),
		zap.String("reason", reason),
		zap.String("flagged", flagged),
	)
	if s.violations == nil || r.UserID == "" {
		return
	}

	count, err := s.violations.Record(ctx, model.ContentViolation{
		UserID:         r.UserID,
		UserEmail:      r.Email,
		Prompt:         prompt,
		Reason:         reason,
		FlaggedKeyword: flagged,
		IP:             r.IP,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		s.logger.Error("record content violation", zap.String("user_id", r.UserID), zap.Error(err))
		return
	}

	if s.cfg.AlertThreshold > 0 && count >= s.cfg.AlertThreshold && s.notifier != nil {
		s.notifier.Notify(ctx, "Repeated content violations",
			fmt.Sprintf("User %s (%s) has %d content violations", r.UserID, r.Email, count),
			enums.AlertSeverityCritical)
	}
}
