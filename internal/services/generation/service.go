package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/enums"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	"github.com/JPJPKIMJP/AMLWD/internal/infra/metrics"
	"github.com/JPJPKIMJP/AMLWD/internal/pkg/apperr"
	"github.com/JPJPKIMJP/AMLWD/internal/services/inference"
	"github.com/JPJPKIMJP/AMLWD/internal/services/validation"
)

type Gate interface {
	Check(ctx context.Context, r model.Requester) error
	IsAdmin(ctx context.Context, r model.Requester) bool
}

type Validator interface {
	Validate(raw validation.RawParams) (model.GenerationParams, error)
}

type Moderator interface {
	CheckPrompt(ctx context.Context, r model.Requester, prompt string) error
}

type Limits interface {
	ConsumeIP(ctx context.Context, r model.Requester) error
	ConsumeBurst(ctx context.Context, r model.Requester) error
	ConsumeDaily(ctx context.Context, r model.Requester, isAdmin bool) error
}

type Generator interface {
	Configured() bool
	Generate(ctx context.Context, p model.GenerationParams) (inference.Result, error)
}

type Auditor interface {
	Record(ctx context.Context, a model.GenerationAttempt)
}

type CostEstimator interface {
	EstimatedCost(numImages int) float64
}

type Notifier interface {
	Notify(ctx context.Context, title, message string, severity enums.AlertSeverity)
}

type Deps struct {
	Gate      Gate
	Validator Validator
	Moderator Moderator
	Limits    Limits
	Generator Generator
	Auditor   Auditor
	Costs     CostEstimator
	Notifier  Notifier
}

// Service runs one generation request end to end. Every call leaves
// exactly one audit record, whatever the outcome.
type Service struct {
	deps          Deps
	slowThreshold time.Duration
	now           func() time.Time
	newID         func() uuid.UUID
	logger        *zap.Logger
}

func NewService(deps Deps, slowThreshold time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		deps:          deps,
		slowThreshold: slowThreshold,
		now:           time.Now,
		newID:         uuid.New,
		logger:        logger,
	}
}

func (s *Service) InferenceConfigured() bool {
	return s.deps.Generator != nil && s.deps.Generator.Configured()
}

func (s *Service) Generate(ctx context.Context, r model.Requester, raw validation.RawParams) (res model.GenerationResult, err error) {
	started := s.now()
	attempt := model.GenerationAttempt{
		ID:        s.newID(),
		UserID:    r.UserID,
		UserEmail: r.Email,
		IP:        r.IP,
		CreatedAt: started.UTC(),
	}
	if raw.Prompt != nil {
		attempt.Params.Prompt = *raw.Prompt
	}

	metrics.GenerationsInFlight.Inc()
	defer func() {
		metrics.GenerationsInFlight.Dec()
		elapsed := s.now().Sub(started)
		attempt.ProcessingMS = elapsed.Milliseconds()
		attempt.Success = err == nil
		if err != nil {
			attempt.ErrorCode = string(apperr.CodeOf(err))
			attempt.Error = apperr.MessageOf(err)
			metrics.GenerationsTotal.WithLabelValues(attempt.ErrorCode).Inc()
		} else {
			metrics.GenerationsTotal.WithLabelValues("ok").Inc()
			metrics.GenerationDurationSeconds.Observe(elapsed.Seconds())
			metrics.ImagesGeneratedTotal.Add(float64(len(res.Images)))
		}
		if s.deps.Auditor != nil {
			s.deps.Auditor.Record(ctx, attempt)
		}
	}()

	if err := s.deps.Gate.Check(ctx, r); err != nil {
		return model.GenerationResult{}, err
	}
	isAdmin := s.deps.Gate.IsAdmin(ctx, r)

	params, err := s.deps.Validator.Validate(raw)
	if err != nil {
		return model.GenerationResult{}, err
	}
	attempt.Params = params

	if s.deps.Moderator != nil {
		if err := s.deps.Moderator.CheckPrompt(ctx, r, params.Prompt); err != nil {
			return model.GenerationResult{}, err
		}
	}

	if err := s.deps.Limits.ConsumeIP(ctx, r); err != nil {
		return model.GenerationResult{}, err
	}
	if err := s.deps.Limits.ConsumeBurst(ctx, r); err != nil {
		return model.GenerationResult{}, err
	}
	// The slot is spent before the provider is called; failed generations
	// are not refunded.
	if err := s.deps.Limits.ConsumeDaily(ctx, r, isAdmin); err != nil {
		return model.GenerationResult{}, err
	}

	if !s.InferenceConfigured() {
		return model.GenerationResult{}, apperr.New(apperr.FailedPrecondition, "Image generation service is not configured")
	}

	out, err := s.deps.Generator.Generate(ctx, params)
	metrics.InferencePollsTotal.Add(float64(out.Polls))
	if err != nil {
		return model.GenerationResult{}, s.remoteError(attempt.ID, err)
	}
	if len(out.Images) == 0 {
		return model.GenerationResult{}, apperr.New(apperr.Internal, "Generation returned no images")
	}

	if s.deps.Costs != nil {
		attempt.EstimatedCost = s.deps.Costs.EstimatedCost(len(out.Images))
	}

	elapsed := s.now().Sub(started)
	if s.slowThreshold > 0 && elapsed > s.slowThreshold && s.deps.Notifier != nil {
		s.deps.Notifier.Notify(ctx, "Slow image generation",
			fmt.Sprintf("Generation %s for user %s took %s (%d polls)", attempt.ID, r.UserID, elapsed.Round(time.Millisecond), out.Polls),
			enums.AlertSeverityWarning)
	}

	s.logger.Info("image generated",
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("user_id", r.UserID),
		zap.Int("images", len(out.Images)),
		zap.Int("polls", out.Polls),
		zap.Duration("elapsed", elapsed),
	)

	return model.GenerationResult{
		AttemptID:      attempt.ID,
		Images:         out.Images,
		Seed:           out.Seed,
		ProcessingTime: elapsed,
	}, nil
}

// remoteError keeps deadline-exceeded and folds every other provider
// failure into internal.
func (s *Service) remoteError(attemptID uuid.UUID, err error) error {
	code := apperr.CodeOf(err)
	s.logger.Error("inference failed",
		zap.String("attempt_id", attemptID.String()),
		zap.String("code", string(code)),
		zap.Error(err),
	)
	switch code {
	case apperr.DeadlineExceeded, apperr.FailedPrecondition, apperr.Internal:
		return err
	default:
		return apperr.Wrap(apperr.Internal, "Generation failed: "+apperr.MessageOf(err), err)
	}
}
